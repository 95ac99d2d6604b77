package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/Fantasim/solbatch/internal/config"
)

func generateKeypair(t *testing.T) Keypair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	kp, err := fromRawSecret(priv)
	if err != nil {
		t.Fatalf("fromRawSecret: %v", err)
	}
	return kp
}

func TestFromBase58_FullSecret(t *testing.T) {
	kp := generateKeypair(t)

	loaded, err := FromBase58(kp.SecretBase58())
	if err != nil {
		t.Fatalf("FromBase58() error = %v", err)
	}
	if loaded.Address() != kp.Address() {
		t.Errorf("address = %s, want %s", loaded.Address(), kp.Address())
	}
}

func TestFromBase58_SeedOnly(t *testing.T) {
	kp := generateKeypair(t)
	seed := kp.PrivateKey.Seed()

	loaded, err := FromBase58(base58.Encode(seed))
	if err != nil {
		t.Fatalf("FromBase58(seed) error = %v", err)
	}
	if loaded.Address() != kp.Address() {
		t.Errorf("address = %s, want %s", loaded.Address(), kp.Address())
	}
}

func TestFromBase58_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"not_base58", "0OIl!"},
		{"wrong_length", base58.Encode([]byte{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBase58(tt.secret)
			if !errors.Is(err, config.ErrInvalidSecret) {
				t.Errorf("error = %v, want ErrInvalidSecret", err)
			}
		})
	}
}

func TestFromJSONArray_RoundTrip(t *testing.T) {
	kp := generateKeypair(t)

	arr, err := kp.SecretJSONArray()
	if err != nil {
		t.Fatalf("SecretJSONArray() error = %v", err)
	}

	loaded, err := FromJSONArray(arr)
	if err != nil {
		t.Fatalf("FromJSONArray() error = %v", err)
	}
	if loaded.Address() != kp.Address() {
		t.Errorf("address = %s, want %s", loaded.Address(), kp.Address())
	}
}

func TestFromJSONArray_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not_json", "hello"},
		{"out_of_range", "[300,1,2]"},
		{"negative", "[-1,0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSONArray(tt.data)
			if !errors.Is(err, config.ErrInvalidSecret) {
				t.Errorf("error = %v, want ErrInvalidSecret", err)
			}
		})
	}
}

func TestFromFile_SniffsFormat(t *testing.T) {
	kp := generateKeypair(t)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "key.json")
	arr, err := kp.SecretJSONArray()
	if err != nil {
		t.Fatalf("SecretJSONArray() error = %v", err)
	}
	if err := os.WriteFile(jsonPath, []byte(arr+"\n"), 0o600); err != nil {
		t.Fatalf("write json key: %v", err)
	}

	b58Path := filepath.Join(dir, "key.b58")
	if err := os.WriteFile(b58Path, []byte(kp.SecretBase58()+"\n"), 0o600); err != nil {
		t.Fatalf("write base58 key: %v", err)
	}

	for _, path := range []string{jsonPath, b58Path} {
		loaded, err := FromFile(path)
		if err != nil {
			t.Fatalf("FromFile(%s) error = %v", path, err)
		}
		if loaded.Address() != kp.Address() {
			t.Errorf("FromFile(%s) address = %s, want %s", path, loaded.Address(), kp.Address())
		}
	}
}

func TestLoad_Precedence(t *testing.T) {
	kp := generateKeypair(t)

	// Raw secret wins even when a file path is also set.
	loaded, err := Load(kp.SecretBase58(), "/does/not/exist")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Address() != kp.Address() {
		t.Errorf("address = %s, want %s", loaded.Address(), kp.Address())
	}
}

func TestLoad_JSONSecret(t *testing.T) {
	kp := generateKeypair(t)

	arr, err := kp.SecretJSONArray()
	if err != nil {
		t.Fatalf("SecretJSONArray() error = %v", err)
	}

	loaded, err := Load(arr, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Address() != kp.Address() {
		t.Errorf("address = %s, want %s", loaded.Address(), kp.Address())
	}
}

func TestLoad_NothingProvided(t *testing.T) {
	_, err := Load("", "")
	if !errors.Is(err, config.ErrNoSecretKey) {
		t.Fatalf("error = %v, want ErrNoSecretKey", err)
	}
}
