package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/tx"
)

// Keypair is a loaded signing identity.
type Keypair struct {
	PublicKey  tx.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Address returns the base58 public key.
func (k Keypair) Address() string {
	return k.PublicKey.ToBase58()
}

// Signers returns the single-entry signer map used by transaction building.
func (k Keypair) Signers() map[tx.PublicKey]ed25519.PrivateKey {
	return map[tx.PublicKey]ed25519.PrivateKey{k.PublicKey: k.PrivateKey}
}

// FromBase58 decodes a base58 secret key. Accepts the standard 64-byte
// secret (seed || public key) or a bare 32-byte seed.
func FromBase58(secret string) (Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: decode base58: %s", config.ErrInvalidSecret, err)
	}
	return fromRawSecret(raw)
}

// FromJSONArray decodes a solana-keygen style JSON byte array, e.g. "[12,34,...]".
func FromJSONArray(data string) (Keypair, error) {
	var nums []int
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &nums); err != nil {
		return Keypair{}, fmt.Errorf("%w: decode JSON byte array: %s", config.ErrInvalidSecret, err)
	}

	raw := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return Keypair{}, fmt.Errorf("%w: byte value %d out of range at index %d", config.ErrInvalidSecret, n, i)
		}
		raw[i] = byte(n)
	}
	return fromRawSecret(raw)
}

// FromFile reads a keypair file. The file may contain a JSON byte array
// (solana-keygen format) or a base58 secret on a single line.
func FromFile(path string) (Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair file %q: %w", path, err)
	}

	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, "[") {
		return FromJSONArray(content)
	}
	return FromBase58(content)
}

// Load resolves a keypair from raw secret material or a keypair file path.
// Exactly the material that is set is used; secret takes precedence. Secret
// material may be base58 or a JSON byte array.
func Load(secret, keyFile string) (Keypair, error) {
	switch {
	case secret != "":
		if strings.HasPrefix(strings.TrimSpace(secret), "[") {
			return FromJSONArray(secret)
		}
		return FromBase58(secret)
	case keyFile != "":
		return FromFile(keyFile)
	default:
		return Keypair{}, config.ErrNoSecretKey
	}
}

// fromRawSecret builds a Keypair from 64-byte (secret) or 32-byte (seed) material.
func fromRawSecret(raw []byte) (Keypair, error) {
	var priv ed25519.PrivateKey

	switch len(raw) {
	case ed25519.PrivateKeySize: // 64
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize: // 32
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return Keypair{}, fmt.Errorf("%w: secret key length %d, expected 32 or 64", config.ErrInvalidSecret, len(raw))
	}

	pub := priv.Public().(ed25519.PublicKey)

	var pk tx.PublicKey
	copy(pk[:], pub)

	slog.Debug("keypair loaded", "address", pk.ToBase58())

	return Keypair{PublicKey: pk, PrivateKey: priv}, nil
}

// SecretBase58 returns the 64-byte secret in base58 form.
func (k Keypair) SecretBase58() string {
	return base58.Encode(k.PrivateKey)
}

// SecretJSONArray returns the 64-byte secret as a solana-keygen style JSON array.
// encoding/json would base64 a []byte, so the array is built from ints.
func (k Keypair) SecretJSONArray() (string, error) {
	nums := make([]int, len(k.PrivateKey))
	for i, b := range k.PrivateKey {
		nums[i] = int(b)
	}
	out, err := json.Marshal(nums)
	if err != nil {
		return "", fmt.Errorf("marshal secret key: %w", err)
	}
	return string(out), nil
}
