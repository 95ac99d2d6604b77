package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/tyler-smith/go-bip39"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/tx"
)

const (
	slip10Curve    = "ed25519 seed"
	hardenedOffset = uint32(0x80000000)
)

// NewMnemonic generates a fresh BIP-39 mnemonic with the given word count (12 or 24).
func NewMnemonic(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", fmt.Errorf("%w: word count must be 12 or 24, got %d", config.ErrInvalidMnemonic, words)
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}

	slog.Info("mnemonic generated", "words", words)
	return mnemonic, nil
}

// FromMnemonic derives the keypair at m/44'/501'/index'/0' (all hardened,
// Phantom/Solflare standard) using SLIP-10 ed25519 derivation.
func FromMnemonic(mnemonic string, index uint32) (Keypair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return Keypair{}, config.ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")

	// SLIP-10 master key: HMAC-SHA512(Key="ed25519 seed", Data=BIP39 seed)
	mac := hmac.New(sha512.New, []byte(slip10Curve))
	mac.Write(seed)
	I := mac.Sum(nil)

	current := slip10Key{
		key:       I[:32],
		chainCode: I[32:],
	}

	// Derive path m/44'/501'/index'/0'
	segments := []uint32{
		44 + hardenedOffset,
		501 + hardenedOffset,
		index + hardenedOffset,
		0 + hardenedOffset,
	}

	for _, seg := range segments {
		current = slip10DeriveChild(current, seg)
	}

	priv := ed25519.NewKeyFromSeed(current.key)
	pub := priv.Public().(ed25519.PublicKey)

	var pk tx.PublicKey
	copy(pk[:], pub)

	slog.Debug("derived keypair from mnemonic",
		"index", index,
		"path", fmt.Sprintf("m/44'/501'/%d'/0'", index),
		"address", pk.ToBase58(),
	)

	return Keypair{PublicKey: pk, PrivateKey: priv}, nil
}

// slip10Key holds a SLIP-10 ed25519 key pair (private key seed + chain code).
type slip10Key struct {
	key       []byte // 32 bytes, raw ed25519 seed
	chainCode []byte // 32 bytes
}

// slip10DeriveChild performs SLIP-10 hardened child key derivation for ed25519.
// data = 0x00 || parent_key (32 bytes) || index (4 bytes big-endian)
func slip10DeriveChild(parent slip10Key, index uint32) slip10Key {
	data := make([]byte, 0, 37) // 1 + 32 + 4
	data = append(data, 0x00)
	data = append(data, parent.key...)

	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], index)
	data = append(data, indexBytes[:]...)

	mac := hmac.New(sha512.New, parent.chainCode)
	mac.Write(data)
	I := mac.Sum(nil)

	return slip10Key{
		key:       I[:32],
		chainCode: I[32:],
	}
}
