package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/crypto/scrypt"

	"github.com/Fantasim/solbatch/internal/config"
)

// Encrypted file layout: magic (8) || version (1) || salt (16) || nonce (12) || ciphertext.
const (
	cryptMagic   = "SOLBATCH"
	cryptVersion = 1
	saltSize     = 16
	keySize      = 32
)

// scrypt parameters. N=2^15 keeps derivation around 100ms on commodity hardware.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// EncryptFile encrypts inPath with a passphrase-derived key and writes the
// result to outPath. The plaintext file is left untouched.
func EncryptFile(inPath, outPath, passphrase string) error {
	plaintext, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input file %q: %w", inPath, err)
	}

	encrypted, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, encrypted, 0o600); err != nil {
		return fmt.Errorf("write encrypted file %q: %w", outPath, err)
	}

	slog.Info("file encrypted",
		"input", inPath,
		"output", outPath,
		"plaintextBytes", len(plaintext),
	)
	return nil
}

// DecryptFile decrypts inPath and writes the plaintext to outPath.
func DecryptFile(inPath, outPath, passphrase string) error {
	encrypted, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read encrypted file %q: %w", inPath, err)
	}

	plaintext, err := Decrypt(encrypted, passphrase)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("write decrypted file %q: %w", outPath, err)
	}

	slog.Info("file decrypted",
		"input", inPath,
		"output", outPath,
	)
	return nil
}

// Encrypt seals data with scrypt + AES-256-GCM under a random salt and nonce.
func Encrypt(data []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := deriveCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(cryptMagic)+1+saltSize+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, cryptMagic...)
	out = append(out, cryptVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, data, nil)

	return out, nil
}

// Decrypt reverses Encrypt. A wrong passphrase or tampered file surfaces as
// ErrBadPassphrase (GCM authentication failure is indistinguishable from both).
func Decrypt(data []byte, passphrase string) ([]byte, error) {
	header := len(cryptMagic) + 1 + saltSize
	if len(data) < header {
		return nil, fmt.Errorf("%w: file too short", config.ErrBadPassphrase)
	}
	if string(data[:len(cryptMagic)]) != cryptMagic {
		return nil, fmt.Errorf("%w: bad magic", config.ErrBadPassphrase)
	}
	if data[len(cryptMagic)] != cryptVersion {
		return nil, fmt.Errorf("%w: version %d", config.ErrUnknownCryptboxVersion, data[len(cryptMagic)])
	}

	salt := data[len(cryptMagic)+1 : header]

	gcm, err := deriveCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	if len(data) < header+gcm.NonceSize() {
		return nil, fmt.Errorf("%w: file too short for nonce", config.ErrBadPassphrase)
	}
	nonce := data[header : header+gcm.NonceSize()]
	ciphertext := data[header+gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, config.ErrBadPassphrase
	}

	return plaintext, nil
}

// deriveCipher builds the AES-GCM AEAD from a passphrase and salt.
func deriveCipher(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return gcm, nil
}
