package config

import "errors"

// Sentinel errors for internal use.
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	// Record Store
	ErrInputFileMissing  = errors.New("input file not found")
	ErrMalformedRow      = errors.New("malformed input row")
	ErrProgressCorrupted = errors.New("progress snapshot unparseable")

	// Keys
	ErrNoSecretKey     = errors.New("no private key available")
	ErrInvalidSecret   = errors.New("invalid secret key material")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// Engine
	ErrInsufficientBalance = errors.New("insufficient balance for pending transfers")
	ErrKeepExceedsBalance  = errors.New("keep amount exceeds current balance")

	// Transactions
	ErrTxTooLarge          = errors.New("transaction exceeds 1232 byte limit")
	ErrTxFailed            = errors.New("transaction failed on-chain")
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

	// Encryption
	ErrBadPassphrase          = errors.New("decryption failed: wrong passphrase or corrupted file")
	ErrUnknownCryptboxVersion = errors.New("unknown encrypted file version")
)
