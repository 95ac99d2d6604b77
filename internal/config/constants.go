package config

import "time"

// Solana program IDs (mainnet and all clusters).
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	RentSysvarID             = "SysvarRent111111111111111111111111111111111"

	// Mint of the wrapped-native (wSOL) token.
	NativeMint = "So11111111111111111111111111111111111111112"
)

// Units and transaction limits.
const (
	LamportsPerSOL  = 1_000_000_000
	SOLDecimals     = 9
	MaxTxSize       = 1232 // IPv6 MTU minus headers; hard protocol limit
	MaxInstructions = 20
)

// Fees and rent. The ATA rent figure is a heuristic estimate used for
// pre-flight checks, not a protocol fact; override via SOLBATCH_ATA_RENT_LAMPORTS.
const (
	DefaultBaseFeeLamports      = 5_000
	DefaultATARentLamports      = 2_039_280 // rent-exempt minimum for a 165-byte token account
	DefaultSafetyMarginLamports = 10_000
	DefaultMinSweepLamports     = 5_000
	TokenAccountSize            = 165
)

// Confirmation polling.
const (
	ConfirmationTimeout      = 90 * time.Second
	ConfirmationPollInterval = 2 * time.Second
)

// Record Store file conventions.
const (
	ProgressFileSuffix = ".progress.json"
	InputLogSuffix     = ".log"
)

// Rate limiting (requests per second).
const (
	DefaultRPCRateLimit = 10
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "solbatch-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Output artifacts.
const (
	DefaultOutputDir = "./output"
)

// Database
const (
	DefaultHistoryDBPath = "./data/solbatch.sqlite"
)
