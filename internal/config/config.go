package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	RPCURLs   string `envconfig:"SOLBATCH_RPC_URLS" default:"https://api.mainnet-beta.solana.com"`
	LogLevel  string `envconfig:"SOLBATCH_LOG_LEVEL" default:"info"`
	LogDir    string `envconfig:"SOLBATCH_LOG_DIR" default:"./logs"`
	OutputDir string `envconfig:"SOLBATCH_OUTPUT_DIR" default:"./output"`

	HistoryDBPath string `envconfig:"SOLBATCH_HISTORY_DB" default:"./data/solbatch.sqlite"`

	RPCRateLimit int `envconfig:"SOLBATCH_RPC_RATE_LIMIT" default:"10"`

	// Pre-flight cost estimates. ATARentLamports is a heuristic; the live
	// value comes from getMinimumBalanceForRentExemption.
	BaseFeeLamports      uint64 `envconfig:"SOLBATCH_BASE_FEE_LAMPORTS" default:"5000"`
	ATARentLamports      uint64 `envconfig:"SOLBATCH_ATA_RENT_LAMPORTS" default:"2039280"`
	SafetyMarginLamports uint64 `envconfig:"SOLBATCH_SAFETY_MARGIN_LAMPORTS" default:"10000"`
	MinSweepLamports     uint64 `envconfig:"SOLBATCH_MIN_SWEEP_LAMPORTS" default:"5000"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars, so real environment
	// variables take precedence over .env values.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if len(c.RPCURLList()) == 0 {
		return fmt.Errorf("%w: at least one RPC URL is required", ErrInvalidConfig)
	}
	if c.RPCRateLimit < 1 {
		return fmt.Errorf("%w: RPC rate limit must be >= 1, got %d", ErrInvalidConfig, c.RPCRateLimit)
	}
	if c.BaseFeeLamports == 0 {
		return fmt.Errorf("%w: base fee must be > 0", ErrInvalidConfig)
	}
	return nil
}

// RPCURLList splits the comma-separated RPC URL config into a slice.
func (c *Config) RPCURLList() []string {
	var urls []string
	for _, u := range strings.Split(c.RPCURLs, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
