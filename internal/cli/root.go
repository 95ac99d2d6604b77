package cli

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/db"
	"github.com/Fantasim/solbatch/internal/engine"
	"github.com/Fantasim/solbatch/internal/logging"
	"github.com/Fantasim/solbatch/internal/rpc"
)

var (
	cfg       *config.Config
	logCloser io.Closer
	history   *db.DB
	eng       *engine.Engine
	registry  *logging.Registry

	rootCmd = &cobra.Command{
		Use:           "solbatch",
		Short:         "Batch operations for Solana wallets",
		Long:          "solbatch runs batch transfers, balance queries, wallet drains and wrapped-SOL operations against Solana, with resumable on-disk progress.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and wires the logger, history store, RPC client
// and engine shared by every subcommand.
func setup() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	logCloser, err = logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	registry = logging.NewRegistry(level)

	// History is bookkeeping: failure to open it degrades to a nil recorder.
	history, err = db.New(cfg.HistoryDBPath)
	if err != nil {
		slog.Warn("history database unavailable, submissions will not be recorded", "error", err)
		history = nil
	} else if err := history.RunMigrations(); err != nil {
		slog.Warn("history migrations failed, submissions will not be recorded", "error", err)
		history.Close()
		history = nil
	}

	client := rpc.NewHTTPClient(
		&http.Client{Timeout: 30 * time.Second},
		cfg.RPCURLList(),
		cfg.RPCRateLimit,
	)

	var recorder engine.HistoryRecorder
	if history != nil {
		recorder = history
	}
	eng = engine.New(client, recorder, cfg)

	return nil
}

func teardown() {
	if registry != nil {
		registry.Close()
	}
	if history != nil {
		history.Close()
	}
	if logCloser != nil {
		logCloser.Close()
	}
}
