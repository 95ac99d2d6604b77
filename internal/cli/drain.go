package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/drain"
	"github.com/Fantasim/solbatch/internal/engine"
)

var (
	drainKey        string
	drainKeyFile    string
	drainDest       string
	drainInclude    []string
	drainExclude    []string
	drainMinBalance string
	drainKeepSOL    string
	drainDryRun     bool
	drainResultFile string

	drainCmd = &cobra.Command{
		Use:   "drain",
		Short: "Migrate a wallet's full holdings to a destination",
		Long:  "Drain a wallet: unwrap wrapped SOL, transfer every token holding, close emptied accounts to reclaim rent, then sweep the remaining native balance. Individual failures are recorded and the sequence continues.",
		Example: `  solbatch drain --key-file wallet.json --dest <address>
  solbatch drain --key <base58> --dest <address> --keep-sol 0.01 --dry-run`,
		RunE: runDrain,
	}
)

func init() {
	drainCmd.Flags().StringVar(&drainKey, "key", "", "wallet secret key (base58 or JSON array)")
	drainCmd.Flags().StringVar(&drainKeyFile, "key-file", "", "path to wallet key file")
	drainCmd.Flags().StringVar(&drainDest, "dest", "", "destination address (required)")
	drainCmd.Flags().StringSliceVar(&drainInclude, "include-mints", nil, "only drain these mints")
	drainCmd.Flags().StringSliceVar(&drainExclude, "exclude-mints", nil, "never drain these mints")
	drainCmd.Flags().StringVar(&drainMinBalance, "min-balance", "0", "skip holdings below this amount (UI units)")
	drainCmd.Flags().StringVar(&drainKeepSOL, "keep-sol", "0", "SOL to leave in the wallet")
	drainCmd.Flags().BoolVar(&drainDryRun, "dry-run", false, "preview only, no on-chain effect")
	drainCmd.Flags().StringVar(&drainResultFile, "result-file", "", "write the full result as JSON to this path")
	drainCmd.MarkFlagRequired("dest")
	rootCmd.AddCommand(drainCmd)
}

func runDrain(cmd *cobra.Command, args []string) error {
	opts, err := drainOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	orch := &drain.Orchestrator{Engine: eng}
	res, err := orch.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("drain complete: wallet %s, swept %s SOL, %d tokens transferred, %d accounts closed, %d errors\n",
		res.Wallet,
		engine.LamportsToSOL(res.TransferredNative).String(),
		len(res.TransferredTokens),
		res.AccountsClosed,
		len(res.Errors),
	)
	for _, e := range res.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	return nil
}

// drainOptions builds drain options from the command flags, shared with
// batch-drain as the per-pair template.
func drainOptions() (drain.Options, error) {
	minBalance, err := decimal.NewFromString(drainMinBalance)
	if err != nil {
		return drain.Options{}, fmt.Errorf("parse --min-balance: %w", err)
	}

	keepSOL, err := decimal.NewFromString(drainKeepSOL)
	if err != nil {
		return drain.Options{}, fmt.Errorf("parse --keep-sol: %w", err)
	}
	keepLamports, err := engine.SOLToLamports(keepSOL)
	if err != nil {
		return drain.Options{}, fmt.Errorf("parse --keep-sol: %w", err)
	}

	return drain.Options{
		SecretKey:    drainKey,
		KeyFile:      drainKeyFile,
		Destination:  drainDest,
		IncludeMints: drainInclude,
		ExcludeMints: drainExclude,
		MinBalance:   minBalance,
		KeepLamports: keepLamports,
		DryRun:       drainDryRun,
		ResultFile:   drainResultFile,
	}, nil
}
