package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/drain"
	"github.com/Fantasim/solbatch/internal/engine"
	"github.com/Fantasim/solbatch/internal/records"
)

var (
	batchDrainDestFile   string
	batchDrainIndices    []int
	batchDrainInclude    []string
	batchDrainExclude    []string
	batchDrainMinBalance string
	batchDrainKeepSOL    string
	batchDrainDryRun     bool

	batchDrainCmd = &cobra.Command{
		Use:   "batch-drain WALLETS",
		Short: "Drain many wallets to positionally paired destinations",
		Long:  "Drain each wallet in the wallet file into the destination at the same position in the destinations file. Failures are written to a timestamped CSV whose index column feeds --indices for a retry run.",
		Args:  cobra.ExactArgs(1),
		Example: `  solbatch batch-drain wallets.csv --dests destinations.txt
  solbatch batch-drain wallets.csv --dests destinations.txt --indices 0,2,7`,
		RunE: runBatchDrain,
	}
)

func init() {
	batchDrainCmd.Flags().StringVar(&batchDrainDestFile, "dests", "", "destination addresses file (required)")
	batchDrainCmd.Flags().IntSliceVar(&batchDrainIndices, "indices", nil, "only run these zero-based pair indices")
	batchDrainCmd.Flags().StringSliceVar(&batchDrainInclude, "include-mints", nil, "only drain these mints")
	batchDrainCmd.Flags().StringSliceVar(&batchDrainExclude, "exclude-mints", nil, "never drain these mints")
	batchDrainCmd.Flags().StringVar(&batchDrainMinBalance, "min-balance", "0", "skip holdings below this amount (UI units)")
	batchDrainCmd.Flags().StringVar(&batchDrainKeepSOL, "keep-sol", "0", "SOL to leave in each wallet")
	batchDrainCmd.Flags().BoolVar(&batchDrainDryRun, "dry-run", false, "preview only, no on-chain effect")
	batchDrainCmd.MarkFlagRequired("dests")
	rootCmd.AddCommand(batchDrainCmd)
}

func runBatchDrain(cmd *cobra.Command, args []string) error {
	walletPath := args[0]
	log := registry.For(walletPath)

	sources, err := records.LoadWalletRecords(walletPath)
	if err != nil {
		return fmt.Errorf("load wallet file: %w", err)
	}

	dests, err := records.LoadDestinations(batchDrainDestFile)
	if err != nil {
		return fmt.Errorf("load destinations file: %w", err)
	}

	minBalance, err := decimal.NewFromString(batchDrainMinBalance)
	if err != nil {
		return fmt.Errorf("parse --min-balance: %w", err)
	}
	keepSOL, err := decimal.NewFromString(batchDrainKeepSOL)
	if err != nil {
		return fmt.Errorf("parse --keep-sol: %w", err)
	}
	keepLamports, err := engine.SOLToLamports(keepSOL)
	if err != nil {
		return fmt.Errorf("parse --keep-sol: %w", err)
	}

	log.Info("batch drain starting",
		"wallets", len(sources),
		"destinations", len(dests),
		"indices", batchDrainIndices,
		"dryRun", batchDrainDryRun,
	)

	ctx, cancel := signalContext()
	defer cancel()

	coord := &drain.Coordinator{
		Orchestrator: &drain.Orchestrator{Engine: eng},
	}
	failed, err := coord.Run(ctx, sources, dests, drain.BatchOptions{
		Template: drain.Options{
			IncludeMints: batchDrainInclude,
			ExcludeMints: batchDrainExclude,
			MinBalance:   minBalance,
			KeepLamports: keepLamports,
			DryRun:       batchDrainDryRun,
		},
		Indices:   batchDrainIndices,
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		return err
	}

	log.Info("batch drain finished", "failedPairs", len(failed))
	fmt.Printf("batch drain complete: %d failed pairs\n", len(failed))
	return nil
}
