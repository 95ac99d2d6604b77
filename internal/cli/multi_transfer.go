package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/records"
)

var (
	multiWalletFile string
	multiBatchSize  int

	multiTransferCmd = &cobra.Command{
		Use:     "multi-transfer FILE",
		Short:   "Many-to-many native transfers from an instructions file",
		Long:    "Execute transfer instructions (columns: from, to, amount) where each row names its own sender. Sender keys are resolved from the wallet file; rows whose sender is unknown or keyless fail individually.",
		Args:    cobra.ExactArgs(1),
		Example: `  solbatch multi-transfer moves.csv --wallets wallets.csv`,
		RunE:    runMultiTransfer,
	}
)

func init() {
	multiTransferCmd.Flags().StringVar(&multiWalletFile, "wallets", "", "wallet file with sender secrets (required)")
	multiTransferCmd.Flags().IntVar(&multiBatchSize, "batch-size", 10, "records per reporting batch")
	multiTransferCmd.MarkFlagRequired("wallets")
	rootCmd.AddCommand(multiTransferCmd)
}

func runMultiTransfer(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	log := registry.For(inputPath)

	wallets, err := records.LoadWalletRecords(multiWalletFile)
	if err != nil {
		return fmt.Errorf("load wallet file: %w", err)
	}

	recs, progressPath, err := resumeInstructions(inputPath)
	if err != nil {
		return err
	}

	log.Info("multi transfer run starting",
		"input", inputPath,
		"instructions", len(recs),
		"wallets", len(wallets),
	)

	ctx, cancel := signalContext()
	defer cancel()

	report, err := eng.RunInstructions(ctx, wallets, recs, multiBatchSize, func(snapshot []models.TransferInstruction) error {
		return records.SaveInstructionProgress(progressPath, snapshot)
	})
	if err != nil {
		return err
	}

	log.Info("multi transfer run finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"total", report.Total,
	)

	header := []string{"from", "to", "amount", "completed"}
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{r.From, r.To, r.Amount.String(), strconv.FormatBool(r.Completed)}
	}
	if _, err := records.WriteResultCSV(cfg.OutputDir, "multi_transfer", header, rows); err != nil {
		log.Error("result file write failed", "error", err)
	}

	fmt.Printf("multi transfer complete: %d/%d succeeded (%d failed)\n", report.Succeeded, report.Total, report.Failed)
	return nil
}
