package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/records"
	"github.com/Fantasim/solbatch/internal/wallet"
)

var (
	transferKey       string
	transferKeyFile   string
	transferBatchSize int

	transferCmd = &cobra.Command{
		Use:   "transfer FILE",
		Short: "Batch native transfers from a recipients file",
		Long:  "Send SOL to every address in a recipients file (columns: address, amount). Progress is snapshotted beside the input after every confirmed transfer, so an interrupted run resumes where it left off.",
		Args:  cobra.ExactArgs(1),
		Example: `  solbatch transfer payouts.csv --key-file wallet.json
  solbatch transfer payouts.csv --key <base58> --batch-size 25`,
		RunE: runTransfer,
	}
)

func init() {
	transferCmd.Flags().StringVar(&transferKey, "key", "", "sender secret key (base58 or JSON array)")
	transferCmd.Flags().StringVar(&transferKeyFile, "key-file", "", "path to sender key file")
	transferCmd.Flags().IntVar(&transferBatchSize, "batch-size", 10, "records per reporting batch")
	rootCmd.AddCommand(transferCmd)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	log := registry.For(inputPath)

	signer, err := wallet.Load(transferKey, transferKeyFile)
	if err != nil {
		return fmt.Errorf("load sender key: %w", err)
	}

	recs, progressPath, err := resumeRecords(inputPath)
	if err != nil {
		return err
	}

	log.Info("transfer run starting", "input", inputPath, "records", len(recs), "sender", signer.Address())

	ctx, cancel := signalContext()
	defer cancel()

	report, err := eng.RunNative(ctx, signer, recs, transferBatchSize, func(snapshot []models.TransferRecord) error {
		return records.SaveProgress(progressPath, snapshot)
	})
	if err != nil {
		return err
	}

	log.Info("transfer run finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"total", report.Total,
		"batches", report.Batches,
	)

	writeTransferResult("transfer", recs)
	fmt.Printf("transfer complete: %d/%d succeeded (%d failed)\n", report.Succeeded, report.Total, report.Failed)
	return nil
}
