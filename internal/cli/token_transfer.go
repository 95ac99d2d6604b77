package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/records"
	"github.com/Fantasim/solbatch/internal/wallet"
)

var (
	tokenTransferKey       string
	tokenTransferKeyFile   string
	tokenTransferMint      string
	tokenTransferBatchSize int

	tokenTransferCmd = &cobra.Command{
		Use:     "token-transfer FILE",
		Short:   "Batch SPL token transfers from a recipients file",
		Long:    "Send one SPL token to every address in a recipients file (columns: address, amount). Missing destination token accounts are created in the same transaction, paid by the sender.",
		Args:    cobra.ExactArgs(1),
		Example: `  solbatch token-transfer payouts.csv --mint EPjFW...TDt1v --key-file wallet.json`,
		RunE:    runTokenTransfer,
	}
)

func init() {
	tokenTransferCmd.Flags().StringVar(&tokenTransferKey, "key", "", "sender secret key (base58 or JSON array)")
	tokenTransferCmd.Flags().StringVar(&tokenTransferKeyFile, "key-file", "", "path to sender key file")
	tokenTransferCmd.Flags().StringVar(&tokenTransferMint, "mint", "", "token mint address (required)")
	tokenTransferCmd.Flags().IntVar(&tokenTransferBatchSize, "batch-size", 10, "records per reporting batch")
	tokenTransferCmd.MarkFlagRequired("mint")
	rootCmd.AddCommand(tokenTransferCmd)
}

func runTokenTransfer(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	log := registry.For(inputPath)

	signer, err := wallet.Load(tokenTransferKey, tokenTransferKeyFile)
	if err != nil {
		return fmt.Errorf("load sender key: %w", err)
	}

	recs, progressPath, err := resumeRecords(inputPath)
	if err != nil {
		return err
	}

	log.Info("token transfer run starting",
		"input", inputPath,
		"records", len(recs),
		"mint", tokenTransferMint,
		"sender", signer.Address(),
	)

	ctx, cancel := signalContext()
	defer cancel()

	report, err := eng.RunToken(ctx, signer, tokenTransferMint, recs, tokenTransferBatchSize, func(snapshot []models.TransferRecord) error {
		return records.SaveProgress(progressPath, snapshot)
	})
	if err != nil {
		return err
	}

	log.Info("token transfer run finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"total", report.Total,
	)

	writeTransferResult("token_transfer", recs)
	fmt.Printf("token transfer complete: %d/%d succeeded (%d failed)\n", report.Succeeded, report.Total, report.Failed)
	return nil
}
