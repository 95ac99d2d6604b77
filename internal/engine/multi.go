package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/tx"
	"github.com/Fantasim/solbatch/internal/wallet"
)

// SaveInstructionsFunc persists the instruction list after a mutation.
type SaveInstructionsFunc func(recs []models.TransferInstruction) error

// RunInstructions executes a many-to-many transfer-instructions file: each
// row names its own sender, whose key is resolved from the wallet records.
// There is no global pre-flight (senders differ per row); each row checks
// its own sender balance before submitting. Rows with an unknown or keyless
// sender fail individually and never stop the run.
func (e *Engine) RunInstructions(
	ctx context.Context,
	wallets []models.WalletRecord,
	recs []models.TransferInstruction,
	batchSize int,
	save SaveInstructionsFunc,
) (*models.BatchReport, error) {
	batchSize = NormalizeBatchSize(batchSize)
	start := time.Now()

	byAddress := make(map[string]models.WalletRecord, len(wallets))
	for _, w := range wallets {
		byAddress[w.Address] = w
	}

	var pending []int
	for i, r := range recs {
		if !r.Completed {
			pending = append(pending, i)
		}
	}

	report := &models.BatchReport{Total: len(pending)}
	if len(pending) == 0 {
		slog.Info("no pending instructions, nothing to do", "records", len(recs))
		return report, nil
	}

	batches := partitionIndexes(pending, batchSize)
	report.Batches = len(batches)

	slog.Info("instruction run starting",
		"pending", len(pending),
		"batchSize", batchSize,
		"batches", len(batches),
	)

	for bi, batch := range batches {
		slog.Info("batch starting", "batch", bi+1, "of", len(batches), "items", len(batch))

		for _, idx := range batch {
			if err := ctx.Err(); err != nil {
				slog.Warn("instruction run cancelled", "error", err)
				return report, nil
			}

			rec := &recs[idx]
			if e.sendInstruction(ctx, byAddress, rec) {
				rec.Completed = true
				report.Succeeded++
				if save != nil {
					if err := save(recs); err != nil {
						slog.Error("progress snapshot write failed, continuing",
							"record", idx+1,
							"error", err,
						)
					}
				}
			} else {
				report.Failed++
			}
		}
	}

	slog.Info("instruction run complete",
		"succeeded", report.Succeeded,
		"total", report.Total,
		"failed", report.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return report, nil
}

// sendInstruction resolves the row's sender key and submits one native transfer.
func (e *Engine) sendInstruction(ctx context.Context, byAddress map[string]models.WalletRecord, rec *models.TransferInstruction) bool {
	w, ok := byAddress[rec.From]
	if !ok {
		slog.Error("instruction skipped: sender not in wallet file", "from", rec.From)
		return false
	}

	signer, err := keypairFor(w)
	if err != nil {
		slog.Error("instruction skipped: sender key unavailable", "from", rec.From, "error", err)
		return false
	}
	if signer.Address() != rec.From {
		slog.Error("instruction skipped: derived address mismatch",
			"expected", rec.From,
			"derived", signer.Address(),
		)
		return false
	}

	dest, err := tx.PublicKeyFromBase58(rec.To)
	if err != nil {
		slog.Error("instruction skipped: invalid destination", "to", rec.To, "error", err)
		return false
	}

	lamports, err := SOLToLamports(rec.Amount)
	if err != nil {
		slog.Error("instruction skipped: invalid amount", "from", rec.From, "error", err)
		return false
	}

	// Per-row pre-flight: this sender must cover amount + fee.
	balance, err := e.Client.GetBalance(ctx, rec.From)
	if err != nil {
		slog.Error("instruction failed: get sender balance", "from", rec.From, "error", err)
		return false
	}
	if balance < lamports+e.BaseFee {
		slog.Error("instruction skipped: insufficient sender balance",
			"from", rec.From,
			"balance", balance,
			"required", lamports+e.BaseFee,
		)
		return false
	}

	ix := tx.NewSystemTransfer(signer.PublicKey, dest, lamports)
	signature, slot, err := e.Submit(ctx, signer, []tx.Instruction{ix})
	if err != nil {
		slog.Error("instruction failed",
			"from", rec.From,
			"to", rec.To,
			"amount", rec.Amount,
			"error", err,
		)
		return false
	}

	e.record(models.HistoryEntry{
		Operation:   "transfer",
		Signature:   signature,
		Amount:      fmt.Sprintf("%d", lamports),
		FromAddress: rec.From,
		ToAddress:   rec.To,
		Status:      "confirmed",
	})

	slog.Info("instruction confirmed",
		"from", rec.From,
		"to", rec.To,
		"amount", rec.Amount,
		"signature", signature,
		"slot", slot,
	)
	return true
}

// keypairFor resolves a wallet record's keypair, trying the base58 column
// first and the JSON-array column second.
func keypairFor(w models.WalletRecord) (wallet.Keypair, error) {
	if w.SecretBase58 != "" {
		return wallet.FromBase58(w.SecretBase58)
	}
	if w.SecretJSON != "" {
		return wallet.FromJSONArray(w.SecretJSON)
	}
	return wallet.Keypair{}, fmt.Errorf("wallet %s: no secret in either encoding", w.Address)
}
