package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/tx"
	"github.com/Fantasim/solbatch/internal/wallet"
)

// SaveFunc persists the full record list after a mutation. A write failure
// is non-fatal to the current run (progress loss causes re-work next run),
// so implementations return the error for logging rather than aborting.
type SaveFunc func(recs []models.TransferRecord) error

// RunNative executes pending native transfers in file order, partitioned
// into fixed-size batches. Batches exist for reporting and pacing only: a
// failure on one record never aborts the batch or the run. Each success
// marks its record complete by row index and persists the whole snapshot
// immediately (at-least-once across a crash, never at-most-once).
func (e *Engine) RunNative(
	ctx context.Context,
	signer wallet.Keypair,
	recs []models.TransferRecord,
	batchSize int,
	save SaveFunc,
) (*models.BatchReport, error) {
	batchSize = NormalizeBatchSize(batchSize)
	start := time.Now()

	// Pending set: incomplete records, in file order.
	var pending []int
	var totalLamports uint64
	for i, r := range recs {
		if r.Completed {
			continue
		}
		lamports, err := SOLToLamports(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("record %d amount: %w", i+1, err)
		}
		pending = append(pending, i)
		totalLamports += lamports + e.BaseFee
	}

	report := &models.BatchReport{Total: len(pending)}
	if len(pending) == 0 {
		slog.Info("no pending transfers, nothing to do", "records", len(recs))
		return report, nil
	}

	// Pre-flight: total pending amount + fees against the sender's balance.
	// Insufficient balance aborts the entire run before any submission.
	balance, err := e.Client.GetBalance(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("get sender balance: %w", err)
	}
	if balance < totalLamports {
		return nil, fmt.Errorf("%w: need %d lamports (incl. fees), have %d",
			config.ErrInsufficientBalance, totalLamports, balance)
	}

	batches := partitionIndexes(pending, batchSize)
	report.Batches = len(batches)

	slog.Info("batch transfer starting",
		"sender", signer.Address(),
		"pending", len(pending),
		"batchSize", batchSize,
		"batches", len(batches),
		"totalLamports", totalLamports,
	)

	for bi, batch := range batches {
		slog.Info("batch starting", "batch", bi+1, "of", len(batches), "items", len(batch))

		for _, idx := range batch {
			if err := ctx.Err(); err != nil {
				slog.Warn("batch transfer cancelled", "error", err)
				return report, nil
			}

			rec := &recs[idx]
			if e.sendNative(ctx, signer, rec) {
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

	slog.Info("batch transfer complete",
		"succeeded", report.Succeeded,
		"total", report.Total,
		"failed", report.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return report, nil
}

// sendNative submits one native transfer and reports success. Failures are
// logged with the offending address and never propagate.
func (e *Engine) sendNative(ctx context.Context, signer wallet.Keypair, rec *models.TransferRecord) bool {
	dest, err := tx.PublicKeyFromBase58(rec.Address)
	if err != nil {
		slog.Error("transfer skipped: invalid destination", "address", rec.Address, "error", err)
		return false
	}

	lamports, err := SOLToLamports(rec.Amount)
	if err != nil {
		slog.Error("transfer skipped: invalid amount", "address", rec.Address, "error", err)
		return false
	}

	ix := tx.NewSystemTransfer(signer.PublicKey, dest, lamports)

	signature, slot, err := e.Submit(ctx, signer, []tx.Instruction{ix})
	if err != nil {
		slog.Error("transfer failed",
			"address", rec.Address,
			"amount", rec.Amount,
			"error", err,
		)
		if signature != "" {
			// Broadcast but unconfirmed, record as pending for reconciliation.
			e.record(models.HistoryEntry{
				Operation:   "transfer",
				Signature:   signature,
				Amount:      fmt.Sprintf("%d", lamports),
				FromAddress: signer.Address(),
				ToAddress:   rec.Address,
				Status:      "pending",
			})
		}
		return false
	}

	e.record(models.HistoryEntry{
		Operation:   "transfer",
		Signature:   signature,
		Amount:      fmt.Sprintf("%d", lamports),
		FromAddress: signer.Address(),
		ToAddress:   rec.Address,
		Status:      "confirmed",
	})

	slog.Info("transfer confirmed",
		"address", rec.Address,
		"amount", rec.Amount,
		"signature", signature,
		"slot", slot,
	)
	return true
}
