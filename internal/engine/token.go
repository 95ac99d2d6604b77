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

// RunToken executes pending SPL token transfers for one mint, with the same
// batching, resumption and failure semantics as RunNative. The destination
// associated account is created in the same transaction when absent, paid by
// the sender.
func (e *Engine) RunToken(
	ctx context.Context,
	signer wallet.Keypair,
	mint string,
	recs []models.TransferRecord,
	batchSize int,
	save SaveFunc,
) (*models.BatchReport, error) {
	batchSize = NormalizeBatchSize(batchSize)
	start := time.Now()

	// Locate the sender's holding of this mint; it tells us the token
	// program, decimals, source account and available balance.
	inv, err := e.Inventory(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("inventory sender: %w", err)
	}

	var holding *models.TokenHolding
	for i := range inv.Holdings {
		if inv.Holdings[i].Mint == mint {
			holding = &inv.Holdings[i]
			break
		}
	}
	if holding == nil {
		return nil, fmt.Errorf("%w: sender holds no balance of mint %s", config.ErrInsufficientBalance, mint)
	}

	// Pending set and pre-flight against the sender's token balance.
	var pending []int
	var totalRaw uint64
	for i, r := range recs {
		if r.Completed {
			continue
		}
		raw, err := ToRaw(r.Amount, holding.Decimals)
		if err != nil {
			return nil, fmt.Errorf("record %d amount: %w", i+1, err)
		}
		pending = append(pending, i)
		totalRaw += raw
	}

	report := &models.BatchReport{Total: len(pending)}
	if len(pending) == 0 {
		slog.Info("no pending token transfers, nothing to do", "mint", mint, "records", len(recs))
		return report, nil
	}

	if totalRaw > holding.RawAmount {
		return nil, fmt.Errorf("%w: need %d raw units of %s, have %d",
			config.ErrInsufficientBalance, totalRaw, mint, holding.RawAmount)
	}

	// Fee budget: every transfer pays the base fee; assume worst case that
	// every destination account needs creation.
	feeBudget := uint64(len(pending))*e.BaseFee + uint64(len(pending))*e.ATARent
	if inv.NativeLamports < uint64(len(pending))*e.BaseFee {
		return nil, fmt.Errorf("%w: need at least %d lamports for fees, have %d",
			config.ErrInsufficientBalance, uint64(len(pending))*e.BaseFee, inv.NativeLamports)
	}
	if inv.NativeLamports < feeBudget {
		slog.Warn("native balance may not cover account creation for all recipients",
			"balance", inv.NativeLamports,
			"worstCase", feeBudget,
		)
	}

	tokenProgram, err := tx.PublicKeyFromBase58(holding.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("parse token program: %w", err)
	}
	mintKey, err := tx.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	sourceATA, err := tx.PublicKeyFromBase58(holding.Account)
	if err != nil {
		return nil, fmt.Errorf("parse source token account: %w", err)
	}

	batches := partitionIndexes(pending, batchSize)
	report.Batches = len(batches)

	slog.Info("token batch transfer starting",
		"sender", signer.Address(),
		"mint", mint,
		"pending", len(pending),
		"batchSize", batchSize,
		"batches", len(batches),
		"totalRaw", totalRaw,
	)

	for bi, batch := range batches {
		slog.Info("batch starting", "batch", bi+1, "of", len(batches), "items", len(batch))

		for _, idx := range batch {
			if err := ctx.Err(); err != nil {
				slog.Warn("token batch transfer cancelled", "error", err)
				return report, nil
			}

			rec := &recs[idx]
			if e.sendToken(ctx, signer, tokenProgram, mintKey, sourceATA, holding.Decimals, rec) {
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

	slog.Info("token batch transfer complete",
		"mint", mint,
		"succeeded", report.Succeeded,
		"total", report.Total,
		"failed", report.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return report, nil
}

// sendToken submits one token transfer, creating the destination associated
// account in the same transaction when it does not exist yet.
func (e *Engine) sendToken(
	ctx context.Context,
	signer wallet.Keypair,
	tokenProgram, mintKey, sourceATA tx.PublicKey,
	decimals int,
	rec *models.TransferRecord,
) bool {
	dest, err := tx.PublicKeyFromBase58(rec.Address)
	if err != nil {
		slog.Error("token transfer skipped: invalid destination", "address", rec.Address, "error", err)
		return false
	}

	raw, err := ToRaw(rec.Amount, decimals)
	if err != nil {
		slog.Error("token transfer skipped: invalid amount", "address", rec.Address, "error", err)
		return false
	}

	destATA, err := tx.DeriveATA(dest, mintKey, tokenProgram)
	if err != nil {
		slog.Error("token transfer skipped: derive destination account", "address", rec.Address, "error", err)
		return false
	}

	exists, _, err := e.Client.GetAccountInfo(ctx, destATA.ToBase58())
	if err != nil {
		slog.Error("token transfer failed: check destination account", "address", rec.Address, "error", err)
		return false
	}

	var instructions []tx.Instruction
	if !exists {
		instructions = append(instructions, tx.NewCreateATA(signer.PublicKey, destATA, dest, mintKey, tokenProgram))
	}
	instructions = append(instructions, tx.NewTokenTransfer(tokenProgram, sourceATA, destATA, signer.PublicKey, raw))

	signature, slot, err := e.Submit(ctx, signer, instructions)
	if err != nil {
		slog.Error("token transfer failed",
			"address", rec.Address,
			"mint", mintKey.ToBase58(),
			"amount", rec.Amount,
			"error", err,
		)
		if signature != "" {
			e.record(models.HistoryEntry{
				Operation:   "token_transfer",
				Signature:   signature,
				Mint:        mintKey.ToBase58(),
				Amount:      fmt.Sprintf("%d", raw),
				FromAddress: signer.Address(),
				ToAddress:   rec.Address,
				Status:      "pending",
			})
		}
		return false
	}

	e.record(models.HistoryEntry{
		Operation:   "token_transfer",
		Signature:   signature,
		Mint:        mintKey.ToBase58(),
		Amount:      fmt.Sprintf("%d", raw),
		FromAddress: signer.Address(),
		ToAddress:   rec.Address,
		Status:      "confirmed",
	})

	slog.Info("token transfer confirmed",
		"address", rec.Address,
		"amount", rec.Amount,
		"createdAccount", !exists,
		"signature", signature,
		"slot", slot,
	)
	return true
}
