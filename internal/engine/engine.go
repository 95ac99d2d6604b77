package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/rpc"
	"github.com/Fantasim/solbatch/internal/tx"
	"github.com/Fantasim/solbatch/internal/wallet"
)

// HistoryRecorder persists submissions to the local transaction history.
// A nil recorder disables history without changing engine behavior.
type HistoryRecorder interface {
	Record(entry models.HistoryEntry)
}

// Engine executes batch operations against the ledger, one submission in
// flight at a time. Sequential submission is deliberate: the RPC node gives
// no ordering guarantee for concurrent submissions from the same signer.
type Engine struct {
	Client  rpc.Client
	History HistoryRecorder

	// Pre-flight cost estimates, from configuration.
	BaseFee      uint64
	ATARent      uint64
	SafetyMargin uint64
	MinSweep     uint64
}

// New creates an engine with the configured cost estimates.
func New(client rpc.Client, history HistoryRecorder, cfg *config.Config) *Engine {
	return &Engine{
		Client:       client,
		History:      history,
		BaseFee:      cfg.BaseFeeLamports,
		ATARent:      cfg.ATARentLamports,
		SafetyMargin: cfg.SafetyMarginLamports,
		MinSweep:     cfg.MinSweepLamports,
	}
}

// Submit compiles, signs, broadcasts and confirms one transaction.
// Returns the transaction signature and the confirmation slot.
func (e *Engine) Submit(ctx context.Context, signer wallet.Keypair, instructions []tx.Instruction) (string, uint64, error) {
	blockhash, _, err := e.Client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("get blockhash: %w", err)
	}

	txBytes, txSig, err := tx.BuildAndSerialize(signer.PublicKey, instructions, blockhash, signer.Signers())
	if err != nil {
		return "", 0, fmt.Errorf("build tx: %w", err)
	}

	txBase64 := base64.StdEncoding.EncodeToString(txBytes)
	signature, err := e.Client.SendTransaction(ctx, txBase64)
	if err != nil {
		return "", 0, fmt.Errorf("broadcast: %w", err)
	}
	// Use the returned signature (should match txSig, but trust the RPC).
	if signature == "" {
		signature = txSig
	}

	slot, err := rpc.WaitForConfirmation(ctx, e.Client, signature)
	if err != nil {
		return signature, 0, fmt.Errorf("confirmation: %w", err)
	}

	return signature, slot, nil
}

// record stores a history entry if a recorder is configured.
func (e *Engine) record(entry models.HistoryEntry) {
	if e.History == nil {
		return
	}
	e.History.Record(entry)
}

// NormalizeBatchSize clamps a batch size to >= 1 with a warning; a
// non-positive value is never rejected.
func NormalizeBatchSize(size int) int {
	if size < 1 {
		slog.Warn("batch size normalized to 1", "requested", size)
		return 1
	}
	return size
}

// partitionIndexes splits indexes into ceil(n/size) sequential batches.
func partitionIndexes(idxs []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var batches [][]int
	for start := 0; start < len(idxs); start += size {
		end := start + size
		if end > len(idxs) {
			end = len(idxs)
		}
		batches = append(batches, idxs[start:end])
	}
	return batches
}
