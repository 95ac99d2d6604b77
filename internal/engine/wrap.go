package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/tx"
	"github.com/Fantasim/solbatch/internal/wallet"
)

// Wrap converts lamports into wrapped SOL on the signer's associated native
// mint account, creating the account first when absent. The deposit and the
// sync happen in one transaction.
func (e *Engine) Wrap(ctx context.Context, signer wallet.Keypair, lamports uint64) (string, error) {
	if lamports == 0 {
		return "", fmt.Errorf("%w: wrap amount must be positive", config.ErrInvalidConfig)
	}

	ata, err := tx.DeriveATA(signer.PublicKey, tx.NativeMint, tx.TokenProgramID)
	if err != nil {
		return "", fmt.Errorf("derive wrapped account: %w", err)
	}

	exists, _, err := e.Client.GetAccountInfo(ctx, ata.ToBase58())
	if err != nil {
		return "", fmt.Errorf("check wrapped account: %w", err)
	}

	// Creation is paid on top of the deposit; make sure the signer covers
	// everything before broadcasting.
	required := lamports + e.BaseFee + e.SafetyMargin
	if !exists {
		required += e.ATARent
	}
	balance, err := e.Client.GetBalance(ctx, signer.Address())
	if err != nil {
		return "", fmt.Errorf("get balance: %w", err)
	}
	if balance < required {
		return "", fmt.Errorf("%w: need %d lamports to wrap, have %d",
			config.ErrInsufficientBalance, required, balance)
	}

	var instructions []tx.Instruction
	if !exists {
		instructions = append(instructions, tx.NewCreateATA(signer.PublicKey, ata, signer.PublicKey, tx.NativeMint, tx.TokenProgramID))
	}
	instructions = append(instructions,
		tx.NewSystemTransfer(signer.PublicKey, ata, lamports),
		tx.NewSyncNative(ata),
	)

	signature, slot, err := e.Submit(ctx, signer, instructions)
	if err != nil {
		return signature, fmt.Errorf("wrap: %w", err)
	}

	slog.Info("wrapped native balance",
		"owner", signer.Address(),
		"account", ata.ToBase58(),
		"lamports", lamports,
		"createdAccount", !exists,
		"signature", signature,
		"slot", slot,
	)
	return signature, nil
}

// Unwrap closes the signer's wrapped SOL account, returning its entire
// lamport balance (wrapped amount plus rent) to the signer. Closing is the
// only way to unwrap; there is no partial variant.
func (e *Engine) Unwrap(ctx context.Context, signer wallet.Keypair) (string, error) {
	ata, err := tx.DeriveATA(signer.PublicKey, tx.NativeMint, tx.TokenProgramID)
	if err != nil {
		return "", fmt.Errorf("derive wrapped account: %w", err)
	}

	exists, _, err := e.Client.GetAccountInfo(ctx, ata.ToBase58())
	if err != nil {
		return "", fmt.Errorf("check wrapped account: %w", err)
	}
	if !exists {
		slog.Info("no wrapped account to close", "owner", signer.Address())
		return "", nil
	}

	ix := tx.NewCloseAccount(tx.TokenProgramID, ata, signer.PublicKey, signer.PublicKey)
	signature, slot, err := e.Submit(ctx, signer, []tx.Instruction{ix})
	if err != nil {
		return signature, fmt.Errorf("unwrap: %w", err)
	}

	slog.Info("unwrapped native balance",
		"owner", signer.Address(),
		"account", ata.ToBase58(),
		"signature", signature,
		"slot", slot,
	)
	return signature, nil
}
