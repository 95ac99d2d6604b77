package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/models"
)

// tokenPrograms are the two supported token-program variants, queried in a
// fixed order so inventories are deterministic.
var tokenPrograms = []string{config.TokenProgramID, config.Token2022ProgramID}

// Inventory builds a point-in-time snapshot of one wallet's holdings:
// native balance plus every non-zero token account under both token
// programs. Zero-balance accounts are not materialized as holdings.
func (e *Engine) Inventory(ctx context.Context, owner string) (*models.WalletInventory, error) {
	native, err := e.Client.GetBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}

	inv := &models.WalletInventory{NativeLamports: native}

	for _, program := range tokenPrograms {
		accounts, err := e.Client.GetTokenAccountsByOwner(ctx, owner, program)
		if err != nil {
			return nil, fmt.Errorf("get token accounts (program %s): %w", program, err)
		}

		for _, acc := range accounts {
			if acc.RawAmount == 0 {
				continue
			}
			inv.Holdings = append(inv.Holdings, models.TokenHolding{
				Account:         acc.Pubkey,
				Mint:            acc.Mint,
				RawAmount:       acc.RawAmount,
				Decimals:        acc.Decimals,
				ProgramID:       acc.ProgramID,
				IsWrappedNative: acc.IsNative || acc.Mint == config.NativeMint,
				RentLamports:    acc.Lamports,
			})
		}
	}

	slog.Debug("wallet inventory built",
		"owner", owner,
		"nativeLamports", native,
		"holdings", len(inv.Holdings),
	)

	return inv, nil
}

// Balances queries the holdings of every wallet in a wallet file.
// Per-wallet query failures are logged and reported as empty entries rather
// than aborting the loop.
func (e *Engine) Balances(ctx context.Context, wallets []models.WalletRecord) []models.BalanceReport {
	reports := make([]models.BalanceReport, 0, len(wallets))

	for _, w := range wallets {
		if err := ctx.Err(); err != nil {
			slog.Warn("balance query cancelled", "error", err)
			break
		}

		inv, err := e.Inventory(ctx, w.Address)
		if err != nil {
			slog.Error("balance query failed", "address", w.Address, "error", err)
			reports = append(reports, models.BalanceReport{Address: w.Address})
			continue
		}

		reports = append(reports, models.BalanceReport{
			Address:        w.Address,
			NativeLamports: inv.NativeLamports,
			Holdings:       inv.Holdings,
		})
	}

	return reports
}
