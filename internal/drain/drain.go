package drain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/engine"
	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/tx"
	"github.com/Fantasim/solbatch/internal/wallet"
)

// Options parameterize one drain run. Exactly one of SecretKey or KeyFile
// must resolve a signer; everything else is optional.
type Options struct {
	SecretKey   string
	KeyFile     string
	Destination string

	IncludeMints []string
	ExcludeMints []string
	MinBalance   decimal.Decimal // dust threshold in UI units, zero disables

	KeepLamports uint64
	DryRun       bool
	ResultFile   string
}

// Orchestrator migrates one wallet's full holdings to a destination,
// reclaiming rent where possible. After the signer is loaded, every step
// degrades gracefully: sub-operation errors are collected into the result
// and the sequence continues.
type Orchestrator struct {
	Engine *engine.Engine
}

// Run executes the drain sequence. The returned result reports Success=true
// even when individual mints failed; only key loading and a keep amount
// exceeding the balance (outside dry-run) return an error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*models.DrainResult, error) {
	// Step 1: load key. The only unconditionally fatal step.
	signer, err := wallet.Load(opts.SecretKey, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load signer: %w", err)
	}

	res := &models.DrainResult{
		Success:     true,
		DryRun:      opts.DryRun,
		Wallet:      signer.Address(),
		Destination: opts.Destination,
	}

	dest, err := tx.PublicKeyFromBase58(opts.Destination)
	if err != nil {
		return nil, fmt.Errorf("parse destination: %w", err)
	}

	// Step 2: discover.
	inv, err := o.Engine.Inventory(ctx, signer.Address())
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("discover holdings: %v", err))
		o.finalize(ctx, signer, opts, res)
		return res, nil
	}

	if !opts.DryRun && opts.KeepLamports > inv.NativeLamports {
		return nil, fmt.Errorf("%w: keep %d exceeds balance %d",
			config.ErrKeepExceedsBalance, opts.KeepLamports, inv.NativeLamports)
	}

	// Step 3: filter.
	holdings := filterHoldings(inv.Holdings, opts)

	// Step 4: preview.
	var reclaimable uint64
	for _, h := range holdings {
		reclaimable += h.RentLamports
	}
	slog.Info("drain preview",
		"wallet", signer.Address(),
		"destination", opts.Destination,
		"nativeLamports", inv.NativeLamports,
		"holdings", len(holdings),
		"reclaimableRent", reclaimable,
		"dryRun", opts.DryRun,
	)
	for _, h := range holdings {
		slog.Info("drain preview holding",
			"mint", h.Mint,
			"account", h.Account,
			"rawAmount", h.RawAmount,
			"decimals", h.Decimals,
			"wrappedNative", h.IsWrappedNative,
		)
	}
	if opts.DryRun {
		// Nothing moved, so the final balance is the balance we found.
		res.FinalNative = inv.NativeLamports
		writeResultFile(opts.ResultFile, res)
		return res, nil
	}

	// Step 5: unwrap wrapped native first, so the credited balance can pay
	// fees for the token loop.
	var tokenHoldings []models.TokenHolding
	for _, h := range holdings {
		if h.IsWrappedNative {
			o.unwrap(ctx, signer, h, res)
			continue
		}
		tokenHoldings = append(tokenHoldings, h)
	}

	// Step 6: token transfers, guarded by a rent-cost estimate.
	transferred := o.transferTokens(ctx, signer, dest, tokenHoldings, res)

	// Step 7: close successfully drained source accounts.
	o.closeAccounts(ctx, signer, transferred, res)

	// Step 8: sweep native.
	o.sweepNative(ctx, signer, dest, opts.KeepLamports, res)

	// Step 9: finalize.
	o.finalize(ctx, signer, opts, res)
	return res, nil
}

// filterHoldings applies include, exclude and dust filters in order. Each
// filter is independently optional.
func filterHoldings(holdings []models.TokenHolding, opts Options) []models.TokenHolding {
	include := make(map[string]bool, len(opts.IncludeMints))
	for _, m := range opts.IncludeMints {
		include[m] = true
	}
	exclude := make(map[string]bool, len(opts.ExcludeMints))
	for _, m := range opts.ExcludeMints {
		exclude[m] = true
	}

	var out []models.TokenHolding
	for _, h := range holdings {
		if len(include) > 0 && !include[h.Mint] {
			slog.Debug("holding filtered: not in include list", "mint", h.Mint)
			continue
		}
		if exclude[h.Mint] {
			slog.Debug("holding filtered: excluded", "mint", h.Mint)
			continue
		}
		if opts.MinBalance.IsPositive() {
			ui := engine.FromRaw(h.RawAmount, h.Decimals)
			if ui.LessThan(opts.MinBalance) {
				slog.Debug("holding filtered: below dust threshold",
					"mint", h.Mint,
					"amount", ui,
					"threshold", opts.MinBalance,
				)
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

// unwrap syncs and closes the wrapped-native account, crediting its balance
// back to the wallet.
func (o *Orchestrator) unwrap(ctx context.Context, signer wallet.Keypair, h models.TokenHolding, res *models.DrainResult) {
	account, err := tx.PublicKeyFromBase58(h.Account)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("unwrap %s: %v", h.Account, err))
		return
	}

	instructions := []tx.Instruction{
		tx.NewSyncNative(account),
		tx.NewCloseAccount(tx.TokenProgramID, account, signer.PublicKey, signer.PublicKey),
	}
	signature, slot, err := o.Engine.Submit(ctx, signer, instructions)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("unwrap %s: %v", h.Account, err))
		slog.Error("unwrap failed", "account", h.Account, "error", err)
		return
	}

	res.AccountsClosed++
	res.RentReclaimed += h.RentLamports
	slog.Info("wrapped account unwrapped", "account", h.Account, "signature", signature, "slot", slot)
}

// transferTokens moves every holding to the destination's associated account,
// creating it when absent. Returns the holdings that transferred successfully.
// The whole loop is skipped (logged, not an error) when the native balance
// cannot cover the estimated creation cost plus the safety margin.
func (o *Orchestrator) transferTokens(
	ctx context.Context,
	signer wallet.Keypair,
	dest tx.PublicKey,
	holdings []models.TokenHolding,
	res *models.DrainResult,
) []models.TokenHolding {
	if len(holdings) == 0 {
		return nil
	}

	// Rent-cost guard: count destination accounts needing creation before
	// submitting anything.
	var missing int
	type prepared struct {
		holding models.TokenHolding
		program tx.PublicKey
		mint    tx.PublicKey
		source  tx.PublicKey
		destATA tx.PublicKey
		create  bool
	}
	var plan []prepared

	for _, h := range holdings {
		program, err := tx.PublicKeyFromBase58(h.ProgramID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mint %s: parse program: %v", h.Mint, err))
			continue
		}
		mint, err := tx.PublicKeyFromBase58(h.Mint)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mint %s: parse mint: %v", h.Mint, err))
			continue
		}
		source, err := tx.PublicKeyFromBase58(h.Account)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mint %s: parse account: %v", h.Mint, err))
			continue
		}
		destATA, err := tx.DeriveATA(dest, mint, program)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mint %s: derive destination: %v", h.Mint, err))
			continue
		}
		exists, _, err := o.Engine.Client.GetAccountInfo(ctx, destATA.ToBase58())
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mint %s: check destination: %v", h.Mint, err))
			continue
		}
		if !exists {
			missing++
		}
		plan = append(plan, prepared{holding: h, program: program, mint: mint, source: source, destATA: destATA, create: !exists})
	}

	if missing > 0 {
		needed := uint64(missing)*o.Engine.ATARent + o.Engine.SafetyMargin
		balance, err := o.Engine.Client.GetBalance(ctx, signer.Address())
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("rent guard: get balance: %v", err))
			return nil
		}
		if balance < needed {
			slog.Error("token transfer loop skipped: native balance cannot cover account creation",
				"balance", balance,
				"needed", needed,
				"accountsToCreate", missing,
			)
			res.Errors = append(res.Errors, fmt.Sprintf(
				"token transfers skipped: need %d lamports for %d account creations, have %d",
				needed, missing, balance))
			return nil
		}
	}

	var transferred []models.TokenHolding
	for _, p := range plan {
		var instructions []tx.Instruction
		if p.create {
			instructions = append(instructions, tx.NewCreateATA(signer.PublicKey, p.destATA, dest, p.mint, p.program))
		}
		instructions = append(instructions, tx.NewTokenTransfer(p.program, p.source, p.destATA, signer.PublicKey, p.holding.RawAmount))

		signature, slot, err := o.Engine.Submit(ctx, signer, instructions)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("mint %s: transfer: %v", p.holding.Mint, err))
			slog.Error("token drain failed", "mint", p.holding.Mint, "error", err)
			continue
		}

		res.TransferredTokens = append(res.TransferredTokens, models.TokenTransferOutcome{
			Mint:      p.holding.Mint,
			RawAmount: p.holding.RawAmount,
			Signature: signature,
		})
		transferred = append(transferred, p.holding)
		slog.Info("token drained",
			"mint", p.holding.Mint,
			"rawAmount", p.holding.RawAmount,
			"createdAccount", p.create,
			"signature", signature,
			"slot", slot,
		)
	}
	return transferred
}

// closeAccounts closes each successfully drained source account, reclaiming
// its rent. Per-account failures are collected and the loop continues.
func (o *Orchestrator) closeAccounts(ctx context.Context, signer wallet.Keypair, holdings []models.TokenHolding, res *models.DrainResult) {
	for _, h := range holdings {
		program, err := tx.PublicKeyFromBase58(h.ProgramID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("close %s: %v", h.Account, err))
			continue
		}
		account, err := tx.PublicKeyFromBase58(h.Account)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("close %s: %v", h.Account, err))
			continue
		}

		ix := tx.NewCloseAccount(program, account, signer.PublicKey, signer.PublicKey)
		signature, slot, err := o.Engine.Submit(ctx, signer, []tx.Instruction{ix})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("close %s: %v", h.Account, err))
			slog.Error("account close failed", "account", h.Account, "error", err)
			continue
		}

		res.AccountsClosed++
		res.RentReclaimed += h.RentLamports
		slog.Info("source account closed", "account", h.Account, "signature", signature, "slot", slot)
	}
}

// sweepNative sends the remaining native balance minus keep, fee and safety
// margin. At or below the minimum threshold the sweep is a no-op.
func (o *Orchestrator) sweepNative(ctx context.Context, signer wallet.Keypair, dest tx.PublicKey, keep uint64, res *models.DrainResult) {
	balance, err := o.Engine.Client.GetBalance(ctx, signer.Address())
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("sweep: get balance: %v", err))
		return
	}

	reserved := keep + o.Engine.BaseFee + o.Engine.SafetyMargin
	if balance <= reserved {
		slog.Info("native sweep skipped: nothing above reserve",
			"balance", balance,
			"reserved", reserved,
		)
		return
	}
	amount := balance - reserved
	if amount <= o.Engine.MinSweep {
		slog.Info("native sweep skipped: below minimum threshold",
			"amount", amount,
			"threshold", o.Engine.MinSweep,
		)
		return
	}

	ix := tx.NewSystemTransfer(signer.PublicKey, dest, amount)
	signature, slot, err := o.Engine.Submit(ctx, signer, []tx.Instruction{ix})
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("sweep: %v", err))
		slog.Error("native sweep failed", "amount", amount, "error", err)
		return
	}

	res.TransferredNative = amount
	slog.Info("native balance swept", "amount", amount, "signature", signature, "slot", slot)
}

// finalize re-queries the final balance, logs the summary and writes the
// optional result file.
func (o *Orchestrator) finalize(ctx context.Context, signer wallet.Keypair, opts Options, res *models.DrainResult) {
	final, err := o.Engine.Client.GetBalance(ctx, signer.Address())
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("finalize: get balance: %v", err))
	} else {
		res.FinalNative = final
	}

	slog.Info("drain complete",
		"wallet", res.Wallet,
		"destination", res.Destination,
		"transferredNative", res.TransferredNative,
		"tokensTransferred", len(res.TransferredTokens),
		"accountsClosed", res.AccountsClosed,
		"rentReclaimed", res.RentReclaimed,
		"finalNative", res.FinalNative,
		"errors", len(res.Errors),
	)

	writeResultFile(opts.ResultFile, res)
}

// writeResultFile persists the result as indented JSON. A write failure is
// logged, never propagated.
func writeResultFile(path string, res *models.DrainResult) {
	if path == "" {
		return
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		slog.Error("result file marshal failed", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("result file write failed", "path", path, "error", err)
	}
}
