package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/solbatch/internal/config"
)

// ToRaw converts a whole-unit decimal amount to raw integer units at the
// given scale. This replaces string-slicing conversions: the decimal type
// carries exact scale, so 0.1 at 9 decimals is exactly 100000000.
func ToRaw(amount decimal.Decimal, decimals int) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}

	shifted := amount.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more precision than %d decimals", amount, decimals)
	}

	bi := shifted.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64 at %d decimals", amount, decimals)
	}

	return bi.Uint64(), nil
}

// FromRaw converts raw integer units back to a whole-unit decimal.
func FromRaw(raw uint64, decimals int) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(int32(-decimals))
}

// SOLToLamports converts a SOL amount to lamports.
func SOLToLamports(amount decimal.Decimal) (uint64, error) {
	return ToRaw(amount, config.SOLDecimals)
}

// LamportsToSOL converts lamports to a SOL amount.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return FromRaw(lamports, config.SOLDecimals)
}
