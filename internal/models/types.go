package models

import "github.com/shopspring/decimal"

// TransferRecord is one requested payment from a recipients file.
// Amount is denominated in whole units of the asset (SOL or token units).
// Completed is the only mutable field; it flips to true after the ledger
// confirms the corresponding transfer.
type TransferRecord struct {
	Address   string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
	Completed bool            `json:"completed"`
}

// TransferInstruction is one row of a many-to-many transfer-instructions file.
type TransferInstruction struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Completed bool            `json:"completed"`
}

// WalletRecord is one row of a wallet file. Secrets are optional: a record
// without either encoding can still be used for balance queries, but never
// for signing.
type WalletRecord struct {
	Address      string
	SecretBase58 string // 64-byte secret key, base58
	SecretJSON   string // solana-keygen style JSON byte array
}

// HasSecret reports whether the record carries signing material in any encoding.
func (w WalletRecord) HasSecret() bool {
	return w.SecretBase58 != "" || w.SecretJSON != ""
}

// TokenHolding is one non-zero token account owned by a wallet.
type TokenHolding struct {
	Account         string // token account address
	Mint            string
	RawAmount       uint64
	Decimals        int
	ProgramID       string // owning token program (Token or Token-2022)
	IsWrappedNative bool
	RentLamports    uint64 // reclaimable deposit when the account is closed
}

// WalletInventory is a point-in-time snapshot of one wallet's holdings.
// Constructed fresh on each drain invocation and discarded afterwards.
type WalletInventory struct {
	NativeLamports uint64
	Holdings       []TokenHolding
}

// TokenTransferOutcome records one successful per-mint transfer during a drain.
type TokenTransferOutcome struct {
	Mint      string `json:"mint"`
	RawAmount uint64 `json:"rawAmount"`
	Signature string `json:"signature"`
}

// DrainResult is the outcome of one wallet-drain operation. Success may be
// true alongside a non-empty error list: overall failure is reserved for
// setup errors that prevent any operation.
type DrainResult struct {
	Success           bool                   `json:"success"`
	DryRun            bool                   `json:"dryRun"`
	Wallet            string                 `json:"wallet"`
	Destination       string                 `json:"destination"`
	TransferredNative uint64                 `json:"transferredNativeLamports"`
	TransferredTokens []TokenTransferOutcome `json:"transferredTokens"`
	AccountsClosed    int                    `json:"accountsClosed"`
	RentReclaimed     uint64                 `json:"rentReclaimedLamports"`
	FinalNative       uint64                 `json:"finalNativeLamports"`
	Errors            []string               `json:"errors"`
}

// FailedPair is one failed source->destination pairing from a batch drain.
// It never contains a secret key, so it is safe to persist and to feed back
// in as a retry selector.
type FailedPair struct {
	Index       int
	FromAddress string
	ToAddress   string
	Reason      string
	Timestamp   string
}

// BatchReport summarizes one batch-transfer engine run.
type BatchReport struct {
	Total      int
	Succeeded  int
	Failed     int
	Batches    int
	Signatures []string
}

// BalanceReport is one wallet's balances for the balances command.
type BalanceReport struct {
	Address        string
	NativeLamports uint64
	Holdings       []TokenHolding
}

// HistoryEntry is a recorded submission in the local transaction history.
type HistoryEntry struct {
	ID          int64
	Operation   string // transfer | token_transfer | drain | wrap | unwrap | sweep
	Signature   string
	Mint        string // empty for native
	Amount      string // raw integer units as string
	FromAddress string
	ToAddress   string
	Status      string // pending | confirmed | failed
	CreatedAt   string
	ConfirmedAt string
}
