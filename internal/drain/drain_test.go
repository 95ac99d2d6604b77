package drain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/engine"
	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/rpc"
	"github.com/Fantasim/solbatch/internal/tx"
	"github.com/Fantasim/solbatch/internal/wallet"
)

const (
	drainTestMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	drainOtherMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

type fakeClient struct {
	mu sync.Mutex

	balances      map[string]uint64
	accounts      map[string]uint64
	tokenAccounts map[string][]rpc.TokenAccount

	sendErr error
	sent    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		balances:      make(map[string]uint64),
		accounts:      make(map[string]uint64),
		tokenAccounts: make(map[string][]rpc.TokenAccount),
	}
}

func (f *fakeClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeClient) GetLatestBlockhash(ctx context.Context) ([32]byte, uint64, error) {
	return [32]byte{0x02}, 200, nil
}

func (f *fakeClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent++
	return fmt.Sprintf("sig-%d", f.sent), nil
}

func (f *fakeClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]rpc.SignatureStatus, error) {
	status := "confirmed"
	out := make([]rpc.SignatureStatus, len(signatures))
	for i := range signatures {
		out[i] = rpc.SignatureStatus{Slot: 7, ConfirmationStatus: &status}
	}
	return out, nil
}

func (f *fakeClient) GetAccountInfo(ctx context.Context, address string) (bool, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lamports, ok := f.accounts[address]
	return ok, lamports, nil
}

func (f *fakeClient) GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]rpc.TokenAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rpc.TokenAccount
	for _, acc := range f.tokenAccounts[owner] {
		if acc.ProgramID == programID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	return 2_039_280, nil
}

func (f *fakeClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func testOrchestrator(client *fakeClient) *Orchestrator {
	return &Orchestrator{Engine: &engine.Engine{
		Client:       client,
		BaseFee:      5_000,
		ATARent:      2_039_280,
		SafetyMargin: 10_000,
		MinSweep:     5_000,
	}}
}

func testWallet(t *testing.T) wallet.Keypair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	var pk tx.PublicKey
	copy(pk[:], pub)
	return wallet.Keypair{PublicKey: pk, PrivateKey: priv}
}

func addHolding(client *fakeClient, owner, mint string, raw uint64, decimals int) {
	client.tokenAccounts[owner] = append(client.tokenAccounts[owner], rpc.TokenAccount{
		Pubkey:    tx.PublicKey{byte(0x60 + len(client.tokenAccounts[owner]))}.ToBase58(),
		Mint:      mint,
		Owner:     owner,
		ProgramID: config.TokenProgramID,
		RawAmount: raw,
		Decimals:  decimals,
		Lamports:  2_039_280,
	})
}

func baseOptions(kp wallet.Keypair) Options {
	return Options{
		SecretKey:   kp.SecretBase58(),
		Destination: tx.PublicKey{0x99}.ToBase58(),
	}
}

func TestRun_BadKeyIsFatal(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)

	_, err := orch.Run(context.Background(), Options{
		SecretKey:   "not-a-key",
		Destination: tx.PublicKey{0x99}.ToBase58(),
	})
	if err == nil {
		t.Fatal("expected error for unloadable key")
	}
}

func TestRun_DryRunHasNoOnChainEffect(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)
	kp := testWallet(t)

	client.balances[kp.Address()] = 5_000_000_000
	addHolding(client, kp.Address(), drainTestMint, 1_000_000, 6)

	opts := baseOptions(kp)
	opts.DryRun = true
	opts.ResultFile = filepath.Join(t.TempDir(), "result.json")

	res, err := orch.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !res.Success || !res.DryRun {
		t.Errorf("result = %+v, want synthetic dry-run success", res)
	}
	if client.sentCount() != 0 {
		t.Errorf("sent = %d, want 0 (dry run must not touch the chain)", client.sentCount())
	}
	if res.FinalNative != 5_000_000_000 {
		t.Errorf("FinalNative = %d, want the untouched initial balance 5000000000", res.FinalNative)
	}
}

func TestRun_KeepExceedsBalance(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)
	kp := testWallet(t)

	client.balances[kp.Address()] = 1_000_000

	opts := baseOptions(kp)
	opts.KeepLamports = 2_000_000

	_, err := orch.Run(context.Background(), opts)
	if !errors.Is(err, config.ErrKeepExceedsBalance) {
		t.Fatalf("error = %v, want ErrKeepExceedsBalance", err)
	}
}

func TestRun_KeepExceedsBalanceIgnoredInDryRun(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)
	kp := testWallet(t)

	client.balances[kp.Address()] = 1_000_000

	opts := baseOptions(kp)
	opts.KeepLamports = 2_000_000
	opts.DryRun = true

	if _, err := orch.Run(context.Background(), opts); err != nil {
		t.Fatalf("dry run must not enforce the keep check, got %v", err)
	}
}

func TestRun_FullDrain(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)
	kp := testWallet(t)

	client.balances[kp.Address()] = 5_000_000_000
	addHolding(client, kp.Address(), config.NativeMint, 500_000_000, 9) // wSOL
	addHolding(client, kp.Address(), drainTestMint, 1_000_000, 6)

	res, err := orch.Run(context.Background(), baseOptions(kp))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !res.Success {
		t.Error("expected success")
	}
	if len(res.TransferredTokens) != 1 {
		t.Errorf("token transfers = %d, want 1", len(res.TransferredTokens))
	}
	// unwrapped wSOL + closed source account
	if res.AccountsClosed != 2 {
		t.Errorf("accounts closed = %d, want 2", res.AccountsClosed)
	}
	if res.TransferredNative == 0 {
		t.Error("native sweep expected")
	}
	// unwrap, token transfer, close, sweep
	if client.sentCount() != 4 {
		t.Errorf("sent = %d, want 4", client.sentCount())
	}
}

func TestRun_PartialFailureStillSucceeds(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)
	kp := testWallet(t)

	client.balances[kp.Address()] = 5_000_000_000
	addHolding(client, kp.Address(), drainTestMint, 1_000_000, 6)
	client.sendErr = errors.New("blockhash not found")

	res, err := orch.Run(context.Background(), baseOptions(kp))
	if err != nil {
		t.Fatalf("sub-operation failures must not be fatal, got %v", err)
	}

	if !res.Success {
		t.Error("Success must stay true alongside a populated error list")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected collected errors")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, drainTestMint) {
			found = true
		}
	}
	if !found {
		t.Errorf("errors %v must name the failing mint", res.Errors)
	}
}

func TestFilterHoldings(t *testing.T) {
	holdings := []models.TokenHolding{
		{Mint: drainTestMint, RawAmount: 1_000_000, Decimals: 6},
		{Mint: drainOtherMint, RawAmount: 500, Decimals: 9},
	}

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "no_filters_keep_everything",
			opts: Options{},
			want: []string{drainTestMint, drainOtherMint},
		},
		{
			name: "include_restricts",
			opts: Options{IncludeMints: []string{drainOtherMint}},
			want: []string{drainOtherMint},
		},
		{
			name: "exclude_drops",
			opts: Options{ExcludeMints: []string{drainTestMint}},
			want: []string{drainOtherMint},
		},
		{
			name: "dust_threshold",
			// 500 raw at 9 decimals is 0.0000005, below 0.001.
			opts: Options{MinBalance: decimal.RequireFromString("0.001")},
			want: []string{drainTestMint},
		},
		{
			name: "include_then_exclude",
			opts: Options{
				IncludeMints: []string{drainTestMint, drainOtherMint},
				ExcludeMints: []string{drainTestMint},
			},
			want: []string{drainOtherMint},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterHoldings(holdings, tt.opts)

			var mints []string
			for _, h := range got {
				mints = append(mints, h.Mint)
			}
			if len(mints) != len(tt.want) {
				t.Fatalf("kept %v, want %v", mints, tt.want)
			}
			for i := range mints {
				if mints[i] != tt.want[i] {
					t.Errorf("kept %v, want %v", mints, tt.want)
					break
				}
			}
		})
	}
}

func TestRun_RentGuardSkipsTokenLoop(t *testing.T) {
	client := newFakeClient()
	orch := testOrchestrator(client)
	kp := testWallet(t)

	// Enough to pass discovery but not enough to create a destination account.
	client.balances[kp.Address()] = 100_000
	addHolding(client, kp.Address(), drainTestMint, 1_000_000, 6)

	res, err := orch.Run(context.Background(), baseOptions(kp))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.TransferredTokens) != 0 {
		t.Error("token loop must be skipped when rent cost is uncovered")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "token transfers skipped") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors %v must record the skipped loop", res.Errors)
	}
}
