package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/tx"
)

func TestWrap_ZeroAmount(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	if _, err := eng.Wrap(context.Background(), signer, 0); err == nil {
		t.Error("expected error for zero amount")
	}
}

func TestWrap_InsufficientBalance(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	// Account creation needed but balance barely covers the deposit alone.
	client.balances[signer.Address()] = 1_000_000

	_, err := eng.Wrap(context.Background(), signer, 1_000_000)
	if !errors.Is(err, config.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}
	if client.sentCount() != 0 {
		t.Error("no submission expected")
	}
}

func TestWrap_Succeeds(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000

	sig, err := eng.Wrap(context.Background(), signer, 1_000_000_000)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	if sig == "" {
		t.Error("empty signature")
	}
	if client.sentCount() != 1 {
		t.Errorf("sent = %d, want 1 (create + deposit + sync in one tx)", client.sentCount())
	}
}

func TestUnwrap_NoAccountIsNoOp(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	sig, err := eng.Unwrap(context.Background(), signer)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if sig != "" {
		t.Error("expected empty signature for missing account")
	}
	if client.sentCount() != 0 {
		t.Error("no submission expected")
	}
}

func TestUnwrap_ClosesExistingAccount(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	ata, err := tx.DeriveATA(signer.PublicKey, tx.NativeMint, tx.TokenProgramID)
	if err != nil {
		t.Fatalf("derive wrapped account: %v", err)
	}
	client.accounts[ata.ToBase58()] = 1_002_039_280

	sig, err := eng.Unwrap(context.Background(), signer)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if sig == "" {
		t.Error("empty signature")
	}
	if client.sentCount() != 1 {
		t.Errorf("sent = %d, want 1", client.sentCount())
	}
}
