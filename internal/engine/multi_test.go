package engine

import (
	"context"
	"testing"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/tx"
)

func instructionsFor(t *testing.T, senders []models.WalletRecord, amount string) []models.TransferInstruction {
	t.Helper()
	recs := make([]models.TransferInstruction, len(senders))
	for i, s := range senders {
		recs[i] = models.TransferInstruction{
			From:   s.Address,
			To:     tx.PublicKey{byte(0x40 + i)}.ToBase58(),
			Amount: mustDecimal(t, amount),
		}
	}
	return recs
}

func TestRunInstructions_ResolvesSenderPerRow(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)

	a := testSigner(t)
	b := testSigner(t)
	wallets := []models.WalletRecord{
		{Address: a.Address(), SecretBase58: a.SecretBase58()},
		{Address: b.Address(), SecretBase58: b.SecretBase58()},
	}
	client.balances[a.Address()] = 1_000_000_000
	client.balances[b.Address()] = 1_000_000_000

	recs := instructionsFor(t, wallets, "0.1")

	saves := 0
	report, err := eng.RunInstructions(context.Background(), wallets, recs, 10, func([]models.TransferInstruction) error {
		saves++
		return nil
	})
	if err != nil {
		t.Fatalf("RunInstructions() error = %v", err)
	}

	if report.Succeeded != 2 || report.Failed != 0 {
		t.Errorf("report = %+v, want 2 succeeded", report)
	}
	if saves != 2 {
		t.Errorf("snapshot saved %d times, want 2", saves)
	}
}

func TestRunInstructions_UnknownSenderFailsRowOnly(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)

	a := testSigner(t)
	wallets := []models.WalletRecord{
		{Address: a.Address(), SecretBase58: a.SecretBase58()},
	}
	client.balances[a.Address()] = 1_000_000_000

	stranger := testSigner(t)
	recs := []models.TransferInstruction{
		{From: stranger.Address(), To: tx.PublicKey{0x41}.ToBase58(), Amount: mustDecimal(t, "0.1")},
		{From: a.Address(), To: tx.PublicKey{0x42}.ToBase58(), Amount: mustDecimal(t, "0.1")},
	}

	report, err := eng.RunInstructions(context.Background(), wallets, recs, 10, nil)
	if err != nil {
		t.Fatalf("RunInstructions() error = %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Errorf("report = %+v, want 1 failed / 1 succeeded", report)
	}
}

func TestRunInstructions_KeylessSenderFailsRowOnly(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)

	a := testSigner(t)
	wallets := []models.WalletRecord{
		{Address: a.Address()}, // no secret
	}
	client.balances[a.Address()] = 1_000_000_000

	recs := instructionsFor(t, wallets, "0.1")
	report, err := eng.RunInstructions(context.Background(), wallets, recs, 10, nil)
	if err != nil {
		t.Fatalf("RunInstructions() error = %v", err)
	}
	if report.Failed != 1 || client.sentCount() != 0 {
		t.Errorf("report = %+v with %d sends, want failure without submission", report, client.sentCount())
	}
}

func TestRunInstructions_PerRowBalanceCheck(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)

	a := testSigner(t)
	wallets := []models.WalletRecord{
		{Address: a.Address(), SecretBase58: a.SecretBase58()},
	}
	client.balances[a.Address()] = 1_000 // below amount + fee

	recs := instructionsFor(t, wallets, "0.1")
	report, err := eng.RunInstructions(context.Background(), wallets, recs, 10, nil)
	if err != nil {
		t.Fatalf("RunInstructions() error = %v", err)
	}
	if report.Failed != 1 || client.sentCount() != 0 {
		t.Errorf("report = %+v with %d sends, want balance failure without submission", report, client.sentCount())
	}
}
