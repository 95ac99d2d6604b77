package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/tx"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func testRecords(t *testing.T, amounts ...string) []models.TransferRecord {
	t.Helper()
	recs := make([]models.TransferRecord, len(amounts))
	for i, a := range amounts {
		recs[i] = models.TransferRecord{
			Address: tx.PublicKey{byte(i + 1)}.ToBase58(),
			Amount:  mustDecimal(t, a),
		}
	}
	return recs
}

func TestRunNative_InsufficientBalanceAbortsBeforeSubmission(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	// 2 SOL needed plus fees, only 1 SOL available.
	client.balances[signer.Address()] = 1_000_000_000
	recs := testRecords(t, "1", "1")

	_, err := eng.RunNative(context.Background(), signer, recs, 10, nil)
	if !errors.Is(err, config.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}
	if client.sentCount() != 0 {
		t.Errorf("sent %d transactions, want 0 (pre-flight must abort first)", client.sentCount())
	}
}

func TestRunNative_AllSucceed(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000
	recs := testRecords(t, "0.1", "0.2", "0.3")

	saves := 0
	report, err := eng.RunNative(context.Background(), signer, recs, 2, func(snapshot []models.TransferRecord) error {
		saves++
		return nil
	})
	if err != nil {
		t.Fatalf("RunNative() error = %v", err)
	}

	if report.Succeeded != 3 || report.Failed != 0 || report.Total != 3 {
		t.Errorf("report = %+v, want 3/0/3", report)
	}
	if report.Batches != 2 {
		t.Errorf("batches = %d, want 2 (ceil(3/2))", report.Batches)
	}
	if saves != 3 {
		t.Errorf("snapshot saved %d times, want 3 (after every success)", saves)
	}
	for i, r := range recs {
		if !r.Completed {
			t.Errorf("record %d not marked complete", i)
		}
	}
}

func TestRunNative_SkipsCompletedRecords(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000
	recs := testRecords(t, "0.1", "0.2", "0.3")
	recs[0].Completed = true
	recs[2].Completed = true

	report, err := eng.RunNative(context.Background(), signer, recs, 10, nil)
	if err != nil {
		t.Fatalf("RunNative() error = %v", err)
	}

	if report.Total != 1 || report.Succeeded != 1 {
		t.Errorf("report = %+v, want exactly the 1 pending record", report)
	}
	if client.sentCount() != 1 {
		t.Errorf("sent = %d, want 1", client.sentCount())
	}
}

func TestRunNative_NothingPending(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	recs := testRecords(t, "0.1")
	recs[0].Completed = true

	report, err := eng.RunNative(context.Background(), signer, recs, 10, nil)
	if err != nil {
		t.Fatalf("RunNative() error = %v", err)
	}
	if report.Total != 0 || client.sentCount() != 0 {
		t.Errorf("expected no-op run, got report %+v with %d sends", report, client.sentCount())
	}
}

func TestRunNative_PartialFailureContinues(t *testing.T) {
	client := newFakeClient()
	client.failAfter = 1 // first submission succeeds, the rest fail
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000
	recs := testRecords(t, "0.1", "0.2", "0.3")

	report, err := eng.RunNative(context.Background(), signer, recs, 10, nil)
	if err != nil {
		t.Fatalf("partial failure must not be an error, got %v", err)
	}

	if report.Succeeded != 1 || report.Failed != 2 {
		t.Errorf("report = %+v, want 1 succeeded / 2 failed", report)
	}
	if !recs[0].Completed || recs[1].Completed || recs[2].Completed {
		t.Error("only the first record should be complete")
	}
}

func TestRunNative_SaveFailureIsNonFatal(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000
	recs := testRecords(t, "0.1", "0.2")

	report, err := eng.RunNative(context.Background(), signer, recs, 10, func([]models.TransferRecord) error {
		return errors.New("disk full")
	})
	if err != nil {
		t.Fatalf("RunNative() error = %v", err)
	}
	if report.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2 (snapshot errors never abort)", report.Succeeded)
	}
}

func TestRunNative_CancelledBetweenRecords(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000
	recs := testRecords(t, "0.1", "0.2")

	ctx, cancel := context.WithCancel(context.Background())
	report, err := eng.RunNative(ctx, signer, recs, 10, func([]models.TransferRecord) error {
		cancel() // interrupt after the first success
		return nil
	})
	if err != nil {
		t.Fatalf("RunNative() error = %v", err)
	}
	if report.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1 (run stops at cancellation)", report.Succeeded)
	}
	if recs[1].Completed {
		t.Error("second record must stay pending after cancellation")
	}
}

func TestRunNative_InvalidAddressFailsRecordOnly(t *testing.T) {
	client := newFakeClient()
	eng := newTestEngine(client)
	signer := testSigner(t)

	client.balances[signer.Address()] = 10_000_000_000
	recs := testRecords(t, "0.1", "0.2")
	recs[0].Address = "not-a-valid-address"

	report, err := eng.RunNative(context.Background(), signer, recs, 10, nil)
	if err != nil {
		t.Fatalf("RunNative() error = %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Errorf("report = %+v, want 1 failed / 1 succeeded", report)
	}
}
