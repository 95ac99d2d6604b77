package drain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/tx"
)

func testCoordinator(client *fakeClient) *Coordinator {
	return &Coordinator{Orchestrator: testOrchestrator(client)}
}

func fundedWalletRecord(t *testing.T, client *fakeClient) models.WalletRecord {
	t.Helper()
	kp := testWallet(t)
	client.balances[kp.Address()] = 1_000_000_000
	return models.WalletRecord{Address: kp.Address(), SecretBase58: kp.SecretBase58()}
}

func destAddresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = tx.PublicKey{byte(0xA0 + i)}.ToBase58()
	}
	return out
}

func TestCoordinatorRun_LengthMismatchBoundsRun(t *testing.T) {
	client := newFakeClient()
	coord := testCoordinator(client)

	sources := []models.WalletRecord{
		fundedWalletRecord(t, client),
		fundedWalletRecord(t, client),
		fundedWalletRecord(t, client),
	}
	dests := destAddresses(2) // shorter list bounds the run

	failed, err := coord.Run(context.Background(), sources, dests, BatchOptions{
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("failed pairs = %d, want 0", len(failed))
	}
	// Each drained wallet submits exactly one sweep.
	if client.sentCount() != 2 {
		t.Errorf("sent = %d, want 2 (third wallet out of range)", client.sentCount())
	}
}

func TestCoordinatorRun_NoSecretRecordedNotAttempted(t *testing.T) {
	client := newFakeClient()
	coord := testCoordinator(client)

	keyless := testWallet(t)
	sources := []models.WalletRecord{
		{Address: keyless.Address()}, // no secret in either encoding
	}
	dests := destAddresses(1)

	failed, err := coord.Run(context.Background(), sources, dests, BatchOptions{
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(failed) != 1 {
		t.Fatalf("failed pairs = %d, want 1", len(failed))
	}
	if failed[0].Reason != "no private key" {
		t.Errorf("reason = %q, want %q", failed[0].Reason, "no private key")
	}
	if failed[0].Index != 0 {
		t.Errorf("index = %d, want 0", failed[0].Index)
	}
	if client.sentCount() != 0 {
		t.Error("keyless pair must never reach the chain")
	}
}

func TestCoordinatorRun_IndexAllowlist(t *testing.T) {
	client := newFakeClient()
	coord := testCoordinator(client)

	sources := make([]models.WalletRecord, 5)
	for i := range sources {
		sources[i] = fundedWalletRecord(t, client)
	}
	dests := destAddresses(5)

	// 9 is out of range: logged and ignored, not a failure.
	failed, err := coord.Run(context.Background(), sources, dests, BatchOptions{
		Indices:   []int{0, 2, 9},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("failed pairs = %d, want 0 (skips are not failures)", len(failed))
	}
	if client.sentCount() != 2 {
		t.Errorf("sent = %d, want 2 (only indices 0 and 2)", client.sentCount())
	}
}

func TestCoordinatorRun_WritesFailedPairsCSV(t *testing.T) {
	client := newFakeClient()
	coord := testCoordinator(client)
	outputDir := t.TempDir()

	keyless := testWallet(t)
	sources := []models.WalletRecord{{Address: keyless.Address()}}
	dests := destAddresses(1)

	failed, err := coord.Run(context.Background(), sources, dests, BatchOptions{
		OutputDir: outputDir,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed pairs = %d, want 1", len(failed))
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var csvPath string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "batch_drain_failed_") && strings.HasSuffix(e.Name(), ".csv") {
			csvPath = filepath.Join(outputDir, e.Name())
		}
	}
	if csvPath == "" {
		t.Fatal("failed-pairs CSV not written")
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "index,from_address,to_address,failure_reason,timestamp") {
		t.Errorf("CSV missing header: %s", content)
	}
	if !strings.Contains(content, keyless.Address()) {
		t.Errorf("CSV missing failed wallet: %s", content)
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"insufficient_funds", "rpc: Insufficient Funds for fee", "insufficient funds for operation"},
		{"insufficient_balance", "insufficient balance: need 5 have 3", "insufficient funds for operation"},
		{"rent", "account would drop below rent exemption", "insufficient funds for rent"},
		{"other", "connection refused", "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFailure(tt.msg); got != tt.want {
				t.Errorf("classifyFailure(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}
