package records

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fantasim/solbatch/internal/config"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input file: %v", err)
	}
	return path
}

func TestLoadTransferRecords(t *testing.T) {
	path := writeInput(t, "recipients.csv",
		"address,amount\nAddr1,1.5\nAddr2, 0.25\n\nAddr3,10\n")

	recs, err := LoadTransferRecords(path)
	if err != nil {
		t.Fatalf("LoadTransferRecords() error = %v", err)
	}

	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3 (header and blank line skipped)", len(recs))
	}
	if recs[0].Address != "Addr1" || recs[0].Amount.String() != "1.5" {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Amount.String() != "0.25" {
		t.Errorf("leading space not trimmed: %+v", recs[1])
	}
	for i, r := range recs {
		if r.Completed {
			t.Errorf("record %d loaded as completed", i)
		}
	}
}

func TestLoadTransferRecords_NoHeader(t *testing.T) {
	path := writeInput(t, "recipients.csv", "Addr1,1\nAddr2,2\n")

	recs, err := LoadTransferRecords(path)
	if err != nil {
		t.Fatalf("LoadTransferRecords() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2 (no header to skip)", len(recs))
	}
}

func TestLoadTransferRecords_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantRow string // substring expected in the error
	}{
		{"missing_amount", "address,amount\nAddr1\n", "row 2"},
		{"bad_amount", "Addr1,abc\n", "row 1"},
		{"zero_amount", "Addr1,0\n", "row 1"},
		{"negative_amount", "Addr1,-5\n", "row 1"},
		{"empty_address", ",1\n", "row 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, "recipients.csv", tt.content)
			_, err := LoadTransferRecords(path)
			if !errors.Is(err, config.ErrMalformedRow) {
				t.Fatalf("error = %v, want ErrMalformedRow", err)
			}
			if !strings.Contains(err.Error(), tt.wantRow) {
				t.Errorf("error %q must name the offending %s", err, tt.wantRow)
			}
		})
	}
}

func TestLoadTransferRecords_FileMissing(t *testing.T) {
	_, err := LoadTransferRecords(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, config.ErrInputFileMissing) {
		t.Fatalf("error = %v, want ErrInputFileMissing", err)
	}
}

func TestLoadTransferInstructions(t *testing.T) {
	path := writeInput(t, "moves.csv",
		"from,to,amount\nSender1,Dest1,0.5\nSender2,Dest2,1\n")

	recs, err := LoadTransferInstructions(path)
	if err != nil {
		t.Fatalf("LoadTransferInstructions() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].From != "Sender1" || recs[0].To != "Dest1" {
		t.Errorf("record 0 = %+v", recs[0])
	}
}

func TestLoadTransferInstructions_TooFewColumns(t *testing.T) {
	path := writeInput(t, "moves.csv", "Sender1,Dest1\n")
	_, err := LoadTransferInstructions(path)
	if !errors.Is(err, config.ErrMalformedRow) {
		t.Fatalf("error = %v, want ErrMalformedRow", err)
	}
}

func TestLoadWalletRecords(t *testing.T) {
	// The JSON-array secret contains commas, so the column is quoted.
	path := writeInput(t, "wallets.csv",
		"address,secret_base58,secret_json\nAddrA,5secret,\nAddrB,,\nAddrC,,\"[1,2,3]\"\n")

	recs, err := LoadWalletRecords(path)
	if err != nil {
		t.Fatalf("LoadWalletRecords() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}

	if !recs[0].HasSecret() {
		t.Error("wallet A carries a secret")
	}
	if recs[1].HasSecret() {
		t.Error("wallet B must be keyless")
	}
	if recs[0].SecretBase58 != "5secret" {
		t.Errorf("secret = %q", recs[0].SecretBase58)
	}
	if recs[2].SecretJSON != "[1,2,3]" {
		t.Errorf("json secret = %q, want the quoted column intact", recs[2].SecretJSON)
	}
}

func TestLoadWalletRecords_AddressOnly(t *testing.T) {
	path := writeInput(t, "wallets.txt", "AddrA\nAddrB\n")

	recs, err := LoadWalletRecords(path)
	if err != nil {
		t.Fatalf("LoadWalletRecords() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	for _, r := range recs {
		if r.HasSecret() {
			t.Errorf("wallet %s must be keyless", r.Address)
		}
	}
}

func TestRowNumber(t *testing.T) {
	if got := rowNumber(0, false); got != 1 {
		t.Errorf("rowNumber(0, false) = %d, want 1", got)
	}
	if got := rowNumber(0, true); got != 2 {
		t.Errorf("rowNumber(0, true) = %d, want 2", got)
	}
}
