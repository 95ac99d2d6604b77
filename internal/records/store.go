package records

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/models"
)

// headerColumns are the first-cell values that mark a header row,
// matched case-insensitively.
var headerColumns = map[string]bool{
	"address": true,
	"from":    true,
}

// readRows reads all rows of a delimited file and strips a detected header.
// Returns the data rows and whether a header was skipped (needed for
// user-facing row numbering).
func readRows(path string) ([][]string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, fmt.Errorf("%w: %s", config.ErrInputFileMissing, path)
		}
		return nil, false, fmt.Errorf("open input file %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %s", config.ErrMalformedRow, path, err)
	}

	if len(rows) == 0 {
		return nil, false, nil
	}

	headerSkipped := false
	if hasHeader(rows[0]) {
		rows = rows[1:]
		headerSkipped = true
	}

	// Trim whitespace in every cell; blank lines are dropped.
	cleaned := make([][]string, 0, len(rows))
	for _, row := range rows {
		allEmpty := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				allEmpty = false
			}
		}
		if !allEmpty {
			cleaned = append(cleaned, row)
		}
	}

	slog.Debug("input file loaded",
		"path", path,
		"rows", len(cleaned),
		"headerSkipped", headerSkipped,
	)

	return cleaned, headerSkipped, nil
}

// hasHeader reports whether the first row is a header: its first cell
// case-insensitively matches a known column name.
func hasHeader(first []string) bool {
	if len(first) == 0 {
		return false
	}
	return headerColumns[strings.ToLower(strings.TrimSpace(first[0]))]
}

// rowNumber converts a zero-based data row index to the 1-based file row
// number users see, accounting for a skipped header.
func rowNumber(idx int, headerSkipped bool) int {
	n := idx + 1
	if headerSkipped {
		n++
	}
	return n
}

// LoadTransferRecords loads a recipients file with columns "address, amount".
// Amounts must be positive decimals; any invalid row aborts the whole load.
func LoadTransferRecords(path string) ([]models.TransferRecord, error) {
	rows, headerSkipped, err := readRows(path)
	if err != nil {
		return nil, err
	}

	out := make([]models.TransferRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: %s row %d: expected 2 columns (address, amount), got %d",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped), len(row))
		}

		amount, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: invalid amount %q: %s",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped), row[1], err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %s row %d: amount must be > 0, got %s",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped), amount)
		}
		if row[0] == "" {
			return nil, fmt.Errorf("%w: %s row %d: empty address",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped))
		}

		out = append(out, models.TransferRecord{
			Address: row[0],
			Amount:  amount,
		})
	}

	slog.Info("transfer records loaded", "path", path, "count", len(out))
	return out, nil
}

// LoadTransferInstructions loads a many-to-many instructions file with
// columns "from, to, amount".
func LoadTransferInstructions(path string) ([]models.TransferInstruction, error) {
	rows, headerSkipped, err := readRows(path)
	if err != nil {
		return nil, err
	}

	out := make([]models.TransferInstruction, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("%w: %s row %d: expected 3 columns (from, to, amount), got %d",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped), len(row))
		}

		amount, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: invalid amount %q: %s",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped), row[2], err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %s row %d: amount must be > 0, got %s",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped), amount)
		}
		if row[0] == "" || row[1] == "" {
			return nil, fmt.Errorf("%w: %s row %d: empty from/to address",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped))
		}

		out = append(out, models.TransferInstruction{
			From:   row[0],
			To:     row[1],
			Amount: amount,
		})
	}

	slog.Info("transfer instructions loaded", "path", path, "count", len(out))
	return out, nil
}

// LoadWalletRecords loads a wallet file with columns
// "address, secret(base58), secret(JSON array)". Consumers key off position,
// not header names. Secret columns are optional per row.
func LoadWalletRecords(path string) ([]models.WalletRecord, error) {
	rows, headerSkipped, err := readRows(path)
	if err != nil {
		return nil, err
	}

	out := make([]models.WalletRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 1 || row[0] == "" {
			return nil, fmt.Errorf("%w: %s row %d: empty address",
				config.ErrMalformedRow, path, rowNumber(i, headerSkipped))
		}

		rec := models.WalletRecord{Address: row[0]}
		if len(row) > 1 {
			rec.SecretBase58 = row[1]
		}
		if len(row) > 2 {
			rec.SecretJSON = row[2]
		}
		out = append(out, rec)
	}

	slog.Info("wallet records loaded", "path", path, "count", len(out))
	return out, nil
}
