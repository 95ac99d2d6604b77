package records

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Fantasim/solbatch/internal/models"
)

// WriteResultCSV writes one result file into outputDir, named after the
// operation with a full timestamp, and returns the path.
func WriteResultCSV(outputDir, opName string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", outputDir, err)
	}

	filename := fmt.Sprintf("%s_%s.csv", opName, time.Now().Format("20060102-150405"))
	path := filepath.Join(outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write result header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write result row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush result file %q: %w", path, err)
	}

	slog.Info("result file written",
		"operation", opName,
		"path", path,
		"rows", len(rows),
	)

	return path, nil
}

// WriteFailedPairs persists batch-drain failures to a timestamped CSV whose
// index column feeds straight back into the --indices allowlist for a retry
// run. Secrets are never written, only indexes and public addresses.
func WriteFailedPairs(outputDir string, pairs []models.FailedPair) (string, error) {
	header := []string{"index", "from_address", "to_address", "failure_reason", "timestamp"}

	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{
			strconv.Itoa(p.Index),
			p.FromAddress,
			p.ToAddress,
			p.Reason,
			p.Timestamp,
		}
	}

	return WriteResultCSV(outputDir, "batch_drain_failed", header, rows)
}
