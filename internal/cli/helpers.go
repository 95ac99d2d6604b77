package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/records"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM. The loops
// check it between submissions, so an interrupt lands between records with
// the snapshot already persisted.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resumeRecords loads transfer records, preferring the progress snapshot
// beside the input file when one exists and still matches the input length.
// Returns the records and the snapshot path to keep writing to.
func resumeRecords(inputPath string) ([]models.TransferRecord, string, error) {
	progressPath := records.ProgressPathFor(inputPath)

	snapshot, err := records.LoadProgress(progressPath)
	if err != nil {
		return nil, "", err
	}

	recs, err := records.LoadTransferRecords(inputPath)
	if err != nil {
		return nil, "", err
	}

	if snapshot == nil {
		return recs, progressPath, nil
	}
	if len(snapshot) != len(recs) {
		slog.Warn("progress snapshot does not match input, starting fresh",
			"snapshot", len(snapshot),
			"input", len(recs),
		)
		return recs, progressPath, nil
	}

	completed := 0
	for _, r := range snapshot {
		if r.Completed {
			completed++
		}
	}
	slog.Info("resuming from progress snapshot",
		"path", progressPath,
		"completed", completed,
		"total", len(snapshot),
	)
	return snapshot, progressPath, nil
}

// resumeInstructions is resumeRecords for the many-to-many instructions format.
func resumeInstructions(inputPath string) ([]models.TransferInstruction, string, error) {
	progressPath := records.ProgressPathFor(inputPath)

	snapshot, err := records.LoadInstructionProgress(progressPath)
	if err != nil {
		return nil, "", err
	}

	recs, err := records.LoadTransferInstructions(inputPath)
	if err != nil {
		return nil, "", err
	}

	if snapshot == nil {
		return recs, progressPath, nil
	}
	if len(snapshot) != len(recs) {
		slog.Warn("progress snapshot does not match input, starting fresh",
			"snapshot", len(snapshot),
			"input", len(recs),
		)
		return recs, progressPath, nil
	}

	completed := 0
	for _, r := range snapshot {
		if r.Completed {
			completed++
		}
	}
	slog.Info("resuming from progress snapshot",
		"path", progressPath,
		"completed", completed,
		"total", len(snapshot),
	)
	return snapshot, progressPath, nil
}

// writeTransferResult persists a result CSV for a recipients run.
func writeTransferResult(opName string, recs []models.TransferRecord) {
	header := []string{"address", "amount", "completed"}
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{r.Address, r.Amount.String(), strconv.FormatBool(r.Completed)}
	}
	if _, err := records.WriteResultCSV(cfg.OutputDir, opName, header, rows); err != nil {
		slog.Error("result file write failed", "operation", opName, "error", err)
	}
}
