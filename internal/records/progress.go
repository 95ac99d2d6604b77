package records

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fantasim/solbatch/internal/config"
	"github.com/Fantasim/solbatch/internal/models"
)

// ProgressPathFor derives the progress snapshot path for an input file:
// same directory, base name with its extension replaced by the fixed suffix.
// Pure function, used for both read and write, so a given input file always
// maps to the same snapshot location.
func ProgressPathFor(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + config.ProgressFileSuffix
}

// LoadProgress loads a prior transfer-record snapshot. A missing file is not
// an error (returns nil records); an unparseable file is a fatal
// configuration error, never silently skipped.
func LoadProgress(path string) ([]models.TransferRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress snapshot %q: %w", path, err)
	}

	var recs []models.TransferRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", config.ErrProgressCorrupted, path, err)
	}

	completed := 0
	for _, r := range recs {
		if r.Completed {
			completed++
		}
	}

	slog.Info("progress snapshot loaded",
		"path", path,
		"records", len(recs),
		"completed", completed,
	)

	return recs, nil
}

// SaveProgress overwrites the snapshot with a pretty-printed serialization of
// the full record list. Called after every single successful transfer, so
// killing the process at any point loses at most the in-flight operation.
func SaveProgress(path string, recs []models.TransferRecord) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write progress snapshot %q: %w", path, err)
	}

	return nil
}

// LoadInstructionProgress is LoadProgress for many-to-many instruction runs.
func LoadInstructionProgress(path string) ([]models.TransferInstruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress snapshot %q: %w", path, err)
	}

	var recs []models.TransferInstruction
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", config.ErrProgressCorrupted, path, err)
	}

	slog.Info("instruction progress snapshot loaded", "path", path, "records", len(recs))
	return recs, nil
}

// SaveInstructionProgress is SaveProgress for many-to-many instruction runs.
func SaveInstructionProgress(path string, recs []models.TransferInstruction) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write progress snapshot %q: %w", path, err)
	}

	return nil
}
