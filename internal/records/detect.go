package records

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Fantasim/solbatch/internal/config"
)

// FileFormat classifies a destination-addresses file.
type FileFormat int

const (
	// FormatPlain is one address per line.
	FormatPlain FileFormat = iota
	// FormatDelimited is a CSV with the address in the first column.
	FormatDelimited
)

// DetectFormat applies the documented heuristic: a comma anywhere in the
// first line means delimited, otherwise plain. Isolated here so the
// coordinator logic never sniffs file contents itself.
func DetectFormat(firstLine string) FileFormat {
	if strings.Contains(firstLine, ",") {
		return FormatDelimited
	}
	return FormatPlain
}

// LoadDestinations loads a destination-addresses file in either format.
func LoadDestinations(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", config.ErrInputFileMissing, path)
		}
		return nil, fmt.Errorf("open destinations file %q: %w", path, err)
	}

	scanner := bufio.NewScanner(f)
	var firstLine string
	for scanner.Scan() {
		firstLine = strings.TrimSpace(scanner.Text())
		if firstLine != "" {
			break
		}
	}
	f.Close()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read destinations file %q: %w", path, err)
	}
	if firstLine == "" {
		return nil, nil
	}

	format := DetectFormat(firstLine)

	if format == FormatDelimited {
		rows, _, err := readRows(path)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(rows))
		for _, row := range rows {
			if len(row) > 0 && row[0] != "" {
				out = append(out, row[0])
			}
		}
		slog.Info("destinations loaded", "path", path, "format", "delimited", "count", len(out))
		return out, nil
	}

	// Plain: one address per line.
	f, err = os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopen destinations file %q: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner = bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read destinations file %q: %w", path, err)
	}

	slog.Info("destinations loaded", "path", path, "format", "plain", "count", len(out))
	return out, nil
}
