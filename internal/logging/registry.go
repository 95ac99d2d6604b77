package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Fantasim/solbatch/internal/config"
)

// Registry owns one log file per input path. Each input file (recipients
// CSV, wallet CSV, ...) gets a sibling ".log" file so a user can correlate
// a run with the input that drove it. Files are opened on first use and
// closed by Close at process exit.
type Registry struct {
	mu      sync.Mutex
	level   slog.Level
	files   map[string]*os.File
	loggers map[string]*slog.Logger
}

// NewRegistry creates an empty logger registry at the given level.
func NewRegistry(level slog.Level) *Registry {
	return &Registry{
		level:   level,
		files:   make(map[string]*os.File),
		loggers: make(map[string]*slog.Logger),
	}
}

// For returns the logger bound to inputPath, creating the sibling log file
// on first use. If the file cannot be opened the default logger is returned,
// so callers never receive nil.
func (r *Registry) For(inputPath string) *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lg, ok := r.loggers[inputPath]; ok {
		return lg
	}

	logPath := LogPathFor(inputPath)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("failed to open per-input log file, falling back to default logger",
			"inputPath", inputPath,
			"logPath", logPath,
			"error", err,
		)
		r.loggers[inputPath] = slog.Default()
		return slog.Default()
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, file), &slog.HandlerOptions{
		Level: r.level,
	})
	lg := slog.New(handler).With("input", filepath.Base(inputPath))

	r.files[inputPath] = file
	r.loggers[inputPath] = lg

	slog.Debug("per-input log file opened", "inputPath", inputPath, "logPath", logPath)
	return lg
}

// Close flushes and closes every log file opened by the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for path, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close log file for %q: %w", path, err)
		}
	}
	r.files = make(map[string]*os.File)
	r.loggers = make(map[string]*slog.Logger)
	return firstErr
}

// LogPathFor derives the per-input log file path: same directory, input base
// name with its extension replaced by ".log".
func LogPathFor(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + config.InputLogSuffix
}
