package drain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Fantasim/solbatch/internal/models"
	"github.com/Fantasim/solbatch/internal/records"
)

// BatchOptions parameterize a run over many (source, destination) pairs.
// Template carries the per-drain options shared by every pair; its SecretKey,
// KeyFile and Destination fields are overwritten per pair.
type BatchOptions struct {
	Template  Options
	Indices   []int // optional zero-based allowlist
	OutputDir string
}

// Coordinator applies the drain orchestrator across positionally paired
// source wallets and destination addresses.
type Coordinator struct {
	Orchestrator *Orchestrator
}

// Run drains min(len(sources), len(dests)) pairs. Individual pair failures
// are recorded, classified and written to a failed-pairs CSV; the run itself
// only errors when the CSV cannot be written.
func (c *Coordinator) Run(
	ctx context.Context,
	sources []models.WalletRecord,
	dests []string,
	opts BatchOptions,
) ([]models.FailedPair, error) {
	count := len(sources)
	if len(dests) < count {
		count = len(dests)
	}
	if len(sources) != len(dests) {
		slog.Warn("source and destination counts differ, shorter list bounds the run",
			"sources", len(sources),
			"destinations", len(dests),
			"pairs", count,
		)
	}

	allowed := allowlist(opts.Indices, count)

	var failed []models.FailedPair
	succeeded := 0

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("batch drain cancelled", "error", err)
			break
		}

		if allowed != nil && !allowed[i] {
			slog.Info("pair skipped: not in index allowlist", "index", i)
			continue
		}

		src := sources[i]
		dst := dests[i]

		if !src.HasSecret() {
			slog.Error("pair failed: wallet carries no secret", "index", i, "from", src.Address)
			failed = append(failed, failedPair(i, src.Address, dst, "no private key"))
			continue
		}

		pair := opts.Template
		pair.Destination = dst
		pair.SecretKey = src.SecretBase58
		pair.KeyFile = ""
		if pair.SecretKey == "" {
			// JSON-array secrets load through the raw-secret path too.
			pair.SecretKey = src.SecretJSON
		}

		res, err := c.Orchestrator.Run(ctx, pair)
		if err != nil {
			reason := classifyFailure(err.Error())
			slog.Error("pair drain failed", "index", i, "from", src.Address, "reason", reason)
			failed = append(failed, failedPair(i, src.Address, dst, reason))
			continue
		}

		succeeded++
		slog.Info("pair drained",
			"index", i,
			"from", src.Address,
			"to", dst,
			"subErrors", len(res.Errors),
		)
	}

	slog.Info("batch drain complete",
		"pairs", count,
		"succeeded", succeeded,
		"failed", len(failed),
	)

	if len(failed) > 0 {
		path, err := records.WriteFailedPairs(opts.OutputDir, failed)
		if err != nil {
			return failed, err
		}
		slog.Info("failed pairs written, retry with --indices from this file", "path", path)
	}

	return failed, nil
}

// allowlist builds the set of permitted indices, dropping out-of-range
// entries with a log line. Nil means every index is permitted.
func allowlist(indices []int, count int) map[int]bool {
	if len(indices) == 0 {
		return nil
	}
	allowed := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= count {
			slog.Error("invalid pair index ignored", "index", idx, "pairs", count)
			continue
		}
		allowed[idx] = true
	}
	return allowed
}

// classifyFailure maps common failure messages to stable reason strings the
// retry workflow can match on.
func classifyFailure(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient funds"), strings.Contains(lower, "insufficient balance"):
		return "insufficient funds for operation"
	case strings.Contains(lower, "rent"):
		return "insufficient funds for rent"
	default:
		return msg
	}
}

func failedPair(index int, from, to, reason string) models.FailedPair {
	return models.FailedPair{
		Index:       index,
		FromAddress: from,
		ToAddress:   to,
		Reason:      reason,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}
