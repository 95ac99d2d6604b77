package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/solbatch/internal/models"
)

// Record inserts one history entry. Failures are logged and swallowed: the
// history is bookkeeping, never a reason to abort an in-flight operation.
// Satisfies the engine's HistoryRecorder.
func (d *DB) Record(entry models.HistoryEntry) {
	var confirmedAt any
	if entry.Status == "confirmed" {
		confirmedAt = time.Now().UTC().Format(time.RFC3339)
	}

	result, err := d.conn.Exec(
		`INSERT INTO history (operation, signature, mint, amount, from_address, to_address, status, confirmed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Operation,
		entry.Signature,
		entry.Mint,
		entry.Amount,
		entry.FromAddress,
		entry.ToAddress,
		entry.Status,
		confirmedAt,
	)
	if err != nil {
		slog.Error("history insert failed", "signature", entry.Signature, "error", err)
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		slog.Error("history insert id unavailable", "signature", entry.Signature, "error", err)
		return
	}

	slog.Debug("history recorded",
		"id", id,
		"operation", entry.Operation,
		"signature", entry.Signature,
		"status", entry.Status,
	)
}

// GetBySignature retrieves a history entry by transaction signature.
func (d *DB) GetBySignature(signature string) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	var confirmedAt sql.NullString

	err := d.conn.QueryRow(
		`SELECT id, operation, signature, mint, amount, from_address, to_address, status, created_at, confirmed_at
		 FROM history WHERE signature = ? LIMIT 1`,
		signature,
	).Scan(
		&entry.ID, &entry.Operation, &entry.Signature, &entry.Mint, &entry.Amount,
		&entry.FromAddress, &entry.ToAddress, &entry.Status, &entry.CreatedAt, &confirmedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get history by signature %s: %w", signature, err)
	}

	if confirmedAt.Valid {
		entry.ConfirmedAt = confirmedAt.String
	}

	return &entry, nil
}

// List returns paginated history entries, newest first, optionally filtered
// by operation type.
func (d *DB) List(operation string, page, pageSize int) ([]models.HistoryEntry, int64, error) {
	offset := (page - 1) * pageSize

	where := "1=1"
	var args []interface{}
	if operation != "" {
		where = "operation = ?"
		args = append(args, operation)
	}

	var total int64
	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)
	if err := d.conn.QueryRow("SELECT COUNT(*) FROM history WHERE "+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	queryArgs := append(args, pageSize, offset)
	rows, err := d.conn.Query(
		`SELECT id, operation, signature, mint, amount, from_address, to_address, status, created_at, confirmed_at
		 FROM history WHERE `+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		queryArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var confirmedAt sql.NullString

		if err := rows.Scan(
			&entry.ID, &entry.Operation, &entry.Signature, &entry.Mint, &entry.Amount,
			&entry.FromAddress, &entry.ToAddress, &entry.Status, &entry.CreatedAt, &confirmedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}

		if confirmedAt.Valid {
			entry.ConfirmedAt = confirmedAt.String
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history rows: %w", err)
	}

	return entries, total, nil
}
