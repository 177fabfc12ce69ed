package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvocationStatus is the outcome of an invocation
type InvocationStatus string

const (
	StatusOK              InvocationStatus = "ok"
	StatusProcedureError  InvocationStatus = "procedure_error"
	StatusConnectionError InvocationStatus = "connection_error"
	StatusInvalidInput    InvocationStatus = "invalid_input"
)

// Invocation is one audited procedure call
type Invocation struct {
	ID         string
	Procedure  string
	Args       []string
	Source     string
	Status     InvocationStatus
	ErrorCode  string
	Output     string
	DurationMS int64
	CreatedAt  time.Time
}

// InsertInvocation stores inv, filling in ID and CreatedAt when unset.
func (db *DB) InsertInvocation(ctx context.Context, inv *Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	args := inv.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation args: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO invocations (id, procedure, args, source, status, error_code, output, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.Procedure, string(argsJSON), inv.Source, string(inv.Status),
		nullString(inv.ErrorCode), inv.Output, inv.DurationMS, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invocation: %w", err)
	}
	return nil
}

// ListInvocations returns the most recent invocations, newest first.
func (db *DB) ListInvocations(ctx context.Context, limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, procedure, args, source, status, error_code, output, duration_ms, created_at
		FROM invocations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var invocations []*Invocation
	for rows.Next() {
		var inv Invocation
		var argsJSON, status string
		var errorCode sql.NullString
		if err := rows.Scan(&inv.ID, &inv.Procedure, &argsJSON, &inv.Source, &status,
			&errorCode, &inv.Output, &inv.DurationMS, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &inv.Args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args of invocation %s: %w", inv.ID, err)
		}
		inv.Status = InvocationStatus(status)
		inv.ErrorCode = nullStringValue(errorCode)
		invocations = append(invocations, &inv)
	}

	return invocations, rows.Err()
}

// PruneInvocations deletes invocations created before cutoff and returns how many were removed.
func (db *DB) PruneInvocations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM invocations WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned invocations: %w", err)
	}
	return n, nil
}
