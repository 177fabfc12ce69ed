package registrar

import (
	"context"
	"errors"

	"github.com/saltyorg/regshell/internal/database"
	"github.com/saltyorg/regshell/internal/sqlplus"
)

// InvocationStore persists audit rows.
type InvocationStore interface {
	InsertInvocation(ctx context.Context, inv *database.Invocation) error
}

// AuditRecorder writes invocations to the audit log.
type AuditRecorder struct {
	store InvocationStore
}

// NewAuditRecorder creates a recorder backed by store.
func NewAuditRecorder(store InvocationStore) *AuditRecorder {
	return &AuditRecorder{store: store}
}

// RecordInvocation implements Recorder.
func (a *AuditRecorder) RecordInvocation(ctx context.Context, inv Invocation) error {
	row := &database.Invocation{
		Procedure:  inv.Procedure,
		Args:       inv.Args,
		Source:     inv.Source,
		Status:     statusOf(inv.Err),
		ErrorCode:  sqlplus.Code(inv.Err),
		Output:     inv.Output,
		DurationMS: inv.Duration.Milliseconds(),
	}
	if inv.Err != nil && row.Output == "" {
		row.Output = inv.Err.Error()
	}
	return a.store.InsertInvocation(ctx, row)
}

func statusOf(err error) database.InvocationStatus {
	switch {
	case err == nil:
		return database.StatusOK
	case errors.Is(err, sqlplus.ErrConnection):
		return database.StatusConnectionError
	case errors.Is(err, sqlplus.ErrInvalidInput):
		return database.StatusInvalidInput
	default:
		return database.StatusProcedureError
	}
}
