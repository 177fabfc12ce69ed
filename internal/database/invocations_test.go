package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}

	var version int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), version)
	}
}

func TestInsertInvocation_RoundTripsAllColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inv := &Invocation{
		Procedure:  "enroll_grad_student",
		Args:       []string{"B00123456", "CS101"},
		Source:     "web",
		Status:     StatusProcedureError,
		ErrorCode:  "ORA-20002",
		Output:     "ORA-20002: Student is already enrolled",
		DurationMS: 42,
	}
	if err := db.InsertInvocation(ctx, inv); err != nil {
		t.Fatalf("InsertInvocation returned error: %v", err)
	}
	if inv.ID == "" {
		t.Fatal("expected ID to be assigned")
	}

	saved, err := db.ListInvocations(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvocations returned error: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(saved))
	}

	got := saved[0]
	if got.ID != inv.ID || got.Procedure != inv.Procedure || got.Source != inv.Source {
		t.Fatalf("unexpected identity columns: %+v", got)
	}
	if len(got.Args) != 2 || got.Args[0] != "B00123456" || got.Args[1] != "CS101" {
		t.Fatalf("expected args to round-trip, got %q", got.Args)
	}
	if got.Status != StatusProcedureError || got.ErrorCode != "ORA-20002" {
		t.Fatalf("expected status/code %s/%s, got %s/%s", StatusProcedureError, "ORA-20002", got.Status, got.ErrorCode)
	}
	if got.Output != inv.Output || got.DurationMS != 42 {
		t.Fatalf("expected output and duration to round-trip, got %q/%d", got.Output, got.DurationMS)
	}
}

func TestInsertInvocation_NoErrorCodeStoredAsNull(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertInvocation(ctx, &Invocation{Procedure: "show_students", Source: "cli", Status: StatusOK}); err != nil {
		t.Fatalf("InsertInvocation returned error: %v", err)
	}

	var nullCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM invocations WHERE error_code IS NULL").Scan(&nullCount); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if nullCount != 1 {
		t.Fatalf("expected error_code to be NULL, got %d null rows", nullCount)
	}

	saved, err := db.ListInvocations(ctx, 0)
	if err != nil {
		t.Fatalf("ListInvocations returned error: %v", err)
	}
	if len(saved[0].Args) != 0 {
		t.Fatalf("expected empty args, got %q", saved[0].Args)
	}
}

func TestListInvocations_NewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, proc := range []string{"show_students", "show_courses", "show_classes"} {
		inv := &Invocation{Procedure: proc, Source: "cli", Status: StatusOK, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.InsertInvocation(ctx, inv); err != nil {
			t.Fatalf("InsertInvocation returned error: %v", err)
		}
	}

	saved, err := db.ListInvocations(ctx, 2)
	if err != nil {
		t.Fatalf("ListInvocations returned error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(saved))
	}
	if saved[0].Procedure != "show_classes" || saved[1].Procedure != "show_courses" {
		t.Fatalf("expected newest first, got %s, %s", saved[0].Procedure, saved[1].Procedure)
	}
}

func TestPruneInvocations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &Invocation{Procedure: "show_students", Source: "cli", Status: StatusOK, CreatedAt: now.Add(-48 * time.Hour)}
	recent := &Invocation{Procedure: "show_courses", Source: "cli", Status: StatusOK, CreatedAt: now}
	for _, inv := range []*Invocation{old, recent} {
		if err := db.InsertInvocation(ctx, inv); err != nil {
			t.Fatalf("InsertInvocation returned error: %v", err)
		}
	}

	n, err := db.PruneInvocations(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneInvocations returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned row, got %d", n)
	}

	if err := db.Vacuum(); err != nil {
		t.Fatalf("Vacuum returned error: %v", err)
	}

	saved, err := db.ListInvocations(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvocations returned error: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != recent.ID {
		t.Fatalf("expected only the recent invocation to remain, got %d rows", len(saved))
	}
}

func TestSplitSQLStatements(t *testing.T) {
	statements := splitSQLStatements(`
		-- comment
		CREATE TABLE a (id INTEGER);

		CREATE INDEX idx_a ON a(id);
		SELECT 1
	`)

	if len(statements) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(statements), statements)
	}
	if statements[2] != "SELECT 1" {
		t.Errorf("expected trailing statement without semicolon, got %q", statements[2])
	}
}
