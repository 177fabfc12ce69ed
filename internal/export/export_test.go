package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

type fakeLister struct {
	lines []string
	err   error
	last  string
}

func (f *fakeLister) result(name string) (*sqlplus.Result, error) {
	f.last = name
	if f.err != nil {
		return &sqlplus.Result{Name: name}, f.err
	}
	return &sqlplus.Result{Name: name, Lines: f.lines}, nil
}

func (f *fakeLister) ShowStudents(ctx context.Context) (*sqlplus.Result, error) {
	return f.result("show_students")
}

func (f *fakeLister) ShowCourses(ctx context.Context) (*sqlplus.Result, error) {
	return f.result("show_courses")
}

func (f *fakeLister) ShowClasses(ctx context.Context) (*sqlplus.Result, error) {
	return f.result("show_classes")
}

func TestListing_DispatchesByName(t *testing.T) {
	tests := []struct {
		name      string
		sheet     string
		procedure string
	}{
		{"students", "Students", "show_students"},
		{"courses", "Courses", "show_courses"},
		{"classes", "Classes", "show_classes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLister{lines: []string{"a, b"}}
			sheet, lines, err := Listing(context.Background(), l, tt.name)
			if err != nil {
				t.Fatalf("Listing returned error: %v", err)
			}
			if sheet != tt.sheet || l.last != tt.procedure || len(lines) != 1 {
				t.Errorf("expected sheet %s via %s, got sheet %s via %s (%d lines)", tt.sheet, tt.procedure, sheet, l.last, len(lines))
			}
		})
	}
}

func TestListing_Errors(t *testing.T) {
	if _, _, err := Listing(context.Background(), &fakeLister{}, "grades"); !errors.Is(err, sqlplus.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown listing, got %v", err)
	}

	perr := &sqlplus.ProcedureError{Name: "show_students", Code: "ORA-00942"}
	if _, _, err := Listing(context.Background(), &fakeLister{err: perr}, "students"); !errors.Is(err, perr) {
		t.Errorf("expected procedure error, got %v", err)
	}
}

func TestWrite_SplitsLinesIntoCells(t *testing.T) {
	lines := []string{
		"B001, John, Smith, 3.5",
		"B002,Jane ,Doe",
		"single",
	}

	var buf bytes.Buffer
	if err := Write(&buf, "Students", lines); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	if name := f.GetSheetName(0); name != "Students" {
		t.Fatalf("expected sheet Students, got %q", name)
	}

	rows, err := f.GetRows("Students")
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	expected := [][]string{
		{"B001", "John", "Smith", "3.5"},
		{"B002", "Jane", "Doe"},
		{"single"},
	}
	if len(rows) != len(expected) {
		t.Fatalf("expected %d rows, got %d: %q", len(expected), len(rows), rows)
	}
	for i := range expected {
		if len(rows[i]) != len(expected[i]) {
			t.Fatalf("row %d: expected %q, got %q", i, expected[i], rows[i])
		}
		for j := range expected[i] {
			if rows[i][j] != expected[i][j] {
				t.Errorf("row %d col %d: expected %q, got %q", i, j, expected[i][j], rows[i][j])
			}
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.xlsx")

	if err := WriteFile(path, "Courses", []string{"CS101, Intro"}); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open saved workbook: %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue("Courses", "B1")
	if err != nil {
		t.Fatalf("GetCellValue returned error: %v", err)
	}
	if v != "Intro" {
		t.Errorf("expected B1 to be Intro, got %q", v)
	}
}

func TestWorkbook_EmptyListing(t *testing.T) {
	f, err := Workbook("Classes", nil)
	if err != nil {
		t.Fatalf("Workbook returned error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Classes")
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}
