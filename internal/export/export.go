// Package export writes procedure listings to spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

// Lister runs the listing procedures.
type Lister interface {
	ShowStudents(ctx context.Context) (*sqlplus.Result, error)
	ShowCourses(ctx context.Context) (*sqlplus.Result, error)
	ShowClasses(ctx context.Context) (*sqlplus.Result, error)
}

type listing struct {
	sheet string
	run   func(Lister, context.Context) (*sqlplus.Result, error)
}

var listings = map[string]listing{
	"students": {sheet: "Students", run: Lister.ShowStudents},
	"courses":  {sheet: "Courses", run: Lister.ShowCourses},
	"classes":  {sheet: "Classes", run: Lister.ShowClasses},
}

// Names returns the exportable listing names, sorted.
func Names() []string {
	names := make([]string, 0, len(listings))
	for name := range listings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Listing runs the named listing. A database error in the output fails the
// export rather than writing the error text into the workbook.
func Listing(ctx context.Context, l Lister, name string) (sheet string, lines []string, err error) {
	def, ok := listings[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown listing %q (want one of %s)", sqlplus.ErrInvalidInput, name, strings.Join(Names(), ", "))
	}
	res, err := def.run(l, ctx)
	if err != nil {
		return "", nil, err
	}
	return def.sheet, res.Lines, nil
}

// Workbook builds a workbook with one sheet holding one row per line. Cells
// are the comma-separated fields of the line, trimmed.
func Workbook(sheet string, lines []string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
	}

	widest := 0
	for i, line := range lines {
		fields := strings.Split(line, ",")
		row := make([]any, len(fields))
		for j, field := range fields {
			row[j] = strings.TrimSpace(field)
		}
		widest = max(widest, len(fields))

		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if widest > 0 {
		last, err := excelize.ColumnNumberToName(widest)
		if err == nil {
			if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
				log.Debug().Err(err).Str("sheet", sheet).Msg("Failed to set column width")
			}
		}
	}

	return f, nil
}

// Write writes the workbook for lines to w.
func Write(w io.Writer, sheet string, lines []string) error {
	f, err := Workbook(sheet, lines)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close workbook")
		}
	}()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook for lines at path.
func WriteFile(path, sheet string, lines []string) error {
	f, err := Workbook(sheet, lines)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	log.Info().Str("path", path).Str("sheet", sheet).Int("rows", len(lines)).Msg("Listing exported")
	return nil
}
