// Package menu implements the interactive numbered menu.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

// Registrar is the subset of registrar.Service the menu drives.
type Registrar interface {
	ShowStudents(ctx context.Context) (*sqlplus.Result, error)
	ShowCourses(ctx context.Context) (*sqlplus.Result, error)
	ShowClasses(ctx context.Context) (*sqlplus.Result, error)
	Enroll(ctx context.Context, bnum, classID string) (*sqlplus.Result, error)
	Drop(ctx context.Context, bnum, classID string) (*sqlplus.Result, error)
	ClassRoster(ctx context.Context, classID string) (*sqlplus.Result, error)
	DeleteStudent(ctx context.Context, bnum string) (*sqlplus.Result, error)
}

var menuItems = []string{
	"1. Show all students",
	"2. Enroll graduate student in class",
	"3. Drop graduate student from class",
	"4. List students in a class",
	"5. Show all courses",
	"6. Show all classes",
	"7. Delete student",
	"0. Exit",
}

const (
	promptOption = "Enter option number: "
	promptBnum   = "Enter student B#: "
	promptClass  = "Enter class ID: "
	promptDelete = "Enter student B# to delete: "
)

type styles struct {
	heading lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	notice  lipgloss.Style
}

// newStyles binds styles to the output so colors are dropped when it is not
// a terminal.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// Menu is a blocking read-print loop.
type Menu struct {
	reg    Registrar
	in     *bufio.Scanner
	out    io.Writer
	styles styles
}

// New creates a menu reading selections from in and printing to out.
func New(reg Registrar, in io.Reader, out io.Writer) *Menu {
	return &Menu{
		reg:    reg,
		in:     bufio.NewScanner(in),
		out:    out,
		styles: newStyles(out),
	}
}

// Run shows the menu until the user exits, input ends or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printMenu()
		choice, ok := m.prompt(promptOption)
		if !ok {
			m.exit()
			return nil
		}

		log.Debug().Str("choice", choice).Msg("Menu selection")

		switch choice {
		case "0":
			m.exit()
			return nil
		case "1":
			m.listing(m.reg.ShowStudents(ctx))
		case "2":
			if !m.twoFields(ctx, "Enrollment", m.reg.Enroll) {
				m.exit()
				return nil
			}
		case "3":
			if !m.twoFields(ctx, "Drop", m.reg.Drop) {
				m.exit()
				return nil
			}
		case "4":
			classID, ok := m.prompt(promptClass)
			if !ok {
				m.exit()
				return nil
			}
			m.listing(m.reg.ClassRoster(ctx, classID))
		case "5":
			m.listing(m.reg.ShowCourses(ctx))
		case "6":
			m.listing(m.reg.ShowClasses(ctx))
		case "7":
			bnum, ok := m.prompt(promptDelete)
			if !ok {
				m.exit()
				return nil
			}
			res, err := m.reg.DeleteStudent(ctx, bnum)
			m.mutation("Deletion", res, err)
		default:
			fmt.Fprintln(m.out, m.styles.notice.Render("Invalid selection, please try again."))
		}
	}
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.heading.Render("===== Main Menu ====="))
	for _, item := range menuItems {
		fmt.Fprintln(m.out, item)
	}
}

// prompt writes label and reads one trimmed line. It returns false at end of
// input.
func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			log.Error().Err(err).Msg("Failed to read menu input")
		}
		fmt.Fprintln(m.out)
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) twoFields(ctx context.Context, action string, call func(context.Context, string, string) (*sqlplus.Result, error)) bool {
	bnum, ok := m.prompt(promptBnum)
	if !ok {
		return false
	}
	classID, ok := m.prompt(promptClass)
	if !ok {
		return false
	}
	res, err := call(ctx, bnum, classID)
	m.mutation(action, res, err)
	return true
}

func (m *Menu) exit() {
	fmt.Fprintln(m.out, "Exiting.")
}

// listing prints the raw procedure output, database errors included.
func (m *Menu) listing(res *sqlplus.Result, err error) {
	if res != nil {
		if res.Output != "" {
			fmt.Fprintln(m.out, res.Output)
		}
		return
	}
	if err != nil {
		fmt.Fprintln(m.out, m.styles.failure.Render("Error: "+err.Error()))
	}
}

func (m *Menu) mutation(action string, res *sqlplus.Result, err error) {
	if err == nil {
		fmt.Fprintln(m.out, m.styles.success.Render(action+" succeeded."))
		return
	}

	fmt.Fprintln(m.out, m.styles.failure.Render(action+" failed:"))
	if res != nil && res.Output != "" {
		fmt.Fprintln(m.out, res.Output)
		return
	}
	fmt.Fprintln(m.out, err.Error())
}
