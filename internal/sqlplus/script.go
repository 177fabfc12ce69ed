package sqlplus

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// maxBindLength is the declared size of every bind variable.
	maxBindLength = 2000
	// maxLineLength is the longest input line SQL*Plus accepts; longer lines
	// are dropped with SP2-0027.
	maxLineLength = 2499
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*$`)

// preamble applies to every script. DEFINE OFF stops '&' in values from
// being treated as a substitution variable.
var preamble = []string{
	"SET SERVEROUTPUT ON",
	"SET FEEDBACK OFF",
	"SET VERIFY OFF",
	"SET DEFINE OFF",
	"SET HEADING OFF",
}

type bind struct {
	name  string
	value string
}

// Script is a SQL*Plus script body. It never contains connection details;
// the executor prepends those when it runs the script.
type Script struct {
	binds  []bind
	blocks []string
}

// NewScript returns an empty script.
func NewScript() *Script {
	return &Script{}
}

// Bind declares a VARCHAR2 bind variable that later blocks can reference as
// :name. The value is validated and escaped; it is the only place user
// input enters the script text.
func (s *Script) Bind(name, value string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: invalid bind name %q", ErrInvalidInput, name)
	}
	if err := ValidateValue(value); err != nil {
		return err
	}
	if len(assignment(name, value)) > maxLineLength {
		return fmt.Errorf("%w: value too long once quoted", ErrInvalidInput)
	}
	s.binds = append(s.binds, bind{name: name, value: value})
	return nil
}

// Block appends a PL/SQL block. The terminating "/" is added automatically.
func (s *Script) Block(plsql string) *Script {
	s.blocks = append(s.blocks, strings.TrimSpace(plsql)+"\n/")
	return s
}

// Statement appends a plain SQL statement, which must end with ";".
func (s *Script) Statement(sql string) *Script {
	s.blocks = append(s.blocks, strings.TrimSpace(sql))
	return s
}

// String renders the script, ending with EXIT so the client terminates.
func (s *Script) String() string {
	var b strings.Builder
	for _, line := range preamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if len(s.binds) > 0 {
		for _, v := range s.binds {
			fmt.Fprintf(&b, "VARIABLE %s VARCHAR2(%d)\n", v.name, maxBindLength)
		}
		b.WriteString("BEGIN\n")
		for _, v := range s.binds {
			b.WriteString(assignment(v.name, v.value))
			b.WriteByte('\n')
		}
		b.WriteString("END;\n/\n")
	}

	for _, block := range s.blocks {
		b.WriteString(block)
		b.WriteByte('\n')
	}

	b.WriteString("EXIT;\n")
	return b.String()
}

// Procedure builds a script that calls pkg.name with args passed as binds
// :p1..:pN, in order.
func Procedure(pkg, name string, args ...string) (*Script, error) {
	if !identifierPattern.MatchString(pkg) {
		return nil, fmt.Errorf("%w: invalid package name %q", ErrInvalidInput, pkg)
	}
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid procedure name %q", ErrInvalidInput, name)
	}

	s := NewScript()
	params := make([]string, 0, len(args))
	for i, arg := range args {
		bindName := fmt.Sprintf("p%d", i+1)
		if err := s.Bind(bindName, arg); err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, name, err)
		}
		params = append(params, ":"+bindName)
	}

	call := pkg + "." + name
	if len(params) > 0 {
		call += "(" + strings.Join(params, ", ") + ")"
	}
	s.Block("BEGIN\n  " + call + ";\nEND;")
	return s, nil
}

// ValidateValue rejects values SQL*Plus cannot carry on a single line.
func ValidateValue(value string) error {
	if len(value) > maxBindLength {
		return fmt.Errorf("%w: value longer than %d bytes", ErrInvalidInput, maxBindLength)
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: value contains control characters", ErrInvalidInput)
		}
	}
	return nil
}

func assignment(name, value string) string {
	return "  :" + name + " := " + quoteLiteral(value) + ";"
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
