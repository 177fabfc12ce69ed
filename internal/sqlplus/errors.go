package sqlplus

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrConnection means the client could not be started, timed out, or
	// could not reach the database.
	ErrConnection = errors.New("database connection failed")
	// ErrInvalidInput means an argument was missing or cannot be passed to SQL*Plus safely.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means a lookup matched no rows.
	ErrNotFound = errors.New("not found")
)

// markerPattern matches Oracle (ORA-01234) and SQL*Plus (SP2-0123) error codes.
var markerPattern = regexp.MustCompile(`\b(ORA-\d{5}|SP2-\d{4})\b:?\s*(.*)`)

// connectionCodes are error codes that mean the database was never reached.
var connectionCodes = map[string]bool{
	"ORA-01017": true, // invalid username/password
	"ORA-01034": true, // ORACLE not available
	"ORA-03113": true, // end-of-file on communication channel
	"ORA-03114": true, // not connected to ORACLE
	"ORA-12154": true, // could not resolve the connect identifier
	"ORA-12170": true, // connect timeout
	"ORA-12514": true, // listener does not know of service
	"ORA-12541": true, // no listener
	"ORA-12543": true, // destination host unreachable
	"ORA-28000": true, // account locked
	"SP2-0306":  true, // invalid option on CONNECT
	"SP2-0640":  true, // not connected
	"SP2-0157":  true, // unable to CONNECT after 3 attempts
}

// ProcedureError is an error reported by the database in the client output.
type ProcedureError struct {
	Name    string // procedure or script name
	Code    string // e.g. ORA-20002
	Message string // text following the code on the same line
	Output  string // complete filtered client output
}

func (e *ProcedureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Name, e.Code, e.Message)
}

// Connection reports whether the code means the database was unreachable.
func (e *ProcedureError) Connection() bool {
	return connectionCodes[e.Code]
}

// Is lets errors.Is(err, ErrConnection) match connection-class codes.
func (e *ProcedureError) Is(target error) bool {
	return target == ErrConnection && e.Connection()
}

// classify scans the filtered output for the first error marker.
func classify(name string, lines []string) error {
	for _, line := range lines {
		m := markerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return &ProcedureError{
			Name:    name,
			Code:    m[1],
			Message: strings.TrimSpace(m[2]),
			Output:  strings.Join(lines, "\n"),
		}
	}
	return nil
}

// Code returns the database error code carried by err, or "" if there is none.
func Code(err error) string {
	var procErr *ProcedureError
	if errors.As(err, &procErr) {
		return procErr.Code
	}
	return ""
}
