package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

// maxFormBytes caps request bodies.
const maxFormBytes = 1 << 20

// FieldError represents a validation error for a form field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap lets callers treat every field error as invalid input.
func (e FieldError) Unwrap() error {
	return sqlplus.ErrInvalidInput
}

type formField struct {
	Name  string
	Label string
}

var (
	fieldBnum    = formField{Name: "bnum", Label: "Student B#"}
	fieldClassID = formField{Name: "classid", Label: "Class ID"}
)

// formValues parses the urlencoded body and returns the trimmed value of each
// field, in order. Missing or blank fields are reported as a FieldError.
func formValues(w http.ResponseWriter, r *http.Request, fields ...formField) ([]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, FieldError{Field: "request body", Message: fmt.Sprintf("exceeds %d bytes", tooLarge.Limit)}
		}
		return nil, FieldError{Field: "form", Message: "could not be parsed"}
	}

	values := make([]string, 0, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(r.PostForm.Get(f.Name))
		if v == "" {
			return nil, FieldError{Field: f.Label, Message: "is required"}
		}
		values = append(values, v)
	}
	return values, nil
}
