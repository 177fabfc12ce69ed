package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

// Enroll enrolls a graduate student and redirects to the student list.
func (h *Handlers) Enroll(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "enroll", h.reg.Enroll)
}

// Drop drops a graduate student and redirects to the student list.
func (h *Handlers) Drop(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "drop", h.reg.Drop)
}

func (h *Handlers) mutate(w http.ResponseWriter, r *http.Request, action string, call func(context.Context, string, string) (*sqlplus.Result, error)) {
	values, err := formValues(w, r, fieldBnum, fieldClassID)
	if err != nil {
		h.renderFailure(w, r, nil, err)
		return
	}

	res, err := call(r.Context(), values[0], values[1])
	if err != nil {
		h.renderFailure(w, r, res, err)
		return
	}

	log.Info().Str("action", action).Str("bnum", values[0]).Str("class_id", values[1]).Msg("Enrollment change applied")
	h.redirect(w, r, "/students")
}
