package handlers

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// DeleteStudent deletes the submitted student after checking that it exists.
// When the check fails for any reason the delete procedure is not called.
func (h *Handlers) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r, fieldBnum)
	if err != nil {
		h.renderFailure(w, r, nil, err)
		return
	}
	bnum := values[0]

	if !h.reg.StudentExists(r.Context(), bnum) {
		h.renderMessage(w, r, http.StatusOK, "Error Message", false, fmt.Sprintf("Error: Student %s does not exist.", bnum))
		return
	}

	res, err := h.reg.DeleteStudent(r.Context(), bnum)
	if err != nil {
		h.renderFailure(w, r, res, err)
		return
	}

	log.Info().Str("bnum", bnum).Msg("Student deleted")
	h.renderMessage(w, r, http.StatusOK, "Delete Success", true, fmt.Sprintf("Student %s has been successfully deleted.", bnum))
}
