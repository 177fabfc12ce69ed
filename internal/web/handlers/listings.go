package handlers

import (
	"context"
	"net/http"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

// Students lists all students.
func (h *Handlers) Students(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "All Students", h.reg.ShowStudents)
}

// Courses lists all courses.
func (h *Handlers) Courses(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "All Courses", h.reg.ShowCourses)
}

// Classes lists all classes.
func (h *Handlers) Classes(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "All Classes", h.reg.ShowClasses)
}

// listing renders whatever the procedure printed. Only a client that never
// produced output gets the error page.
func (h *Handlers) listing(w http.ResponseWriter, r *http.Request, title string, show func(context.Context) (*sqlplus.Result, error)) {
	res, err := show(r.Context())
	if res == nil {
		h.renderFailure(w, r, nil, err)
		return
	}
	h.renderList(w, r, title, title, res)
}

// ClassRoster lists the students enrolled in the submitted class.
func (h *Handlers) ClassRoster(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r, fieldClassID)
	if err != nil {
		h.renderFailure(w, r, nil, err)
		return
	}
	classID := values[0]

	res, err := h.reg.ClassRoster(r.Context(), classID)
	if res == nil {
		h.renderFailure(w, r, nil, err)
		return
	}

	heading := "Students in Class " + classID
	h.renderList(w, r, heading, heading, res)
}
