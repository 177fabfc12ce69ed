package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/regshell/internal/health"
	"github.com/saltyorg/regshell/internal/sqlplus"
)

// Registrar is the subset of registrar.Service the handlers use.
type Registrar interface {
	ShowStudents(ctx context.Context) (*sqlplus.Result, error)
	ShowCourses(ctx context.Context) (*sqlplus.Result, error)
	ShowClasses(ctx context.Context) (*sqlplus.Result, error)
	Enroll(ctx context.Context, bnum, classID string) (*sqlplus.Result, error)
	Drop(ctx context.Context, bnum, classID string) (*sqlplus.Result, error)
	ClassRoster(ctx context.Context, classID string) (*sqlplus.Result, error)
	DeleteStudent(ctx context.Context, bnum string) (*sqlplus.Result, error)
	StudentExists(ctx context.Context, bnum string) bool
}

// StatusReporter reports the last database health probe.
type StatusReporter interface {
	Status() health.Status
}

// Handlers contains all HTTP handlers. It holds no per-request state.
type Handlers struct {
	reg       Registrar
	templates map[string]*template.Template
	health    StatusReporter
}

// New creates a new Handlers instance
func New(reg Registrar, templates map[string]*template.Template) *Handlers {
	return &Handlers{
		reg:       reg,
		templates: templates,
	}
}

// SetHealth shows the last health probe on the home page. It must be called
// before the server starts.
func (h *Handlers) SetHealth(r StatusReporter) {
	h.health = r
}

// PageData contains common data for all pages
type PageData struct {
	Title    string
	BackLink bool
	Content  any
}

// ListPage is the content of list.html.
type ListPage struct {
	Heading string
	Lines   []string
}

// MessagePage is the content of message.html. Lines are joined with <br>.
type MessagePage struct {
	Success bool
	Lines   []string
}

// render executes a page template into a buffer first so a template error
// still produces a clean 500.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, status int, data PageData) {
	tmpl, ok := h.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("Template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		log.Error().Err(err).Str("template", name).Str("request_id", middleware.GetReqID(r.Context())).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderList shows one list item per output line, database error lines
// included. A connection-class error code in the output keeps the list but
// answers 502.
func (h *Handlers) renderList(w http.ResponseWriter, r *http.Request, title, heading string, res *sqlplus.Result) {
	status := http.StatusOK
	if errors.Is(res.Err, sqlplus.ErrConnection) {
		status = http.StatusBadGateway
	}
	h.render(w, r, "list.html", status, PageData{
		Title:    title,
		BackLink: true,
		Content:  ListPage{Heading: heading, Lines: res.Lines},
	})
}

// renderMessage shows a success or error box.
func (h *Handlers) renderMessage(w http.ResponseWriter, r *http.Request, status int, title string, success bool, text string) {
	h.render(w, r, "message.html", status, PageData{
		Title:    title,
		BackLink: true,
		Content:  MessagePage{Success: success, Lines: strings.Split(text, "\n")},
	})
}

// renderFailure shows the error page for a failed call. The raw client
// output is preferred over the error text so database messages reach the
// user unchanged.
func (h *Handlers) renderFailure(w http.ResponseWriter, r *http.Request, res *sqlplus.Result, err error) {
	status := http.StatusOK
	switch {
	case errors.Is(err, sqlplus.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, sqlplus.ErrConnection):
		status = http.StatusBadGateway
	}

	text := err.Error()
	if res != nil && res.Output != "" {
		text = res.Output
	}

	log.Debug().
		Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("code", sqlplus.Code(err)).
		Msg("Rendering error page")

	h.renderMessage(w, r, status, "Error Message", false, text)
}

// redirect redirects to a URL
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// NotFound renders the 404 page. It also answers unsupported methods.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderMessage(w, r, http.StatusNotFound, "Not Found", false, "Error: "+r.URL.Path+" was not found.")
}
