package handlers

import (
	"net/http"

	"github.com/saltyorg/regshell/internal/health"
)

// NavLink is one entry on the home page.
type NavLink struct {
	Path  string
	Label string
}

var navLinks = []NavLink{
	{Path: "/students", Label: "Show All Students"},
	{Path: "/enroll", Label: "Enroll Graduate Student"},
	{Path: "/drop", Label: "Drop Graduate Student"},
	{Path: "/class", Label: "List Students in Class"},
	{Path: "/courses", Label: "Show All Courses"},
	{Path: "/classes", Label: "Show All Classes"},
	{Path: "/delete", Label: "Delete Student"},
}

// HomePage is the content of home.html. Health is nil when no monitor runs.
type HomePage struct {
	Links  []NavLink
	Health *health.Status
}

// FormPage is the content of form.html.
type FormPage struct {
	Heading string
	Action  string
	Fields  []FormInput
	Warning string
}

// FormInput is a text input on a form page.
type FormInput struct {
	Name  string
	Label string
}

// Home renders the navigation page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	page := HomePage{Links: navLinks}
	if h.health != nil {
		if status := h.health.Status(); status.Checked {
			page.Health = &status
		}
	}
	h.render(w, r, "home.html", http.StatusOK, PageData{
		Title:   "Student Management System",
		Content: page,
	})
}

// EnrollForm renders the enrollment form.
func (h *Handlers) EnrollForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, FormPage{
		Heading: "Enroll Graduate Student",
		Action:  "/enroll",
		Fields:  []FormInput{{Name: "bnum", Label: "Student B#:"}, {Name: "classid", Label: "Class ID:"}},
	})
}

// DropForm renders the drop form.
func (h *Handlers) DropForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, FormPage{
		Heading: "Drop Graduate Student",
		Action:  "/drop",
		Fields:  []FormInput{{Name: "bnum", Label: "Student B#:"}, {Name: "classid", Label: "Class ID:"}},
	})
}

// ClassForm renders the class roster form.
func (h *Handlers) ClassForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, FormPage{
		Heading: "List Students in Class",
		Action:  "/class",
		Fields:  []FormInput{{Name: "classid", Label: "Class ID:"}},
	})
}

// DeleteForm renders the delete form with its warning.
func (h *Handlers) DeleteForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, FormPage{
		Heading: "Delete Student",
		Action:  "/delete",
		Fields:  []FormInput{{Name: "bnum", Label: "Student B# to Delete:"}},
		Warning: "Warning: This action cannot be undone. Please make sure you have the correct student B#.",
	})
}

func (h *Handlers) renderForm(w http.ResponseWriter, r *http.Request, page FormPage) {
	h.render(w, r, "form.html", http.StatusOK, PageData{
		Title:    page.Heading,
		BackLink: true,
		Content:  page,
	})
}
