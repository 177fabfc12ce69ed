// Package web serves the HTML front-end.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/regshell/internal/config"
	"github.com/saltyorg/regshell/internal/web/handlers"
	"github.com/saltyorg/regshell/internal/web/middleware"
)

//go:embed templates/*
var templatesFS embed.FS

// pageTemplates are parsed together with base.html.
var pageTemplates = []string{
	"home.html",
	"list.html",
	"form.html",
	"message.html",
}

// Server represents the web server
type Server struct {
	port       int
	bind       string
	allowedNet *net.IPNet
	router     *chi.Mux
	templates  map[string]*template.Template
	handlers   *handlers.Handlers
}

// NewServer creates a new web server
func NewServer(reg handlers.Registrar, port int, bind string, allowedNet *net.IPNet) (*Server, error) {
	s := &Server{
		port:       port,
		bind:       bind,
		allowedNet: allowedNet,
		router:     chi.NewRouter(),
	}

	if err := s.loadTemplates(); err != nil {
		return nil, err
	}
	s.handlers = handlers.New(reg, s.templates)
	s.setupRoutes()

	return s, nil
}

// SetHealth shows monitor results on the home page.
func (s *Server) SetHealth(r handlers.StatusReporter) {
	s.handlers.SetHealth(r)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// loadTemplates parses each page template with the base template.
func (s *Server) loadTemplates() error {
	s.templates = make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		tmpl, err := template.New("").ParseFS(templatesFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}
	return nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers

	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(s.allowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.GetTimeouts().Request))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	r.Get("/", h.Home)
	r.Get("/students", h.Students)
	r.Get("/courses", h.Courses)
	r.Get("/classes", h.Classes)

	r.Get("/enroll", h.EnrollForm)
	r.Post("/enroll", h.Enroll)
	r.Get("/drop", h.DropForm)
	r.Post("/drop", h.Drop)
	r.Get("/class", h.ClassForm)
	r.Post("/class", h.ClassRoster)
	r.Get("/delete", h.DeleteForm)
	r.Post("/delete", h.DeleteStudent)
}

// Start starts the web server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	var addr string
	if s.bind != "" {
		addr = net.JoinHostPort(s.bind, fmt.Sprint(s.port))
	} else {
		addr = fmt.Sprintf(":%d", s.port)
	}

	timeouts := config.GetTimeouts()
	server := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: timeouts.ReadTimeout,
		// The router's Timeout middleware bounds handler time; the write
		// deadline only has to outlast it.
		WriteTimeout: timeouts.Request + timeouts.ReadTimeout,
		IdleTimeout:  timeouts.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
