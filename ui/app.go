package ui

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mcsim/app"
)

//go:embed templates/*
var embeddedFiles embed.FS

// App serves the HTML pages and mounts the JSON API
type App struct {
	router    *chi.Mux
	service   *app.SimulationService
	api       http.Handler
	templates *template.Template
}

// NewApp creates the UI application. api is mounted under /api.
func NewApp(service *app.SimulationService, api http.Handler) (*App, error) {
	funcMap := template.FuncMap{
		"mul": func(a, b int) int { return a * b },
		"num": func(v float64) string {
			if math.IsNaN(v) {
				return "n/a"
			}
			return fmt.Sprintf("%.4g", v)
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		api:       api,
		templates: templates,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}/report", a.handleReport)
	a.router.Get("/runs/{id}/report.md", a.handleReportMarkdown)
}

// ServeHTTP makes App usable as an http.Handler. API requests bypass the
// page middleware: event streams must not be compressed or buffered.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.api != nil && strings.HasPrefix(r.URL.Path, "/api/") {
		a.api.ServeHTTP(w, r)
		return
	}
	a.router.ServeHTTP(w, r)
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("[UI] Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
