// Package handlers provides HTTP request handlers
package handlers

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rsaiteja/codegpt/internal/config"
	"github.com/rsaiteja/codegpt/internal/services/ai"
	"github.com/rsaiteja/codegpt/internal/services/auth"
	"github.com/rsaiteja/codegpt/internal/storage"
)

// Handler contains all HTTP handlers and dependencies
type Handler struct {
	cfg         *config.Config
	templates   *template.Template
	authService *auth.Service
	aiService   *ai.Service
	userRepo    *storage.UserRepository
	historyRepo *storage.HistoryRepository
}

// New creates a new handler with all dependencies
func New(
	cfg *config.Config,
	templateDir string,
	authService *auth.Service,
	aiService *ai.Service,
	userRepo *storage.UserRepository,
	historyRepo *storage.HistoryRepository,
) (*Handler, error) {
	tmpl, err := parseTemplates(templateDir)
	if err != nil {
		return nil, err
	}

	return &Handler{
		cfg:         cfg,
		templates:   tmpl,
		authService: authService,
		aiService:   aiService,
		userRepo:    userRepo,
		historyRepo: historyRepo,
	}, nil
}

func parseTemplates(dir string) (*template.Template, error) {
	tmpl := template.New("").Funcs(templateFuncs())

	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, f := range pages {
		if _, err := tmpl.ParseFiles(f); err != nil {
			return nil, err
		}
	}

	return tmpl, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"truncate": func(s string, n int) string {
			if len(s) <= n {
				return s
			}
			return s[:n] + "..."
		},
	}
}

// render renders a template with the given data
func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// redirect performs an HTTP redirect
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// jsonError writes a JSON error response
func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
