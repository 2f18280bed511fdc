// CodeGPT - AI-powered code analysis
// Entry point for the web server
package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsaiteja/codegpt/internal/config"
	"github.com/rsaiteja/codegpt/internal/handlers"
	"github.com/rsaiteja/codegpt/internal/logging"
	"github.com/rsaiteja/codegpt/internal/middleware"
	"github.com/rsaiteja/codegpt/internal/services/ai"
	"github.com/rsaiteja/codegpt/internal/services/auth"
	"github.com/rsaiteja/codegpt/internal/services/mailer"
	"github.com/rsaiteja/codegpt/internal/services/otp"
	"github.com/rsaiteja/codegpt/internal/storage"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := storage.NewUserRepository(db)
	sessionRepo := storage.NewSessionRepository(db)
	otpRepo := storage.NewOTPRepository(db)
	historyRepo := storage.NewHistoryRepository(db)

	// Services
	otpService := otp.NewService(otpRepo, mailer.New(cfg))
	authService := auth.NewService(cfg, userRepo, sessionRepo, otpService)

	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.GeminiAPIKey
	aiService := ai.NewService(aiConfig)

	templateDir := getTemplateDir()
	h, err := handlers.New(cfg, templateDir, authService, aiService, userRepo, historyRepo)
	if err != nil {
		slog.Error("Failed to initialize handlers", "error", err)
		os.Exit(1)
	}

	authMiddleware := middleware.NewAuth(authService)

	mux := http.NewServeMux()

	// Static files
	fs := http.FileServer(http.Dir(getStaticDir()))
	mux.Handle("/static/", http.StripPrefix("/static/", fs))

	// Public routes. Analysis works without an account; results are only
	// recorded to history for logged-in users.
	mux.Handle("/", authMiddleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodPost {
			h.Analyze(w, r)
		} else {
			h.Home(w, r)
		}
	})))
	mux.Handle("/login", authMiddleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Login(w, r)
		} else {
			h.LoginPage(w, r)
		}
	})))
	mux.Handle("/signup", authMiddleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Signup(w, r)
		} else {
			h.SignupPage(w, r)
		}
	})))
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Verify(w, r)
		} else {
			h.VerifyPage(w, r)
		}
	})
	mux.Handle("/logout", authMiddleware.OptionalAuth(http.HandlerFunc(h.Logout)))

	// Protected routes
	mux.Handle("/history", authMiddleware.RequireAuth(http.HandlerFunc(h.HistoryPage)))
	mux.Handle("/profile", authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.ProfileUpdate(w, r)
		} else {
			h.ProfilePage(w, r)
		}
	})))

	// API routes
	mux.Handle("/api/analyze", authMiddleware.RequireAuth(http.HandlerFunc(h.APIAnalyze)))
	mux.Handle("/api/ai/usage", authMiddleware.RequireAuth(http.HandlerFunc(h.AIUsage)))

	// Operational endpoints
	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.SecurityHeaders,
		middleware.Metrics,
		middleware.Logger,
	)

	addr := ":" + cfg.Port
	slog.Info("CodeGPT server starting", "addr", addr, "environment", cfg.Environment)

	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func getTemplateDir() string {
	if _, err := os.Stat("web/templates"); err == nil {
		return "web/templates"
	}

	exe, _ := os.Executable()
	dir := filepath.Dir(exe)
	templateDir := filepath.Join(dir, "web", "templates")
	if _, err := os.Stat(templateDir); err == nil {
		return templateDir
	}

	return "web/templates"
}

func getStaticDir() string {
	if _, err := os.Stat("web/static"); err == nil {
		return "web/static"
	}

	exe, _ := os.Executable()
	dir := filepath.Dir(exe)
	staticDir := filepath.Join(dir, "web", "static")
	if _, err := os.Stat(staticDir); err == nil {
		return staticDir
	}

	return "web/static"
}
