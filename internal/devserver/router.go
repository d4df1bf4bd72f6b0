package devserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/teachkit/internal/middleware"
)

// RouterConfig holds configuration for the stand-in backend router
type RouterConfig struct {
	Logger     *slog.Logger
	Accounts   *Accounts
	CookieName string
	// Registry receives the server's metrics and is served on /metrics.
	// Nil means a private registry.
	Registry *prometheus.Registry
	// DevRoutes enables /api/dev/*
	DevRoutes bool
}

// NewRouter creates the stand-in backend's router
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	logger := cfg.Logger.With(slog.String("component", "devserver"))
	m := newServerMetrics(cfg.Registry)

	h := &Handler{
		accounts:   cfg.Accounts,
		cookieName: cfg.CookieName,
		metrics:    m,
		logger:     logger,
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger, m.observe))

	// Recovery sits innermost so the logged status is the 500 it writes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Recovery(logger, panicHandler))

	api.HandleFunc("/session-check", h.SessionCheck).Methods(http.MethodGet)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodGet)
	api.HandleFunc("/password-reset", h.PasswordReset).Methods(http.MethodPost)

	if cfg.DevRoutes {
		dev := api.PathPrefix("/dev").Subrouter()
		dev.HandleFunc("/verify", h.Verify).Methods(http.MethodPost)
		dev.HandleFunc("/role", h.SetRole).Methods(http.MethodPost)
		dev.HandleFunc("/crash", h.Crash).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
