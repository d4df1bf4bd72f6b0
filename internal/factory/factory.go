package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/teachkit/internal/audit"
	auditmemory "github.com/mcoot/teachkit/internal/audit/memory"
	auditredis "github.com/mcoot/teachkit/internal/audit/redis"
	"github.com/mcoot/teachkit/internal/config"
	"github.com/mcoot/teachkit/internal/dependencies/clock"
	"github.com/mcoot/teachkit/internal/enforce"
	"github.com/mcoot/teachkit/internal/flow"
	"github.com/mcoot/teachkit/internal/gateway"
	"github.com/mcoot/teachkit/internal/metrics"
	"github.com/mcoot/teachkit/internal/session"
)

// App contains all wired core components
type App struct {
	Config config.Config

	// External dependencies
	Clock    clock.Scheduler
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Side log (nil AuditLog when disabled)
	AuditLog audit.Log
	Recorder *audit.Recorder

	// Core
	Store     *session.Store
	Gateway   *gateway.Gateway
	SignIn    *flow.SignInFlow
	Reset     *flow.ResetFlow
	Lifecycle *flow.Lifecycle
	Enforcer  *enforce.Enforcer

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Core is the loaded teachkit configuration.
	// If zero value, defaults to config.Default()
	Core config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Registry collects metrics (optional)
	// If nil, a fresh registry is created
	Registry *prometheus.Registry
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	core := cfg.Core
	if core.Gateway.BaseURL == "" {
		core = config.Default()
	}

	auditLog, closer, err := newAuditLog(core.Audit)
	if err != nil {
		return nil, err
	}

	app, err := newWithDependencies(core, auditLog, clock.New(), cfg.Registry, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	return app, nil
}

// newAuditLog creates the side log selected by cfg.Storage
func newAuditLog(cfg config.AuditConfig) (audit.Log, io.Closer, error) {
	switch cfg.Storage {
	case "", config.AuditStorageMemory:
		return auditmemory.New(cfg.Capacity), nil, nil
	case config.AuditStorageNone:
		return nil, nil, nil
	case config.AuditStorageRedis:
		if cfg.Redis.URL == "" {
			return nil, nil, errors.New("redis url required when audit storage is redis")
		}
		log, err := auditredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		return log, log, nil
	default:
		return nil, nil, fmt.Errorf("invalid audit storage %q: must be 'memory', 'redis' or 'none'", cfg.Storage)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(core config.Config, auditLog audit.Log, clk clock.Scheduler, reg *prometheus.Registry, logger *slog.Logger) (*App, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	gw, err := gateway.New(core.Gateway, m, logger)
	if err != nil {
		return nil, err
	}

	var recorder *audit.Recorder
	if auditLog != nil {
		recorder = audit.NewRecorder(auditLog, clk, logger)
	}

	store := session.New(logger)
	opts := flow.Options{
		Config:    core.Flow,
		Scheduler: clk,
		Recorder:  recorder,
		Metrics:   m,
		Logger:    logger,
	}
	signIn := flow.NewSignInFlow(gw, store, opts)

	return &App{
		Config:    core,
		Clock:     clk,
		Registry:  reg,
		Metrics:   m,
		AuditLog:  auditLog,
		Recorder:  recorder,
		Store:     store,
		Gateway:   gw,
		SignIn:    signIn,
		Reset:     flow.NewResetFlow(gw, signIn, opts),
		Lifecycle: flow.NewLifecycle(gw, store, opts),
		Enforcer:  enforce.New(store, clk, core.Enforce, m, logger),
	}, nil
}

// Close releases the enforcer subscription and any open connections
func (a *App) Close() error {
	a.Enforcer.Close()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
