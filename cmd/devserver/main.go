package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcoot/teachkit/internal/config"
	"github.com/mcoot/teachkit/internal/dependencies/clock"
	"github.com/mcoot/teachkit/internal/dependencies/random"
	"github.com/mcoot/teachkit/internal/devserver"
	"github.com/mcoot/teachkit/internal/model"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	level := slog.LevelInfo
	if v := os.Getenv(config.EnvLogLevel); v != "" {
		if l, err := config.ParseLevel(v); err == nil {
			level = l
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	accountsCfg := devserver.DefaultAccountsConfig()
	accountsCfg.RequireVerification = os.Getenv("DEVSERVER_REQUIRE_VERIFICATION") == "true"
	accounts := devserver.NewAccounts(clock.New(), random.New(), accountsCfg)

	adminPassword := os.Getenv("DEVSERVER_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin12345"
		logger.Warn("DEVSERVER_ADMIN_PASSWORD not set, using the default admin password")
	}
	if _, err := accounts.Seed("admin", "admin@localhost", adminPassword, model.RoleAdministrator); err != nil {
		logger.Error("failed to seed admin account", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := devserver.NewRouter(devserver.RouterConfig{
		Logger:    logger,
		Accounts:  accounts,
		Registry:  reg,
		DevRoutes: os.Getenv("DEVSERVER_DEV_ROUTES") != "false",
	})

	serverConfig := devserver.DefaultServerConfig()
	if v := os.Getenv("DEVSERVER_HOST"); v != "" {
		serverConfig.Host = v
	}
	if v := os.Getenv("DEVSERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			logger.Error("invalid DEVSERVER_PORT", slog.String("value", v))
			os.Exit(1)
		}
		serverConfig.Port = port
	}
	server := devserver.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("devserver stopped")
}
