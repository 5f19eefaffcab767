package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maternal-risk-advisor/internal/api"
	"github.com/maternal-risk-advisor/internal/app"
	"github.com/maternal-risk-advisor/internal/config"
	"github.com/maternal-risk-advisor/internal/database"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/middleware"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := app.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithField("address", cfg.Server.Host).WithField("port", cfg.Server.Port).Info("Starting Maternal Risk Advisor")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := make(map[string]domain.HealthChecker)

	// The Postgres audit table is owned by the migrations
	if cfg.Audit.Driver == config.AuditPostgres {
		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		checks["database"] = db

		if err := database.MigrateUp(ctx, configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	recorder, err := app.NewRecorder(cfg, configManager.GetDatabaseURL(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create safety event recorder")
	}

	deps := api.Dependencies{Checks: checks}
	var sink domain.SafetyEventSink
	if recorder != nil {
		defer recorder.Close()
		sink = recorder
		deps.Events = recorder.Store()
	}

	advisor, err := app.NewAdvisor(cfg.Advisor, cfg.Classifier, sink, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create advisor")
	}
	deps.Advisor = advisor.Service
	deps.ClassifierMode = advisor.ClassifierMode
	for name, check := range advisor.Checks {
		deps.Checks[name] = check
	}

	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewClientRateLimiter(cfg.RateLimit)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create rate limiter")
		}
		deps.RateLimiter = limiter
	}

	server := api.NewServer(cfg, deps, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
