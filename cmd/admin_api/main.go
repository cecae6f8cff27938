package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/financial-reconciliation-engine/internal/admin_api"
	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/engine/components"
	"github.com/financial-reconciliation-engine/internal/logger"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("admin_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to apply database migrations", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	services, err := components.CreateServices(
		postgresDB,
		components.NewPostgresRepositories(postgresDB, log),
		cfg,
		m,
		log,
	)
	if err != nil {
		log.Error("Failed to create engine services", "error", err)
		os.Exit(1)
	}

	// Asynchronous reconciliation is optional; without a broker the API still serves synchronous passes
	var requestPublisher producers.MessagePublisher
	requestProducer, err := producers.NewReconcileRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Warn("Reconcile request producer unavailable, async reconciliation disabled", "error", err)
	} else {
		requestPublisher = requestProducer
	}

	server := admin_api.NewServer(log, cfg, admin_api.Dependencies{
		Services:         services,
		RequestPublisher: requestPublisher,
		Metrics:          m,
	})
	log.Info("Admin API initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before closing what they depend on
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if requestProducer != nil {
		if err = requestProducer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
		}
	}

	postgresDB.Close()

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
