package admin_api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/financial-reconciliation-engine/internal/admin_api/handler"
	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/engine/components"
	"github.com/financial-reconciliation-engine/internal/engine/export"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// Dependencies are the collaborators the admin API serves. RequestPublisher and Metrics may be nil.
type Dependencies struct {
	Services         *components.Services
	RequestPublisher producers.MessagePublisher
	Metrics          *metrics.Metrics
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	location := cfg.Reconciliation.Location()
	formatter := currency.NewFormatter(cfg.Currency.Symbol, cfg.Currency.Code)
	presenter := handler.NewPresenter(formatter)
	services := deps.Services

	h := handlers{
		reconciliation: handler.NewReconciliationHandler(log, services.Reconciliation, services.Query, deps.RequestPublisher, presenter, location),
		transaction:    handler.NewTransactionHandler(log, services.Verification),
		correction:     handler.NewCorrectionHandler(log, services.Correction, services.Query, presenter, location),
		discrepancy:    handler.NewDiscrepancyHandler(log, services.Discrepancy, services.Query, presenter, location),
		audit:          handler.NewAuditHandler(log, services.AuditTrail, export.NewExporter(formatter), presenter),
		health:         handler.NewHealthHandler(log, services.Health, services.Query, location),
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = deps.Metrics.Handler()
	}
	setupRouter(log, httpRouter, h, cfg.Metrics.Path, metricsHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server; ctx bounds the wait for in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
