package admin_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/financial-reconciliation-engine/internal/admin_api/handler"
	"github.com/financial-reconciliation-engine/internal/admin_api/middleware"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	reconciliation *handler.ReconciliationHandler
	transaction    *handler.TransactionHandler
	correction     *handler.CorrectionHandler
	discrepancy    *handler.DiscrepancyHandler
	audit          *handler.AuditHandler
	health         *handler.HealthHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers, metricsPath string, metricsHandler http.Handler) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Actor())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		reconciliations := v1.Group("/reconciliations")
		{
			reconciliations.POST("", h.reconciliation.Reconcile)
			reconciliations.GET("", h.reconciliation.List)
			reconciliations.GET("/:id", h.reconciliation.GetByID)
		}

		v1.GET("/transactions/:id/verify", h.transaction.Verify)

		corrections := v1.Group("/corrections")
		{
			corrections.POST("", h.correction.Create)
			corrections.GET("", h.correction.List)
		}

		discrepancies := v1.Group("/discrepancies")
		{
			discrepancies.GET("", h.discrepancy.List)
			discrepancies.POST("/:id/resolve", h.discrepancy.Resolve)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/trail", h.audit.Trail)
			audit.GET("/verify", h.audit.VerifyChain)
		}

		healthChecks := v1.Group("/health-checks")
		{
			healthChecks.POST("", h.health.Run)
			healthChecks.GET("", h.health.List)
		}
	}

	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	// Liveness of the process, unrelated to financial health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
