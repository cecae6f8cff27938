package handler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles HTTP requests for financial health checks
type HealthHandler struct {
	healthService service.HealthService
	queryService  service.QueryService
	location      *time.Location
	logger        *slog.Logger
}

func NewHealthHandler(logger *slog.Logger, healthService service.HealthService, queryService service.QueryService, location *time.Location) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
		queryService:  queryService,
		location:      location,
		logger:        logger,
	}
}

// Run takes and stores a new health snapshot
func (h *HealthHandler) Run(c *gin.Context) {
	check, err := h.healthService.MonitorFinancialHealth(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "Financial health check", err)
		return
	}
	RespondCreated(c, check)
}

// List returns stored snapshots, newest first
func (h *HealthHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	var filter health.Filter
	var err error
	if raw := c.Query("status"); raw != "" {
		status := health.Status(raw)
		if status != health.StatusHealthy && status != health.StatusIssuesDetected {
			RespondBadRequest(c, errInvalidParam("status", raw).Error())
			return
		}
		filter.Status = &status
	}
	if filter.From, err = parseTimeParam("from", c.Query("from"), h.location); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if filter.To, err = parseTimeParam("to", c.Query("to"), h.location); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.queryService.ListHealthChecks(c.Request.Context(), filter, shared.Pagination{Page: pagination.Page, Limit: pagination.Limit})
	if err != nil {
		respondServiceError(c, h.logger, "Listing health checks", err)
		return
	}
	RespondWithPaginatedData(c, result.Items, result.Page, result.Limit, result.Total)
}

func errInvalidParam(name, value string) error {
	return fmt.Errorf("invalid %s %q", name, value)
}
