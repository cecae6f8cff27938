package handler

import (
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/admin_api/middleware"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DiscrepancyHandler handles HTTP requests for discrepancy alerts
type DiscrepancyHandler struct {
	discrepancyService service.DiscrepancyService
	queryService       service.QueryService
	presenter          *Presenter
	location           *time.Location
	logger             *slog.Logger
}

func NewDiscrepancyHandler(
	logger *slog.Logger,
	discrepancyService service.DiscrepancyService,
	queryService service.QueryService,
	presenter *Presenter,
	location *time.Location,
) *DiscrepancyHandler {
	return &DiscrepancyHandler{
		discrepancyService: discrepancyService,
		queryService:       queryService,
		presenter:          presenter,
		location:           location,
		logger:             logger,
	}
}

// List returns alerts filtered by status, severity, account and creation time
func (h *DiscrepancyHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	filter, err := h.alertFilter(c)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.queryService.ListDiscrepancies(c.Request.Context(), filter, shared.Pagination{Page: pagination.Page, Limit: pagination.Limit})
	if err != nil {
		respondServiceError(c, h.logger, "Listing discrepancies", err)
		return
	}
	RespondWithPaginatedData(c, h.presenter.Discrepancies(result.Items), result.Page, result.Limit, result.Total)
}

func (h *DiscrepancyHandler) alertFilter(c *gin.Context) (reconciliation.AlertFilter, error) {
	var filter reconciliation.AlertFilter
	var err error

	if raw := c.Query("status"); raw != "" {
		status := reconciliation.AlertStatus(raw)
		if status != reconciliation.AlertStatusOpen && status != reconciliation.AlertStatusResolved {
			return filter, errInvalidParam("status", raw)
		}
		filter.Status = &status
	}
	if raw := c.Query("severity"); raw != "" {
		severity := reconciliation.Severity(raw)
		switch severity {
		case reconciliation.SeverityLow, reconciliation.SeverityMedium, reconciliation.SeverityHigh:
			filter.Severity = &severity
		default:
			return filter, errInvalidParam("severity", raw)
		}
	}
	if filter.AccountID, err = parseUUIDParam("account_id", c.Query("account_id")); err != nil {
		return filter, err
	}
	if filter.From, err = parseTimeParam("from", c.Query("from"), h.location); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeParam("to", c.Query("to"), h.location); err != nil {
		return filter, err
	}
	return filter, nil
}

// Resolve closes an OPEN alert with the operator's notes
func (h *DiscrepancyHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid discrepancy ID")
		return
	}

	var req ResolveDiscrepancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	alert, err := h.discrepancyService.Resolve(c.Request.Context(), id, req.Notes, middleware.GetActorID(c))
	if err != nil {
		respondServiceError(c, h.logger, "Discrepancy resolution", err)
		return
	}
	RespondOK(c, h.presenter.Discrepancy(alert))
}
