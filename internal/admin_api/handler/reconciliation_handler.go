package handler

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/financial-reconciliation-engine/internal/admin_api/middleware"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles HTTP requests for reconciliation passes
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	queryService          service.QueryService
	publisher             producers.MessagePublisher
	presenter             *Presenter
	location              *time.Location
	logger                *slog.Logger
}

// NewReconciliationHandler accepts a nil publisher; asynchronous requests are then refused
func NewReconciliationHandler(
	logger *slog.Logger,
	reconciliationService service.ReconciliationService,
	queryService service.QueryService,
	publisher producers.MessagePublisher,
	presenter *Presenter,
	location *time.Location,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		queryService:          queryService,
		publisher:             publisher,
		presenter:             presenter,
		location:              location,
		logger:                logger,
	}
}

// Reconcile runs a pass for the requested date, or queues it when async=true
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	async := false
	if raw := c.Query("async"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid async flag")
			return
		}
		async = parsed
	}

	request := &shared.ReconcileRequest{
		RequestID:     uuid.New(),
		Date:          req.Date,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now().UTC(),
	}
	if actorID := middleware.GetActorID(c); actorID != nil {
		request.RequestedBy = *actorID
	}

	if async {
		h.enqueue(c, request)
		return
	}

	record, err := h.reconciliationService.Reconcile(c.Request.Context(), request)
	if err != nil {
		respondServiceError(c, h.logger, "Reconciliation", err)
		return
	}
	RespondCreated(c, h.presenter.Reconciliation(record))
}

func (h *ReconciliationHandler) enqueue(c *gin.Context, request *shared.ReconcileRequest) {
	day, err := reconciliation.ParseDate(request.Date, time.Now(), h.location)
	if err != nil {
		RespondValidationError(c, err.Error())
		return
	}
	if h.publisher == nil {
		RespondUnavailable(c, "Asynchronous reconciliation is not enabled")
		return
	}

	request.Date = day.Format(reconciliation.DateLayout)
	if err := h.publisher.Publish(c.Request.Context(), request.RequestID.String(), request); err != nil {
		h.logger.Error("Failed to queue reconcile request",
			"request_id", request.RequestID.String(),
			"correlation_id", request.CorrelationID,
			"error", err,
		)
		RespondUnavailable(c, "Failed to queue reconciliation request, retry later")
		return
	}

	RespondAccepted(c, gin.H{
		"request_id": request.RequestID.String(),
		"date":       request.Date,
		"status":     "QUEUED",
	})
}

// List returns reconciliation records, newest first, filtered by date and status
func (h *ReconciliationHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	var filter reconciliation.RecordFilter
	if date := c.Query("date"); date != "" {
		if _, err := time.Parse(reconciliation.DateLayout, date); err != nil {
			RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}
	if raw := c.Query("status"); raw != "" {
		status := reconciliation.Status(raw)
		if status != reconciliation.StatusReconciled && status != reconciliation.StatusDiscrepancyFound {
			RespondBadRequest(c, "Invalid status")
			return
		}
		filter.Status = &status
	}

	result, err := h.queryService.ListReconciliations(c.Request.Context(), filter, shared.Pagination{Page: pagination.Page, Limit: pagination.Limit})
	if err != nil {
		respondServiceError(c, h.logger, "Listing reconciliations", err)
		return
	}

	records := make([]ReconciliationResponse, 0, len(result.Items))
	for _, r := range result.Items {
		records = append(records, h.presenter.Reconciliation(r))
	}
	RespondWithPaginatedData(c, records, result.Page, result.Limit, result.Total)
}

// GetByID returns one reconciliation record with its discrepancies
func (h *ReconciliationHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid reconciliation ID")
		return
	}

	record, err := h.queryService.GetReconciliation(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, "Fetching reconciliation", err)
		return
	}
	RespondOK(c, h.presenter.Reconciliation(record))
}
