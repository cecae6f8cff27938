package handler

import (
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/admin_api/middleware"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrectionHandler handles HTTP requests for balance corrections
type CorrectionHandler struct {
	correctionService service.CorrectionService
	queryService      service.QueryService
	presenter         *Presenter
	location          *time.Location
	logger            *slog.Logger
}

func NewCorrectionHandler(
	logger *slog.Logger,
	correctionService service.CorrectionService,
	queryService service.QueryService,
	presenter *Presenter,
	location *time.Location,
) *CorrectionHandler {
	return &CorrectionHandler{
		correctionService: correctionService,
		queryService:      queryService,
		presenter:         presenter,
		location:          location,
		logger:            logger,
	}
}

// Create applies a balance correction on behalf of the request's actor
func (h *CorrectionHandler) Create(c *gin.Context) {
	var req CorrectBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	applied, err := h.correctionService.CorrectBalance(c.Request.Context(), correction.Request{
		AccountID:      accountID,
		CurrentBalance: req.CurrentBalance,
		CorrectBalance: req.CorrectBalance,
		Reason:         req.Reason,
		Evidence:       req.Evidence,
	}, middleware.GetActorID(c))
	if err != nil {
		respondServiceError(c, h.logger, "Balance correction", err)
		return
	}
	RespondCreated(c, h.presenter.Correction(applied))
}

// List returns corrections, newest first, filtered by account and creation time
func (h *CorrectionHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	var filter correction.Filter
	var err error
	if filter.AccountID, err = parseUUIDParam("account_id", c.Query("account_id")); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if filter.From, err = parseTimeParam("from", c.Query("from"), h.location); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if filter.To, err = parseTimeParam("to", c.Query("to"), h.location); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.queryService.ListCorrections(c.Request.Context(), filter, shared.Pagination{Page: pagination.Page, Limit: pagination.Limit})
	if err != nil {
		respondServiceError(c, h.logger, "Listing corrections", err)
		return
	}

	corrections := make([]CorrectionResponse, 0, len(result.Items))
	for _, item := range result.Items {
		corrections = append(corrections, h.presenter.Correction(item))
	}
	RespondWithPaginatedData(c, corrections, result.Page, result.Limit, result.Total)
}
