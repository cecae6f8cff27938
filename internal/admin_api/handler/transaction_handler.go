package handler

import (
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles HTTP requests for transaction integrity checks
type TransactionHandler struct {
	verificationService service.VerificationService
	logger              *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, verificationService service.VerificationService) *TransactionHandler {
	return &TransactionHandler{
		verificationService: verificationService,
		logger:              logger,
	}
}

// Verify runs every integrity check on the transaction. Failed checks are reported in the
// body with 200; only a missing transaction is a 404.
func (h *TransactionHandler) Verify(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	result, err := h.verificationService.Verify(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, "Transaction verification", err)
		return
	}
	RespondOK(c, result)
}
