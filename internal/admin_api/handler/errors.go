package handler

import (
	"errors"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// respondServiceError maps engine errors onto HTTP statuses. Store outages become 503 so
// callers can retry; anything unrecognised is logged and hidden behind a 500.
func respondServiceError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	var dateErr reconciliation.ErrInvalidDate

	switch {
	case errors.Is(err, shared.ErrUnavailable):
		logger.Error(operation+" failed: store unavailable", "error", err)
		RespondUnavailable(c, "")

	case errors.Is(err, correction.ErrInvalidAmountFormat{}),
		errors.Is(err, correction.ErrReasonRequired),
		errors.Is(err, audit.ErrInvalidDateRange{}),
		errors.Is(err, reconciliation.ErrResolutionNotesRequired),
		errors.As(err, &dateErr):
		logger.Warn(operation+" rejected", "error", err)
		RespondValidationError(c, err.Error())

	case errors.Is(err, account.ErrAccountNotFound{}),
		errors.Is(err, ledger.ErrTransactionNotFound{}),
		errors.Is(err, reconciliation.ErrRecordNotFound{}),
		errors.Is(err, reconciliation.ErrAlertNotFound{}):
		RespondNotFound(c, rootMessage(err))

	case errors.Is(err, reconciliation.ErrAlertAlreadyResolved{}):
		RespondConflict(c, rootMessage(err))

	default:
		logger.Error(operation+" failed", "error", err)
		RespondInternalError(c)
	}
}

// rootMessage strips the wrapping context added by services so clients see the domain message
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
