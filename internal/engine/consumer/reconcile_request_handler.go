package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
)

// ReconcileRequestHandler runs reconciliation passes requested over Kafka
type ReconcileRequestHandler struct {
	reconciliationService service.ReconciliationService
	producer              producers.DeadLetterPublisher
	logger                *slog.Logger
}

func NewReconcileRequestHandler(
	logger *slog.Logger,
	reconciliationService service.ReconciliationService,
	producer producers.DeadLetterPublisher,
) *ReconcileRequestHandler {
	return &ReconcileRequestHandler{
		reconciliationService: reconciliationService,
		producer:              producer,
		logger:                logger,
	}
}

// HandleMessage returns nil once the request is reconciled or parked in the DLQ; any other
// error leaves the offset uncommitted so the request is redelivered.
func (h *ReconcileRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.ReconcileRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal reconcile request from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, "malformed reconcile request", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}
	logger.Info("Received reconcile request",
		"request_id", request.RequestID.String(),
		"date", request.Date,
		"requested_by", request.RequestedBy,
	)

	record, err := h.reconciliationService.Reconcile(ctx, &request)
	if err != nil {
		var dateErr reconciliation.ErrInvalidDate
		if errors.As(err, &dateErr) {
			logger.Warn("Reconcile request has an invalid date", "request_id", request.RequestID.String(), "date", request.Date)
			return h.deadLetter(ctx, key, value, "invalid reconciliation date", err)
		}
		logger.Error("Failed to reconcile", "request_id", request.RequestID.String(), "error", err)
		return fmt.Errorf("reconcile request %s failed: %w", request.RequestID.String(), err)
	}

	logger.Info("Reconcile request completed",
		"request_id", request.RequestID.String(),
		"record_id", record.ID.String(),
		"status", string(record.Status),
	)
	return nil
}

// deadLetter parks a message that can never succeed. If the DLQ is unavailable the
// cause is returned so the message stays uncommitted.
func (h *ReconcileRequestHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("%s: %w", reason, cause)
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("%s: %w", reason, cause)
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
	return nil
}
