package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/jackc/pgx/v5"
)

type AuditRecorderImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

func NewAuditRecorder(auditRepo audit.Repository, logger *slog.Logger) service.AuditRecorder {
	return &AuditRecorderImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends a sealed entry to the chain inside tx
func (r *AuditRecorderImpl) Record(ctx context.Context, tx pgx.Tx, entityType audit.EntityType, entityID string, changes audit.Changes, actorID *string) error {
	entry := audit.NewEntry(entityType, entityID, changes, actorID, time.Now())

	if err := r.auditRepo.WithTx(tx).Append(ctx, entry); err != nil {
		r.logger.Error("Failed to append audit entry",
			"event_type", string(entry.EventType),
			"entity_type", string(entityType),
			"entity_id", entityID,
			"error", err,
		)
		return fmt.Errorf("failed to record %s audit entry for %s: %w", entry.EventType, entityID, err)
	}

	r.logger.Debug("Audit entry recorded",
		"audit_id", entry.ID,
		"event_type", string(entry.EventType),
		"entity_id", entityID,
	)
	return nil
}
