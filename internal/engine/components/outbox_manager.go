package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Enqueue stores a financial event in the caller's transaction. It is published only after commit.
func (m *OutboxManagerImpl) Enqueue(ctx context.Context, tx pgx.Tx, eventType outbox.EventType, aggregateID uuid.UUID, payload any) error {
	message, err := outbox.NewMessage(eventType, aggregateID, payload)
	if err != nil {
		m.logger.Error("Failed to create new outbox message (marshal payload)",
			"event_type", string(eventType),
			"aggregate_id", aggregateID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for %s: %w", aggregateID.String(), err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		m.logger.Error("Failed to create outbox message",
			"event_type", string(eventType),
			"aggregate_id", aggregateID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for %s: %w", aggregateID.String(), err)
	}
	m.logger.Debug("Outbox message created",
		"event_type", string(eventType),
		"outbox_id", message.ID,
	)

	return nil
}
