package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
)

// Outcomes reported to metrics for each polled message
const (
	resultPublished = "published"
	resultRetry     = "retry"
	resultFailed    = "failed"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	metrics          *metrics.Metrics
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		metrics:          m,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := p.ProcessPending(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// ProcessPending delivers one batch and returns how many messages were published
func (p *Poller) ProcessPending(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return 0, nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	published := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if p.deliver(ctx, msg) {
			published++
		}
	}
	return published, nil
}

func (p *Poller) deliver(ctx context.Context, msg *outbox.Message) bool {
	logger := p.logger.With(
		"outbox_id", msg.ID,
		"event_type", string(msg.EventType),
		"aggregate_id", msg.AggregateID.String(),
	)

	if err := p.publisher.Publish(ctx, msg); err != nil {
		logger.Error("Failed to publish outbox message", "current_attempts", msg.Attempts, "error", err)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			logger.Error("Failed to increment attempts for outbox message", "error", errInc)
			return false
		}

		if msg.Attempts+1 >= p.maxRetryAttempts {
			logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH", "attempts_made", msg.Attempts+1)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "error", errUpdate)
				return false
			}
			p.metrics.OutboxMessage(resultFailed)
			return false
		}
		p.metrics.OutboxMessage(resultRetry)
		return false
	}

	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed); err != nil {
		// Delivery is at-least-once; the message is published again on the next tick
		logger.Error("Published outbox message but failed to mark it PROCESSED", "error", err)
		return false
	}

	p.metrics.OutboxMessage(resultPublished)
	logger.Info("Outbox message published and marked as PROCESSED")
	return true
}
