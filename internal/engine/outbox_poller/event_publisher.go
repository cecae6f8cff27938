package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message to every downstream sink
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl publishes to Kafka and then archives the event. The archive is
// keyed by outbox id, so a retry after a partial failure does not duplicate it.
type EventPublisherImpl struct {
	producer producers.EventPublisher
	archive  outbox.Archive
	logger   *slog.Logger
}

// NewEventPublisher accepts a nil archive when archiving is disabled
func NewEventPublisher(producer producers.EventPublisher, archive outbox.Archive, logger *slog.Logger) EventPublisher {
	return &EventPublisherImpl{
		producer: producer,
		archive:  archive,
		logger:   logger,
	}
}

func (p *EventPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	event := message.Event()

	if err := p.producer.PublishEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
	}

	if p.archive != nil {
		if err := p.archive.Store(ctx, event); err != nil {
			return fmt.Errorf("published outbox message %d but failed to archive it: %w", message.ID, err)
		}
	}

	p.logger.Debug("Outbox message delivered",
		"outbox_id", message.ID,
		"event_type", string(message.EventType),
		"aggregate_id", message.AggregateID.String(),
	)
	return nil
}
