package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
)

// EventProducer publishes financial events keyed by aggregate, so events of one
// account or record keep their order within a partition
type EventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EventProducer, error) {
	if cfg.EventsTopic == "" {
		return nil, fmt.Errorf("kafka events topic is not configured")
	}
	if err := ensureTopic(cfg, cfg.EventsTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure events topic %s exists: %w", cfg.EventsTopic, err)
	}

	return &EventProducer{
		logger: logger,
		writer: newSyncWriter(cfg, cfg.EventsTopic, logger),
		topic:  cfg.EventsTopic,
	}, nil
}

func (p *EventProducer) PublishEvent(ctx context.Context, event *outbox.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %d: %w", event.OutboxID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish financial event",
			"topic", p.topic,
			"outbox_id", event.OutboxID,
			"event_type", string(event.Type),
			"error", err,
		)
		return fmt.Errorf("failed to publish event %d to %s: %w", event.OutboxID, p.topic, err)
	}

	p.logger.Debug("Published financial event",
		"topic", p.topic,
		"outbox_id", event.OutboxID,
		"event_type", string(event.Type),
	)
	return nil
}

func (p *EventProducer) Close() error {
	p.logger.Info("Closing financial event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
