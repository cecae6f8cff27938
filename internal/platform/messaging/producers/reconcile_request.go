package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/segmentio/kafka-go"
)

// ReconcileRequestProducer queues reconciliation requests for the worker
type ReconcileRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewReconcileRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReconcileRequestProducer, error) {
	if cfg.ReconcileTopic == "" {
		return nil, fmt.Errorf("kafka reconcile topic is not configured")
	}
	if err := ensureTopic(cfg, cfg.ReconcileTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure reconcile topic %s exists: %w", cfg.ReconcileTopic, err)
	}

	return &ReconcileRequestProducer{
		logger: logger,
		writer: newSyncWriter(cfg, cfg.ReconcileTopic, logger),
		topic:  cfg.ReconcileTopic,
	}, nil
}

func (p *ReconcileRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal reconcile request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reconcile request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish reconcile request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reconcile request", "topic", p.topic, "key", key)
	return nil
}

func (p *ReconcileRequestProducer) Close() error {
	p.logger.Info("Closing reconcile request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
