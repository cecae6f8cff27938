// Package mongo keeps an immutable archive of published financial events in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
)

// EventArchive implements the outbox.Archive interface for MongoDB
type EventArchive struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewEventArchive creates a new MongoDB event archive over collection
func NewEventArchive(logger *slog.Logger, collection *mongo.Collection) *EventArchive {
	return &EventArchive{
		collection: collection,
		logger:     logger,
	}
}

// EnsureIndexes creates the unique outbox_id index that makes Store idempotent
func (a *EventArchive) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "outbox_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "aggregate_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		},
	})
	if err != nil {
		a.logger.Error("Failed to create event archive indexes", "error", err)
		return persistence.WrapStoreError("failed to create event archive indexes", err)
	}
	return nil
}

// Store inserts the event unless one with the same outbox ID is already archived.
// The payload is stored as a document rather than a string so it stays queryable.
func (a *EventArchive) Store(ctx context.Context, event *outbox.Event) error {
	var payload bson.M
	if err := bson.UnmarshalExtJSON(event.Payload, false, &payload); err != nil {
		return fmt.Errorf("failed to convert event payload: %w", err)
	}

	filter := bson.M{"outbox_id": event.OutboxID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"outbox_id":    event.OutboxID,
			"type":         event.Type,
			"aggregate_id": event.AggregateID,
			"payload":      payload,
			"occurred_at":  event.OccurredAt,
			"archived_at":  time.Now().UTC(),
		},
	}

	_, err := a.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two upserts racing on the unique index; the other one stored it.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		a.logger.Error("Failed to archive event",
			"outbox_id", event.OutboxID,
			"type", string(event.Type),
			"error", err)
		return persistence.WrapStoreError("failed to archive event", err)
	}

	return nil
}
