package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultArchiveCollection holds published financial events when MONGO_ARCHIVE_COLLECTION is unset
const DefaultArchiveCollection = "financial_event_archive"

// MongoDB is the connection to the event archive store
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
	archive  string
}

// mongoClientOptions maps the archive store configuration onto driver options
func mongoClientOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName("reconciliation-engine").
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetServerSelectionTimeout(cfg.Timeout)
}

func archiveCollectionName(cfg *config.MongoDBConfig) string {
	if cfg.ArchiveCollection == "" {
		return DefaultArchiveCollection
	}
	return cfg.ArchiveCollection
}

func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, mongoClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, WrapStoreError("failed to ping MongoDB", err)
	}

	db := &MongoDB{
		logger:   logger,
		client:   client,
		database: client.Database(cfg.Database),
		archive:  archiveCollectionName(cfg),
	}
	logger.Info("Connected to MongoDB", "database", cfg.Database, "archive_collection", db.archive)
	return db, nil
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// ArchiveCollection returns the collection published financial events are archived in
func (m *MongoDB) ArchiveCollection() *mongo.Collection {
	return m.database.Collection(m.archive)
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
