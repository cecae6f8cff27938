package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// AuditRepository implements audit.Repository for PostgreSQL.
// The audit_trail table rejects UPDATE and DELETE through a trigger.
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append locks the chain head, seals the entry against it and moves the head forward.
// The lock is held until the caller's transaction ends, so concurrent appends link in commit order.
func (r *AuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	var head string
	err := r.querier.QueryRow(ctx, `SELECT last_hash FROM audit_chain_head WHERE id = 1 FOR UPDATE`).Scan(&head)
	if err != nil {
		r.logger.Error("Failed to lock audit chain head", "error", err)
		return persistence.WrapStoreError("failed to lock audit chain head", err)
	}

	if err := entry.Seal(head); err != nil {
		return fmt.Errorf("failed to seal audit entry: %w", err)
	}
	changes, err := audit.EncodeChanges(entry.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode audit changes: %w", err)
	}

	query := `
		INSERT INTO audit_trail (event_type, entity_type, entity_id, changes, actor_id, created_at, previous_hash, hash)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)
		RETURNING id
	`
	err = r.querier.QueryRow(ctx, query,
		entry.EventType, entry.EntityType, entry.EntityID, string(changes),
		entry.ActorID, entry.CreatedAt, entry.PreviousHash, entry.Hash,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			"event_type", string(entry.EventType),
			"entity_id", entry.EntityID,
			"error", err,
		)
		return persistence.WrapStoreError("failed to append audit entry", err)
	}

	if _, err := r.querier.Exec(ctx, `UPDATE audit_chain_head SET last_hash = $1 WHERE id = 1`, entry.Hash); err != nil {
		r.logger.Error("Failed to advance audit chain head", "error", err)
		return persistence.WrapStoreError("failed to advance audit chain head", err)
	}
	return nil
}

func (r *AuditRepository) HasEntry(ctx context.Context, eventType audit.EventType, entityType audit.EntityType, entityID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM audit_trail WHERE event_type = $1 AND entity_type = $2 AND entity_id = $3
		)
	`
	var exists bool
	if err := r.querier.QueryRow(ctx, query, eventType, entityType, entityID).Scan(&exists); err != nil {
		r.logger.Error("Failed to look up audit entry", "entity_id", entityID, "error", err)
		return false, persistence.WrapStoreError("failed to look up audit entry", err)
	}
	return exists, nil
}

func (r *AuditRepository) ListChain(ctx context.Context) ([]*audit.Entry, error) {
	query := `
		SELECT id, event_type, entity_type, entity_id, changes, actor_id, created_at, previous_hash, hash
		FROM audit_trail
		ORDER BY id
	`
	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list audit chain", "error", err)
		return nil, persistence.WrapStoreError("failed to list audit chain", err)
	}
	defer rows.Close()

	entries := []*audit.Entry{}
	for rows.Next() {
		var (
			e       audit.Entry
			changes []byte
		)
		err := rows.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &changes, &e.ActorID, &e.CreatedAt, &e.PreviousHash, &e.Hash)
		if err != nil {
			return nil, persistence.WrapStoreError("failed to scan audit entry", err)
		}
		if e.Changes, err = audit.DecodeChanges(e.EventType, changes); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.WrapStoreError("failed to list audit chain", err)
	}
	return entries, nil
}
