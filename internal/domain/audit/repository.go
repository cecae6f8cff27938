package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository appends to and reads the audit chain
type Repository interface {
	// Append seals entry against the chain head and stores it. Appends serialize on the
	// chain head, so callers run it inside the transaction that performs the audited change.
	Append(ctx context.Context, entry *Entry) error
	HasEntry(ctx context.Context, eventType EventType, entityType EntityType, entityID string) (bool, error)
	// ListChain returns every entry in append order
	ListChain(ctx context.Context) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}
