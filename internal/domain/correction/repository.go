package correction

import (
	"context"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows List
type Filter struct {
	AccountID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// Repository stores balance corrections. Rows are never updated.
type Repository interface {
	Create(ctx context.Context, c *BalanceCorrection) error
	List(ctx context.Context, filter Filter, page shared.Pagination) ([]*BalanceCorrection, int, error)
	WithTx(tx pgx.Tx) Repository
}
