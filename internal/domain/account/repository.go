package account

import (
	"context"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account balance persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*AccountBalance, error)
	ListAll(ctx context.Context) ([]*AccountBalance, error)
	ListNegative(ctx context.Context) ([]*AccountBalance, error)

	// SetBalance overwrites the stored balance. Only the balance correction service calls it.
	SetBalance(ctx context.Context, id uuid.UUID, balance currency.Amount) error

	// LockForUpdate acquires a row lock so concurrent corrections serialize in commit order
	LockForUpdate(ctx context.Context, id uuid.UUID) (*AccountBalance, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
