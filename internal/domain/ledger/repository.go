package ledger

import (
	"context"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository reads the transaction ledger. The only write is Create, used for correction adjustments.
type Repository interface {
	Create(ctx context.Context, transaction *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindPotentialDuplicates returns other transactions on the same account with the same
	// reference and amount created within window of the given one.
	FindPotentialDuplicates(ctx context.Context, transaction *Transaction, window time.Duration) ([]*Transaction, error)

	// ListBetween returns every transaction created in [start, end), oldest first
	ListBetween(ctx context.Context, start, end time.Time) ([]*Transaction, error)

	// SumCompletedBefore returns per-account signed sums of COMPLETED transactions created
	// between the account's creation and before.
	SumCompletedBefore(ctx context.Context, before time.Time) (map[uuid.UUID]currency.Amount, error)

	// SumCompletedSince returns per-account signed sums of COMPLETED transactions created at or after since
	SumCompletedSince(ctx context.Context, since time.Time) (map[uuid.UUID]currency.Amount, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing ledger transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	// If the target TransactionID is empty, consider it a match for any ErrTransactionNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
