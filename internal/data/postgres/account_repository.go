package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `account_id, balance::text, opening_balance::text, currency, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account balance repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.AccountBalance, error) {
	query := `SELECT ` + accountColumns + ` FROM account_balances WHERE account_id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account balance", "account_id", id.String(), "error", err)
		return nil, persistence.WrapStoreError("failed to get account balance", err)
	}
	return acc, nil
}

// ListAll returns every account ordered by id
func (r *AccountRepository) ListAll(ctx context.Context) ([]*account.AccountBalance, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM account_balances ORDER BY account_id`)
}

// ListNegative returns accounts whose balance is below zero
func (r *AccountRepository) ListNegative(ctx context.Context) ([]*account.AccountBalance, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM account_balances WHERE balance < 0 ORDER BY account_id`)
}

func (r *AccountRepository) list(ctx context.Context, query string) ([]*account.AccountBalance, error) {
	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list account balances", "error", err)
		return nil, persistence.WrapStoreError("failed to list account balances", err)
	}
	defer rows.Close()

	accounts := []*account.AccountBalance{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account balance", "error", err)
			return nil, persistence.WrapStoreError("failed to scan account balance", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.WrapStoreError("error iterating over account balances", err)
	}
	return accounts, nil
}

// SetBalance overwrites the stored balance
func (r *AccountRepository) SetBalance(ctx context.Context, id uuid.UUID, balance currency.Amount) error {
	query := `
		UPDATE account_balances
		SET balance = $1::numeric, updated_at = $2
		WHERE account_id = $3
	`

	result, err := r.querier.Exec(ctx, query, amountArg(balance), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to set account balance", "account_id", id.String(), "error", err)
		return persistence.WrapStoreError("failed to set account balance", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}
	return nil
}

// LockForUpdate reads the balance and holds a row lock until the surrounding transaction ends
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.AccountBalance, error) {
	query := `SELECT ` + accountColumns + ` FROM account_balances WHERE account_id = $1 FOR UPDATE`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account balance", "account_id", id.String(), "error", err)
		return nil, persistence.WrapStoreError("failed to lock account balance", err)
	}
	return acc, nil
}

func scanAccount(row scanner) (*account.AccountBalance, error) {
	var (
		acc              account.AccountBalance
		balance, opening string
	)
	if err := row.Scan(&acc.AccountID, &balance, &opening, &acc.Currency, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if acc.Balance, err = scanAmount("balance", balance); err != nil {
		return nil, err
	}
	if acc.OpeningBalance, err = scanAmount("opening_balance", opening); err != nil {
		return nil, err
	}
	return &acc, nil
}
