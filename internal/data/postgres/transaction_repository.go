package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, account_id, amount::text, type, reference, status, created_at`

// signedAmountExpr is the balance effect of a row: CREDIT adds, DEBIT subtracts
const signedAmountExpr = `CASE WHEN t.type = 'CREDIT' THEN ABS(t.amount) ELSE -ABS(t.amount) END`

// TransactionRepository implements ledger.Repository for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL ledger repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a transaction to the ledger
func (r *TransactionRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, amount, type, reference, status, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query, t.ID, t.AccountID, t.Amount, t.Type, t.Reference, t.Status, t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create transaction", "transaction_id", t.ID.String(), "error", err)
		return persistence.WrapStoreError("failed to create transaction", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, persistence.WrapStoreError("failed to get transaction", err)
	}
	return t, nil
}

// FindPotentialDuplicates matches account, amount and reference (NULL matches NULL)
// within window on either side of t.CreatedAt
func (r *TransactionRepository) FindPotentialDuplicates(ctx context.Context, t *ledger.Transaction, window time.Duration) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		  AND id <> $2
		  AND amount = $3::numeric
		  AND reference IS NOT DISTINCT FROM $4
		  AND created_at BETWEEN $5 AND $6
		ORDER BY created_at, id
	`

	return r.list(ctx, "failed to find duplicate transactions", query,
		t.AccountID, t.ID, t.Amount, t.Reference, t.CreatedAt.Add(-window), t.CreatedAt.Add(window))
}

// ListBetween returns transactions created in [start, end)
func (r *TransactionRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
	`
	return r.list(ctx, "failed to list transactions", query, start, end)
}

// SumCompletedBefore sums COMPLETED transactions per account from the account's creation up to before
func (r *TransactionRepository) SumCompletedBefore(ctx context.Context, before time.Time) (map[uuid.UUID]currency.Amount, error) {
	query := `
		SELECT t.account_id, SUM(` + signedAmountExpr + `)::text
		FROM transactions t
		JOIN account_balances a ON a.account_id = t.account_id
		WHERE t.status = 'COMPLETED'
		  AND t.created_at >= a.created_at
		  AND t.created_at < $1
		GROUP BY t.account_id
	`
	return r.sums(ctx, "failed to sum prior transactions", query, before)
}

// SumCompletedSince sums COMPLETED transactions per account created at or after since
func (r *TransactionRepository) SumCompletedSince(ctx context.Context, since time.Time) (map[uuid.UUID]currency.Amount, error) {
	query := `
		SELECT t.account_id, SUM(` + signedAmountExpr + `)::text
		FROM transactions t
		WHERE t.status = 'COMPLETED'
		  AND t.created_at >= $1
		GROUP BY t.account_id
	`
	return r.sums(ctx, "failed to sum later transactions", query, since)
}

func (r *TransactionRepository) list(ctx context.Context, op, query string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query transactions", "error", err)
		return nil, persistence.WrapStoreError(op, err)
	}
	defer rows.Close()

	transactions := []*ledger.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, persistence.WrapStoreError("failed to scan transaction", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.WrapStoreError(op, err)
	}
	return transactions, nil
}

func (r *TransactionRepository) sums(ctx context.Context, op, query string, args ...any) (map[uuid.UUID]currency.Amount, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to sum transactions", "error", err)
		return nil, persistence.WrapStoreError(op, err)
	}
	defer rows.Close()

	sums := make(map[uuid.UUID]currency.Amount)
	for rows.Next() {
		var (
			accountID uuid.UUID
			total     string
		)
		if err := rows.Scan(&accountID, &total); err != nil {
			return nil, persistence.WrapStoreError("failed to scan transaction sum", err)
		}
		amount, err := scanAmount("sum", total)
		if err != nil {
			return nil, err
		}
		sums[accountID] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.WrapStoreError(op, err)
	}
	return sums, nil
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var t ledger.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Reference, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
