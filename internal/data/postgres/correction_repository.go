package postgres

import (
	"context"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const correctionColumns = `id, transaction_id, account_id, previous_balance::text, new_balance::text, difference::text,
	correction_type, reason, evidence, actor_id, observed_balance::text, concurrency_warning, created_at`

// CorrectionRepository implements correction.Repository for PostgreSQL
type CorrectionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCorrectionRepository(logger *slog.Logger, db *persistence.PostgresDB) correction.Repository {
	return &CorrectionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CorrectionRepository) WithTx(tx pgx.Tx) correction.Repository {
	return &CorrectionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CorrectionRepository) Create(ctx context.Context, c *correction.BalanceCorrection) error {
	query := `
		INSERT INTO balance_corrections (id, transaction_id, account_id, previous_balance, new_balance, difference,
			correction_type, reason, evidence, actor_id, observed_balance, concurrency_warning, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, $11::numeric, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID, c.TransactionID, c.AccountID,
		amountArg(c.PreviousBalance), amountArg(c.NewBalance), amountArg(c.Difference),
		c.Type, c.Reason, c.Evidence, c.ActorID,
		amountArg(c.ObservedBalance), c.ConcurrencyWarning, c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create balance correction",
			"correction_id", c.ID.String(),
			"account_id", c.AccountID.String(),
			"error", err,
		)
		return persistence.WrapStoreError("failed to create balance correction", err)
	}
	return nil
}

// List returns the newest corrections first
func (r *CorrectionRepository) List(ctx context.Context, filter correction.Filter, page shared.Pagination) ([]*correction.BalanceCorrection, int, error) {
	var conds conditions
	if filter.AccountID != nil {
		conds.add("account_id = $%d", *filter.AccountID)
	}
	if filter.From != nil {
		conds.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		conds.add("created_at < $%d", *filter.To)
	}

	var total int
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM balance_corrections`+conds.where(), conds.args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count balance corrections", "error", err)
		return nil, 0, persistence.WrapStoreError("failed to count balance corrections", err)
	}

	suffix, args := conds.paged(page)
	query := `SELECT ` + correctionColumns + ` FROM balance_corrections` + conds.where() + ` ORDER BY created_at DESC, id` + suffix

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list balance corrections", "error", err)
		return nil, 0, persistence.WrapStoreError("failed to list balance corrections", err)
	}
	defer rows.Close()

	corrections := []*correction.BalanceCorrection{}
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, 0, persistence.WrapStoreError("failed to scan balance correction", err)
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, persistence.WrapStoreError("failed to list balance corrections", err)
	}
	return corrections, total, nil
}

func scanCorrection(row scanner) (*correction.BalanceCorrection, error) {
	var (
		c                                   correction.BalanceCorrection
		previous, next, difference, observed string
	)
	err := row.Scan(&c.ID, &c.TransactionID, &c.AccountID, &previous, &next, &difference,
		&c.Type, &c.Reason, &c.Evidence, &c.ActorID, &observed, &c.ConcurrencyWarning, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if c.PreviousBalance, err = scanAmount("previous_balance", previous); err != nil {
		return nil, err
	}
	if c.NewBalance, err = scanAmount("new_balance", next); err != nil {
		return nil, err
	}
	if c.Difference, err = scanAmount("difference", difference); err != nil {
		return nil, err
	}
	if c.ObservedBalance, err = scanAmount("observed_balance", observed); err != nil {
		return nil, err
	}
	return &c, nil
}
