package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// HealthRepository implements health.Repository for PostgreSQL
type HealthRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewHealthRepository(logger *slog.Logger, db *persistence.PostgresDB) health.Repository {
	return &HealthRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *HealthRepository) WithTx(tx pgx.Tx) health.Repository {
	return &HealthRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *HealthRepository) Create(ctx context.Context, check *health.Check) error {
	metrics, err := json.Marshal(check.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode health metrics: %w", err)
	}
	alerts, err := json.Marshal(check.Alerts)
	if err != nil {
		return fmt.Errorf("failed to encode health alerts: %w", err)
	}

	query := `
		INSERT INTO financial_health_checks (id, status, metrics, alerts, created_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5)
	`
	if _, err := r.querier.Exec(ctx, query, check.ID, check.Status, string(metrics), string(alerts), check.CreatedAt); err != nil {
		r.logger.Error("Failed to create health check", "check_id", check.ID.String(), "error", err)
		return persistence.WrapStoreError("failed to create health check", err)
	}
	return nil
}

// List returns the newest checks first
func (r *HealthRepository) List(ctx context.Context, filter health.Filter, page shared.Pagination) ([]*health.Check, int, error) {
	var conds conditions
	if filter.Status != nil {
		conds.add("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		conds.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		conds.add("created_at < $%d", *filter.To)
	}

	var total int
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM financial_health_checks`+conds.where(), conds.args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count health checks", "error", err)
		return nil, 0, persistence.WrapStoreError("failed to count health checks", err)
	}

	suffix, args := conds.paged(page)
	query := `SELECT id, status, metrics, alerts, created_at FROM financial_health_checks` + conds.where() +
		` ORDER BY created_at DESC, id` + suffix

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list health checks", "error", err)
		return nil, 0, persistence.WrapStoreError("failed to list health checks", err)
	}
	defer rows.Close()

	checks := []*health.Check{}
	for rows.Next() {
		var (
			check           health.Check
			metrics, alerts []byte
		)
		if err := rows.Scan(&check.ID, &check.Status, &metrics, &alerts, &check.CreatedAt); err != nil {
			return nil, 0, persistence.WrapStoreError("failed to scan health check", err)
		}
		if err := json.Unmarshal(metrics, &check.Metrics); err != nil {
			return nil, 0, fmt.Errorf("failed to decode health metrics: %w", err)
		}
		if err := json.Unmarshal(alerts, &check.Alerts); err != nil {
			return nil, 0, fmt.Errorf("failed to decode health alerts: %w", err)
		}
		checks = append(checks, &check)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, persistence.WrapStoreError("failed to list health checks", err)
	}
	return checks, total, nil
}
