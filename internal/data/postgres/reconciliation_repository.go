package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	recordColumns = `id, date::text, status, expected_balances, actual_balances, created_at`
	alertColumns  = `id, reconciliation_id, account_id, expected_amount::text, actual_amount::text, difference::text,
		severity, status, resolution_notes, resolved_by, resolved_at, created_at`
)

// ReconciliationRepository implements reconciliation.Repository for PostgreSQL
type ReconciliationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewReconciliationRepository(logger *slog.Logger, db *persistence.PostgresDB) reconciliation.Repository {
	return &ReconciliationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ReconciliationRepository) WithTx(tx pgx.Tx) reconciliation.Repository {
	return &ReconciliationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateRecord inserts the record and then each discrepancy.
// Run it on a transaction-bound repository so the record is never stored without its alerts.
func (r *ReconciliationRepository) CreateRecord(ctx context.Context, record *reconciliation.Record) error {
	expected, err := json.Marshal(record.ExpectedBalances)
	if err != nil {
		return fmt.Errorf("failed to encode expected balances: %w", err)
	}
	actual, err := json.Marshal(record.ActualBalances)
	if err != nil {
		return fmt.Errorf("failed to encode actual balances: %w", err)
	}

	query := `
		INSERT INTO reconciliation_records (id, date, status, expected_balances, actual_balances, created_at)
		VALUES ($1, $2::date, $3, $4::jsonb, $5::jsonb, $6)
	`
	_, err = r.querier.Exec(ctx, query, record.ID, record.Date, record.Status, string(expected), string(actual), record.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create reconciliation record", "record_id", record.ID.String(), "error", err)
		return persistence.WrapStoreError("failed to create reconciliation record", err)
	}

	for _, alert := range record.Discrepancies {
		if err := r.createAlert(ctx, alert); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReconciliationRepository) createAlert(ctx context.Context, a *reconciliation.DiscrepancyAlert) error {
	query := `
		INSERT INTO discrepancy_alerts (id, reconciliation_id, account_id, expected_amount, actual_amount, difference,
			severity, status, resolution_notes, resolved_by, resolved_at, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.querier.Exec(ctx, query,
		a.ID, a.RecordID, a.AccountID,
		amountArg(a.ExpectedAmount), amountArg(a.ActualAmount), amountArg(a.Difference),
		a.Severity, a.Status, a.ResolutionNotes, a.ResolvedBy, a.ResolvedAt, a.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create discrepancy alert", "alert_id", a.ID.String(), "error", err)
		return persistence.WrapStoreError("failed to create discrepancy alert", err)
	}
	return nil
}

func (r *ReconciliationRepository) GetRecord(ctx context.Context, id uuid.UUID) (*reconciliation.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM reconciliation_records WHERE id = $1`

	record, err := scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconciliation.ErrRecordNotFound{RecordID: id}
		}
		r.logger.Error("Failed to get reconciliation record", "record_id", id.String(), "error", err)
		return nil, persistence.WrapStoreError("failed to get reconciliation record", err)
	}

	if err := r.attachAlerts(ctx, []*reconciliation.Record{record}); err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns the newest records first
func (r *ReconciliationRepository) ListRecords(ctx context.Context, filter reconciliation.RecordFilter, page shared.Pagination) ([]*reconciliation.Record, int, error) {
	var conds conditions
	if filter.Date != nil {
		conds.add("date = $%d::date", *filter.Date)
	}
	if filter.Status != nil {
		conds.add("status = $%d", *filter.Status)
	}

	total, err := r.count(ctx, "reconciliation_records", &conds)
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.paged(page)
	query := `SELECT ` + recordColumns + ` FROM reconciliation_records` + conds.where() + ` ORDER BY created_at DESC, id` + suffix

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reconciliation records", "error", err)
		return nil, 0, persistence.WrapStoreError("failed to list reconciliation records", err)
	}
	defer rows.Close()

	records := []*reconciliation.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, persistence.WrapStoreError("failed to scan reconciliation record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, persistence.WrapStoreError("failed to list reconciliation records", err)
	}
	rows.Close()

	if err := r.attachAlerts(ctx, records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *ReconciliationRepository) attachAlerts(ctx context.Context, records []*reconciliation.Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(records))
	byID := make(map[uuid.UUID]*reconciliation.Record, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
		byID[record.ID] = record
	}

	query := `SELECT ` + alertColumns + ` FROM discrepancy_alerts WHERE reconciliation_id = ANY($1) ORDER BY account_id`
	alerts, err := r.queryAlerts(ctx, "failed to load discrepancy alerts", query, ids)
	if err != nil {
		return err
	}
	for _, alert := range alerts {
		if record, ok := byID[alert.RecordID]; ok {
			record.Discrepancies = append(record.Discrepancies, alert)
		}
	}
	return nil
}

func (r *ReconciliationRepository) GetAlert(ctx context.Context, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	return r.getAlert(ctx, `SELECT `+alertColumns+` FROM discrepancy_alerts WHERE id = $1`, id)
}

// LockAlert reads the alert and holds a row lock until the surrounding transaction ends
func (r *ReconciliationRepository) LockAlert(ctx context.Context, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	return r.getAlert(ctx, `SELECT `+alertColumns+` FROM discrepancy_alerts WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReconciliationRepository) getAlert(ctx context.Context, query string, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	alert, err := scanAlert(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconciliation.ErrAlertNotFound{AlertID: id}
		}
		r.logger.Error("Failed to get discrepancy alert", "alert_id", id.String(), "error", err)
		return nil, persistence.WrapStoreError("failed to get discrepancy alert", err)
	}
	return alert, nil
}

// SaveResolution persists a RESOLVED alert. Only OPEN rows are updated.
func (r *ReconciliationRepository) SaveResolution(ctx context.Context, a *reconciliation.DiscrepancyAlert) error {
	query := `
		UPDATE discrepancy_alerts
		SET status = $1, resolution_notes = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $5 AND status = 'OPEN'
	`
	result, err := r.querier.Exec(ctx, query, a.Status, a.ResolutionNotes, a.ResolvedBy, a.ResolvedAt, a.ID)
	if err != nil {
		r.logger.Error("Failed to resolve discrepancy alert", "alert_id", a.ID.String(), "error", err)
		return persistence.WrapStoreError("failed to resolve discrepancy alert", err)
	}
	if result.RowsAffected() == 0 {
		return reconciliation.ErrAlertAlreadyResolved{AlertID: a.ID}
	}
	return nil
}

// ListAlerts returns the newest alerts first
func (r *ReconciliationRepository) ListAlerts(ctx context.Context, filter reconciliation.AlertFilter, page shared.Pagination) ([]*reconciliation.DiscrepancyAlert, int, error) {
	var conds conditions
	if filter.Status != nil {
		conds.add("status = $%d", *filter.Status)
	}
	if filter.Severity != nil {
		conds.add("severity = $%d", *filter.Severity)
	}
	if filter.AccountID != nil {
		conds.add("account_id = $%d", *filter.AccountID)
	}
	if filter.From != nil {
		conds.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		conds.add("created_at < $%d", *filter.To)
	}

	total, err := r.count(ctx, "discrepancy_alerts", &conds)
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.paged(page)
	query := `SELECT ` + alertColumns + ` FROM discrepancy_alerts` + conds.where() + ` ORDER BY created_at DESC, id` + suffix
	alerts, err := r.queryAlerts(ctx, "failed to list discrepancy alerts", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// ListAlertsBetween returns alerts created in [start, end), oldest first
func (r *ReconciliationRepository) ListAlertsBetween(ctx context.Context, start, end time.Time) ([]*reconciliation.DiscrepancyAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM discrepancy_alerts WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at, id`
	return r.queryAlerts(ctx, "failed to list discrepancy alerts", query, start, end)
}

func (r *ReconciliationRepository) CountOpenAlerts(ctx context.Context) (int, error) {
	var conds conditions
	conds.add("status = $%d", reconciliation.AlertStatusOpen)
	return r.count(ctx, "discrepancy_alerts", &conds)
}

func (r *ReconciliationRepository) count(ctx context.Context, table string, conds *conditions) (int, error) {
	var total int
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+conds.where(), conds.args...).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to count rows", "table", table, "error", err)
		return 0, persistence.WrapStoreError("failed to count "+table, err)
	}
	return total, nil
}

func (r *ReconciliationRepository) queryAlerts(ctx context.Context, op, query string, args ...any) ([]*reconciliation.DiscrepancyAlert, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query discrepancy alerts", "error", err)
		return nil, persistence.WrapStoreError(op, err)
	}
	defer rows.Close()

	alerts := []*reconciliation.DiscrepancyAlert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, persistence.WrapStoreError("failed to scan discrepancy alert", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.WrapStoreError(op, err)
	}
	return alerts, nil
}

func scanRecord(row scanner) (*reconciliation.Record, error) {
	var (
		record           reconciliation.Record
		expected, actual []byte
	)
	if err := row.Scan(&record.ID, &record.Date, &record.Status, &expected, &actual, &record.CreatedAt); err != nil {
		return nil, err
	}

	record.ExpectedBalances = make(map[uuid.UUID]currency.Amount)
	record.ActualBalances = make(map[uuid.UUID]currency.Amount)
	if err := json.Unmarshal(expected, &record.ExpectedBalances); err != nil {
		return nil, fmt.Errorf("failed to decode expected balances: %w", err)
	}
	if err := json.Unmarshal(actual, &record.ActualBalances); err != nil {
		return nil, fmt.Errorf("failed to decode actual balances: %w", err)
	}
	record.Discrepancies = []*reconciliation.DiscrepancyAlert{}
	return &record, nil
}

func scanAlert(row scanner) (*reconciliation.DiscrepancyAlert, error) {
	var (
		a                      reconciliation.DiscrepancyAlert
		expected, actual, diff string
	)
	err := row.Scan(&a.ID, &a.RecordID, &a.AccountID, &expected, &actual, &diff,
		&a.Severity, &a.Status, &a.ResolutionNotes, &a.ResolvedBy, &a.ResolvedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if a.ExpectedAmount, err = scanAmount("expected_amount", expected); err != nil {
		return nil, err
	}
	if a.ActualAmount, err = scanAmount("actual_amount", actual); err != nil {
		return nil, err
	}
	if a.Difference, err = scanAmount("difference", diff); err != nil {
		return nil, err
	}
	return &a, nil
}
