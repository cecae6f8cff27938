package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// ReconciliationCompleted is the outbox payload of a finished pass
type ReconciliationCompleted struct {
	RecordID         string `json:"record_id"`
	Date             string `json:"date"`
	Status           string `json:"status"`
	AccountCount     int    `json:"account_count"`
	DiscrepancyCount int    `json:"discrepancy_count"`
}

type ReconciliationServiceImpl struct {
	db         persistence.Transactor
	recordRepo reconciliation.Repository
	calculator BalanceCalculator
	auditor    AuditRecorder
	outbox     OutboxManager
	policy     reconciliation.SeverityPolicy
	location   *time.Location
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewReconciliationService(
	db persistence.Transactor,
	recordRepo reconciliation.Repository,
	calculator BalanceCalculator,
	auditor AuditRecorder,
	outboxManager OutboxManager,
	policy reconciliation.SeverityPolicy,
	location *time.Location,
	m *metrics.Metrics,
	logger *slog.Logger,
) ReconciliationService {
	if location == nil {
		location = time.UTC
	}
	return &ReconciliationServiceImpl{
		db:         db,
		recordRepo: recordRepo,
		calculator: calculator,
		auditor:    auditor,
		outbox:     outboxManager,
		policy:     policy,
		location:   location,
		metrics:    m,
		logger:     logger,
	}
}

// Reconcile compares expected and actual balances of every account in scope for the requested
// day and appends a new record. It never touches transactions or balances, so concurrent passes
// for the same day each produce their own record.
func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, request *shared.ReconcileRequest) (*reconciliation.Record, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}
	started := time.Now()

	day, err := reconciliation.ParseDate(request.Date, started, s.location)
	if err != nil {
		return nil, err
	}
	start, end := reconciliation.DayWindow(day)
	record := reconciliation.NewRecord(day.Format(reconciliation.DateLayout), started)

	logger.Info("Starting reconciliation", "record_id", record.ID.String(), "date", record.Date)

	comparisons, err := s.calculator.Compare(ctx, start, end)
	if err != nil {
		logger.Error("Failed to compute balances", "date", record.Date, "error", err)
		return nil, fmt.Errorf("failed to compute balances for %s: %w", record.Date, err)
	}

	for _, c := range comparisons {
		if alert := record.Compare(c.AccountID, c.Expected, c.Actual, s.policy); alert != nil {
			logger.Warn("Discrepancy found",
				"account_id", c.AccountID.String(),
				"expected", c.Expected.String(),
				"actual", c.Actual.String(),
				"difference", alert.Difference.String(),
				"severity", string(alert.Severity),
			)
		}
	}
	record.SortDiscrepancies()

	var actorID *string
	if request.RequestedBy != "" {
		actorID = &request.RequestedBy
	}
	summary := ReconciliationCompleted{
		RecordID:         record.ID.String(),
		Date:             record.Date,
		Status:           string(record.Status),
		AccountCount:     len(comparisons),
		DiscrepancyCount: len(record.Discrepancies),
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.recordRepo.WithTx(tx).CreateRecord(ctx, record); err != nil {
			return err
		}
		changes := audit.ReconciliationRunChanges{
			RecordID:         record.ID,
			Date:             record.Date,
			Status:           string(record.Status),
			AccountCount:     summary.AccountCount,
			DiscrepancyCount: summary.DiscrepancyCount,
		}
		if err := s.auditor.Record(ctx, tx, audit.EntityReconciliationRecord, record.ID.String(), changes, actorID); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, outbox.EventReconciliationCompleted, record.ID, summary)
	})
	if err != nil {
		logger.Error("Failed to store reconciliation record", "record_id", record.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to store reconciliation record %s: %w", record.ID.String(), err)
	}

	s.metrics.ReconciliationRun(string(record.Status), time.Since(started))
	for _, alert := range record.Discrepancies {
		s.metrics.DiscrepancyRaised(string(alert.Severity))
	}

	logger.Info("Reconciliation completed",
		"record_id", record.ID.String(),
		"date", record.Date,
		"status", string(record.Status),
		"accounts", summary.AccountCount,
		"discrepancies", summary.DiscrepancyCount,
	)
	return record, nil
}
