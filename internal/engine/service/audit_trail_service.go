package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
)

type AuditTrailServiceImpl struct {
	ledgerRepo ledger.Repository
	recordRepo reconciliation.Repository
	auditRepo  audit.Repository
	location   *time.Location
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewAuditTrailService(
	ledgerRepo ledger.Repository,
	recordRepo reconciliation.Repository,
	auditRepo audit.Repository,
	location *time.Location,
	m *metrics.Metrics,
	logger *slog.Logger,
) AuditTrailService {
	if location == nil {
		location = time.UTC
	}
	return &AuditTrailServiceImpl{
		ledgerRepo: ledgerRepo,
		recordRepo: recordRepo,
		auditRepo:  auditRepo,
		location:   location,
		metrics:    m,
		logger:     logger,
	}
}

// GenerateAuditTrail reports every transaction and discrepancy created in [startDate, endDate).
// Date-only bounds are midnight in the reconciliation time zone.
func (s *AuditTrailServiceImpl) GenerateAuditTrail(ctx context.Context, startDate, endDate string) (*audit.TrailReport, error) {
	period, err := audit.ParsePeriod(startDate, endDate, s.location)
	if err != nil {
		return nil, err
	}

	transactions, err := s.ledgerRepo.ListBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for audit trail: %w", err)
	}
	alerts, err := s.recordRepo.ListAlertsBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list discrepancies for audit trail: %w", err)
	}

	report, skipped := audit.BuildTrailReport(period, transactions, alerts)
	for _, t := range skipped {
		s.logger.Warn("Transaction amount excluded from audit trail total",
			"transaction_id", t.ID.String(),
			"amount", t.Amount,
		)
	}

	s.logger.Info("Audit trail generated",
		"start", period.Start.Format(time.RFC3339),
		"end", period.End.Format(time.RFC3339),
		"transactions", report.Summary.TransactionCount,
		"discrepancies", report.Summary.DiscrepancyCount,
	)
	return report, nil
}

// VerifyChain recomputes every audit hash in append order
func (s *AuditTrailServiceImpl) VerifyChain(ctx context.Context) (*audit.ChainVerification, error) {
	entries, err := s.auditRepo.ListChain(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit chain: %w", err)
	}

	result := audit.VerifyChain(entries)
	if !result.Valid {
		s.logger.Error("Audit chain is broken",
			"broken_at", *result.BrokenAt,
			"checked", result.Checked,
			"reason", result.Reason,
		)
	}
	return &result, nil
}
