package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type HealthServiceImpl struct {
	db          persistence.Transactor
	accountRepo account.Repository
	recordRepo  reconciliation.Repository
	healthRepo  health.Repository
	auditor     AuditRecorder
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewHealthService(
	db persistence.Transactor,
	accountRepo account.Repository,
	recordRepo reconciliation.Repository,
	healthRepo health.Repository,
	auditor AuditRecorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) HealthService {
	return &HealthServiceImpl{
		db:          db,
		accountRepo: accountRepo,
		recordRepo:  recordRepo,
		healthRepo:  healthRepo,
		auditor:     auditor,
		metrics:     m,
		logger:      logger,
	}
}

func (s *HealthServiceImpl) MonitorFinancialHealth(ctx context.Context) (*health.Check, error) {
	open, err := s.recordRepo.CountOpenAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count open discrepancies: %w", err)
	}
	negative, err := s.accountRepo.ListNegative(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list negative balances: %w", err)
	}

	anomalies := make([]health.BalanceAnomaly, 0, len(negative))
	for _, acc := range negative {
		anomalies = append(anomalies, health.BalanceAnomaly{
			AccountID: acc.AccountID,
			Balance:   acc.Balance,
			Type:      health.AlertNegativeBalance,
		})
	}

	check := health.Evaluate(open, anomalies, time.Now())

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.healthRepo.WithTx(tx).Create(ctx, check); err != nil {
			return err
		}
		changes := audit.HealthCheckChanges{
			CheckID:    check.ID,
			Status:     string(check.Status),
			AlertCount: len(check.Alerts),
		}
		return s.auditor.Record(ctx, tx, audit.EntityHealthCheck, check.ID.String(), changes, nil)
	})
	if err != nil {
		s.logger.Error("Failed to store health check", "check_id", check.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to store health check: %w", err)
	}

	s.metrics.HealthChecked(check.Status == health.StatusHealthy, open)
	if check.Status == health.StatusHealthy {
		s.logger.Info("Financial health check passed", "check_id", check.ID.String())
	} else {
		s.logger.Warn("Financial health issues detected",
			"check_id", check.ID.String(),
			"open_discrepancies", open,
			"negative_balances", len(anomalies),
		)
	}
	return check, nil
}
