// Package scheduler runs the periodic reconciliation and health monitoring jobs of the worker.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/google/uuid"
)

// Actor recorded on audit entries written by scheduled passes
const Actor = "scheduler"

type Scheduler struct {
	reconciliationService service.ReconciliationService
	healthService         service.HealthService
	reconcileInterval     time.Duration
	healthInterval        time.Duration
	location              *time.Location
	now                   func() time.Time
	logger                *slog.Logger
}

func NewScheduler(
	cfg *config.Config,
	reconciliationService service.ReconciliationService,
	healthService service.HealthService,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		reconciliationService: reconciliationService,
		healthService:         healthService,
		reconcileInterval:     cfg.Scheduler.ReconcileInterval,
		healthInterval:        cfg.Scheduler.HealthInterval,
		location:              cfg.Reconciliation.Location(),
		now:                   time.Now,
		logger:                logger.With("component", "scheduler"),
	}
}

// Start runs both jobs on their own ticker and blocks until ctx is canceled.
// A non-positive interval disables that job.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	if s.reconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.every(ctx, "reconcile", s.reconcileInterval, s.ReconcilePreviousDay)
		}()
	}
	if s.healthInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.every(ctx, "health", s.healthInterval, s.MonitorHealth)
		}()
	}
	wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) every(ctx context.Context, job string, interval time.Duration, run func(context.Context) error) {
	s.logger.Info("Scheduling job", "job", job, "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				s.logger.Error("Scheduled job failed", "job", job, "error", err)
			}
		}
	}
}

// ReconcilePreviousDay reconciles the last complete day in the configured timezone
func (s *Scheduler) ReconcilePreviousDay(ctx context.Context) error {
	yesterday := s.now().In(s.location).AddDate(0, 0, -1)
	request := &shared.ReconcileRequest{
		RequestID:     uuid.New(),
		Date:          yesterday.Format(reconciliation.DateLayout),
		RequestedBy:   Actor,
		CorrelationID: uuid.NewString(),
		Timestamp:     s.now().UTC(),
	}

	record, err := s.reconciliationService.Reconcile(ctx, request)
	if err != nil {
		return err
	}
	s.logger.Info("Scheduled reconciliation finished",
		"record_id", record.ID.String(),
		"date", record.Date,
		"status", string(record.Status),
		"discrepancies", len(record.Discrepancies),
	)
	return nil
}

func (s *Scheduler) MonitorHealth(ctx context.Context) error {
	check, err := s.healthService.MonitorFinancialHealth(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Scheduled health check finished", "status", string(check.Status), "alerts", len(check.Alerts))
	return nil
}
