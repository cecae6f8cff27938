package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolReconciliationService bounds how many reconciliation passes run at once.
// Callers block until their pass finishes.
type WorkerPoolReconciliationService struct {
	base   ReconciliationService
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type reconcileResult struct {
	record *reconciliation.Record
	err    error
}

func NewWorkerPoolReconciliationService(base ReconciliationService, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolReconciliationService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolReconciliationService{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

func (s *WorkerPoolReconciliationService) Reconcile(ctx context.Context, request *shared.ReconcileRequest) (*reconciliation.Record, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}
	logger.Debug("Submitting reconciliation to worker pool",
		"request_id", request.RequestID.String(),
		"date", request.Date,
	)

	results := make(chan reconcileResult, 1)
	requestCopy := *request

	err := s.pool.Submit(func() {
		record, err := s.base.Reconcile(ctx, &requestCopy)
		results <- reconcileResult{record: record, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit reconciliation to worker pool",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return nil, err
	}

	select {
	case result := <-results:
		return result.record, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown releases the pool. Passes already running finish in the background.
func (s *WorkerPoolReconciliationService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolReconciliationService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolReconciliationService) Capacity() int {
	return s.pool.Cap()
}
