package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DiscrepancyServiceImpl struct {
	db         persistence.Transactor
	recordRepo reconciliation.Repository
	auditor    AuditRecorder
	outbox     OutboxManager
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewDiscrepancyService(
	db persistence.Transactor,
	recordRepo reconciliation.Repository,
	auditor AuditRecorder,
	outboxManager OutboxManager,
	m *metrics.Metrics,
	logger *slog.Logger,
) DiscrepancyService {
	return &DiscrepancyServiceImpl{
		db:         db,
		recordRepo: recordRepo,
		auditor:    auditor,
		outbox:     outboxManager,
		metrics:    m,
		logger:     logger,
	}
}

// Resolve moves an OPEN alert to RESOLVED. The alert row is locked for the duration
// of the transaction so two concurrent resolutions cannot both succeed.
func (s *DiscrepancyServiceImpl) Resolve(ctx context.Context, alertID uuid.UUID, notes string, actorID *string) (*reconciliation.DiscrepancyAlert, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, reconciliation.ErrResolutionNotesRequired
	}

	var resolved *reconciliation.DiscrepancyAlert
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.recordRepo.WithTx(tx)

		alert, err := repo.LockAlert(ctx, alertID)
		if err != nil {
			return err
		}
		if err := alert.Resolve(notes, actorID, time.Now()); err != nil {
			return err
		}
		if err := repo.SaveResolution(ctx, alert); err != nil {
			return err
		}

		changes := audit.DiscrepancyResolvedChanges{
			AlertID: alert.ID,
			From:    string(reconciliation.AlertStatusOpen),
			To:      string(reconciliation.AlertStatusResolved),
			Notes:   *alert.ResolutionNotes,
		}
		if err := s.auditor.Record(ctx, tx, audit.EntityDiscrepancyAlert, alert.ID.String(), changes, actorID); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(ctx, tx, outbox.EventDiscrepancyResolved, alert.ID, alert); err != nil {
			return err
		}
		resolved = alert
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to resolve discrepancy", "alert_id", alertID.String(), "error", err)
		return nil, fmt.Errorf("failed to resolve discrepancy %s: %w", alertID.String(), err)
	}

	s.metrics.DiscrepancyResolved()
	s.logger.Info("Discrepancy resolved",
		"alert_id", resolved.ID.String(),
		"account_id", resolved.AccountID.String(),
		"severity", string(resolved.Severity),
	)
	return resolved, nil
}
