package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type CorrectionServiceImpl struct {
	db             persistence.Transactor
	accountManager AccountManager
	ledgerRepo     ledger.Repository
	correctionRepo correction.Repository
	auditor        AuditRecorder
	outbox         OutboxManager
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

func NewCorrectionService(
	db persistence.Transactor,
	accountManager AccountManager,
	ledgerRepo ledger.Repository,
	correctionRepo correction.Repository,
	auditor AuditRecorder,
	outboxManager OutboxManager,
	m *metrics.Metrics,
	logger *slog.Logger,
) CorrectionService {
	return &CorrectionServiceImpl{
		db:             db,
		accountManager: accountManager,
		ledgerRepo:     ledgerRepo,
		correctionRepo: correctionRepo,
		auditor:        auditor,
		outbox:         outboxManager,
		metrics:        m,
		logger:         logger,
	}
}

// CorrectBalance overwrites the stored balance with the requested one. The balance update,
// the ledger adjustment, the correction record, its audit entry and the outbox event commit together.
//
// A live balance that differs from request.CurrentBalance does not block the correction;
// it is recorded on the correction and logged.
func (s *CorrectionServiceImpl) CorrectBalance(ctx context.Context, request correction.Request, actorID *string) (*correction.BalanceCorrection, error) {
	validated, err := request.Validate()
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("account_id", validated.AccountID.String())
	if actorID != nil {
		logger = logger.With("actor_id", *actorID)
	}

	var applied *correction.BalanceCorrection
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		observed, err := s.accountManager.LockAndSetBalance(ctx, tx, validated.AccountID, validated.CorrectBalance)
		if err != nil {
			return err
		}

		now := time.Now()
		c := correction.New(validated, observed, actorID, now)
		if c.ConcurrencyWarning {
			logger.Warn("Balance changed since the caller observed it",
				"current_balance", c.PreviousBalance.String(),
				"observed_balance", c.ObservedBalance.String(),
				"correct_balance", c.NewBalance.String(),
			)
		}

		if delta := c.AppliedDelta(); !delta.IsZero() {
			adjustment := ledger.NewAdjustment(c.AccountID, delta, c.ID, now)
			if err := s.ledgerRepo.WithTx(tx).Create(ctx, adjustment); err != nil {
				return err
			}
			c.TransactionID = &adjustment.ID
		}

		if err := s.correctionRepo.WithTx(tx).Create(ctx, c); err != nil {
			return err
		}

		changes := audit.BalanceCorrectionChanges{
			CorrectionID: c.ID,
			From:         validated.CurrentBalance,
			To:           validated.CorrectBalance,
		}
		if err := s.auditor.Record(ctx, tx, audit.EntityAccountBalance, c.AccountID.String(), changes, actorID); err != nil {
			return err
		}

		if err := s.outbox.Enqueue(ctx, tx, outbox.EventBalanceCorrected, c.AccountID, c); err != nil {
			return err
		}
		applied = c
		return nil
	})
	if err != nil {
		logger.Error("Balance correction failed", "error", err)
		return nil, fmt.Errorf("failed to correct balance of account %s: %w", validated.AccountID.String(), err)
	}

	s.metrics.CorrectionApplied(string(applied.Type), applied.ConcurrencyWarning)
	logger.Info("Balance corrected",
		"correction_id", applied.ID.String(),
		"previous_balance", applied.PreviousBalance.String(),
		"new_balance", applied.NewBalance.String(),
		"difference", applied.Difference.String(),
	)
	return applied, nil
}
