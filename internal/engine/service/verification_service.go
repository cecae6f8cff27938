package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/google/uuid"
)

type VerificationServiceImpl struct {
	ledgerRepo ledger.Repository
	checks     []IntegrityCheck
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewVerificationService(ledgerRepo ledger.Repository, checks []IntegrityCheck, m *metrics.Metrics, logger *slog.Logger) VerificationService {
	return &VerificationServiceImpl{
		ledgerRepo: ledgerRepo,
		checks:     checks,
		metrics:    m,
		logger:     logger,
	}
}

// Verify runs every check against the transaction and accumulates their issues.
// A missing transaction is an error, not an issue.
func (s *VerificationServiceImpl) Verify(ctx context.Context, transactionID uuid.UUID) (*ledger.VerificationResult, error) {
	transaction, err := s.ledgerRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	result := ledger.NewVerificationResult(transactionID)
	for _, check := range s.checks {
		issue, err := check.Check(ctx, transaction)
		if err != nil {
			s.logger.Error("Integrity check failed to run",
				"transaction_id", transactionID.String(),
				"check", check.Name(),
				"error", err,
			)
			return nil, fmt.Errorf("%s check failed for transaction %s: %w", check.Name(), transactionID.String(), err)
		}
		if issue != nil {
			result.Add(*issue)
		}
	}

	s.metrics.Verification(result.IsValid)
	if !result.IsValid {
		s.logger.Warn("Transaction failed verification",
			"transaction_id", transactionID.String(),
			"issues", len(result.Issues),
		)
	}
	return result, nil
}
