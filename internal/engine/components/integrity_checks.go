package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/engine/service"
)

// NewIntegrityChecks returns the checks run by the verifier, in reporting order
func NewIntegrityChecks(ledgerRepo ledger.Repository, auditRepo audit.Repository, duplicateWindow time.Duration, logger *slog.Logger) []service.IntegrityCheck {
	return []service.IntegrityCheck{
		&AmountCheck{},
		&DuplicateCheck{ledgerRepo: ledgerRepo, window: duplicateWindow, logger: logger},
		&AuditCorrelationCheck{auditRepo: auditRepo, logger: logger},
	}
}

// AmountCheck requires a well-formed amount. Stored amounts may be signed; the
// transaction type gives the direction.
type AmountCheck struct{}

func (*AmountCheck) Name() string { return ledger.CheckAmountValidation }

func (*AmountCheck) Check(_ context.Context, t *ledger.Transaction) (*ledger.Issue, error) {
	if _, err := currency.Parse(t.Amount); err != nil {
		return &ledger.Issue{
			Check:       ledger.CheckAmountValidation,
			Description: fmt.Sprintf("amount %q is not a valid currency amount", t.Amount),
		}, nil
	}
	return nil, nil
}

// DuplicateCheck looks for transactions with the same account, reference and amount
// created close to this one
type DuplicateCheck struct {
	ledgerRepo ledger.Repository
	window     time.Duration
	logger     *slog.Logger
}

func (*DuplicateCheck) Name() string { return ledger.CheckDuplicate }

func (c *DuplicateCheck) Check(ctx context.Context, t *ledger.Transaction) (*ledger.Issue, error) {
	duplicates, err := c.ledgerRepo.FindPotentialDuplicates(ctx, t, c.window)
	if err != nil {
		return nil, err
	}
	if len(duplicates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(duplicates))
	for _, d := range duplicates {
		ids = append(ids, d.ID.String())
	}
	c.logger.Warn("Potential duplicate transactions",
		"transaction_id", t.ID.String(),
		"duplicates", ids,
	)
	return &ledger.Issue{
		Check:       ledger.CheckDuplicate,
		Description: fmt.Sprintf("%d potential duplicate(s) within %s: %s", len(duplicates), c.window, strings.Join(ids, ", ")),
	}, nil
}

// AuditCorrelationCheck requires every completed transaction to have been written through
// the audited path. Correction adjustments are covered by the correction's own entry.
type AuditCorrelationCheck struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

func (*AuditCorrelationCheck) Name() string { return ledger.CheckAuditCorrelation }

func (c *AuditCorrelationCheck) Check(ctx context.Context, t *ledger.Transaction) (*ledger.Issue, error) {
	if !t.IsCompleted() {
		return nil, nil
	}

	eventType, entityType, entityID := audit.EventTransactionCreated, audit.EntityTransaction, t.ID.String()
	if t.Reference != nil && strings.HasPrefix(*t.Reference, ledger.CorrectionReferencePrefix) {
		eventType, entityType, entityID = audit.EventBalanceCorrection, audit.EntityAccountBalance, t.AccountID.String()
	}

	found, err := c.auditRepo.HasEntry(ctx, eventType, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, nil
	}
	return &ledger.Issue{
		Check:       ledger.CheckAuditCorrelation,
		Description: fmt.Sprintf("no %s audit entry found for completed transaction", eventType),
	}, nil
}
