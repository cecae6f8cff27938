package service

import (
	"context"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReconciliationService runs daily reconciliation passes.
type ReconciliationService interface {
	Reconcile(ctx context.Context, request *shared.ReconcileRequest) (*reconciliation.Record, error)
}

// VerificationService checks the integrity of a single ledger transaction.
type VerificationService interface {
	Verify(ctx context.Context, transactionID uuid.UUID) (*ledger.VerificationResult, error)
}

// CorrectionService applies administrative balance corrections.
type CorrectionService interface {
	CorrectBalance(ctx context.Context, request correction.Request, actorID *string) (*correction.BalanceCorrection, error)
}

// DiscrepancyService moves discrepancy alerts through their lifecycle.
type DiscrepancyService interface {
	Resolve(ctx context.Context, alertID uuid.UUID, notes string, actorID *string) (*reconciliation.DiscrepancyAlert, error)
}

// AuditTrailService reports on and verifies the audit trail.
type AuditTrailService interface {
	GenerateAuditTrail(ctx context.Context, startDate, endDate string) (*audit.TrailReport, error)
	VerifyChain(ctx context.Context) (*audit.ChainVerification, error)
}

// HealthService takes financial health snapshots.
type HealthService interface {
	MonitorFinancialHealth(ctx context.Context) (*health.Check, error)
}

// QueryService exposes the paginated read accessors.
type QueryService interface {
	ListDiscrepancies(ctx context.Context, filter reconciliation.AlertFilter, page shared.Pagination) (*ListResult[*reconciliation.DiscrepancyAlert], error)
	ListCorrections(ctx context.Context, filter correction.Filter, page shared.Pagination) (*ListResult[*correction.BalanceCorrection], error)
	ListHealthChecks(ctx context.Context, filter health.Filter, page shared.Pagination) (*ListResult[*health.Check], error)
	ListReconciliations(ctx context.Context, filter reconciliation.RecordFilter, page shared.Pagination) (*ListResult[*reconciliation.Record], error)
	GetReconciliation(ctx context.Context, id uuid.UUID) (*reconciliation.Record, error)
}

// IntegrityCheck is one independent transaction check. It returns nil when the check passes;
// an error means the check could not run.
type IntegrityCheck interface {
	Name() string
	Check(ctx context.Context, transaction *ledger.Transaction) (*ledger.Issue, error)
}

// AccountComparison is the expected and actual balance of one account for a reconciled day
type AccountComparison struct {
	AccountID uuid.UUID
	Expected  currency.Amount
	Actual    currency.Amount
}

// BalanceCalculator derives expected and actual balances for every account in scope of [start, end)
type BalanceCalculator interface {
	Compare(ctx context.Context, start, end time.Time) ([]AccountComparison, error)
}

// AccountManager applies a new stored balance under a row lock
type AccountManager interface {
	// LockAndSetBalance returns the balance observed under the lock before it was overwritten
	LockAndSetBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance currency.Amount) (currency.Amount, error)
}

// AuditRecorder appends audit entries inside the caller's transaction
type AuditRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, entityType audit.EntityType, entityID string, changes audit.Changes, actorID *string) error
}

// OutboxManager stores financial events for publication inside the caller's transaction
type OutboxManager interface {
	Enqueue(ctx context.Context, tx pgx.Tx, eventType outbox.EventType, aggregateID uuid.UUID, payload any) error
}
