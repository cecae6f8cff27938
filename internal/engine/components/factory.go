package components

import (
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/data/memory"
	"github.com/financial-reconciliation-engine/internal/data/postgres"
	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
)

// Repositories is the full set of stores the engine reads and writes
type Repositories struct {
	Accounts        account.Repository
	Transactions    ledger.Repository
	Reconciliations reconciliation.Repository
	Corrections     correction.Repository
	Audit           audit.Repository
	HealthChecks    health.Repository
	Outbox          outbox.Repository
}

func NewPostgresRepositories(db *persistence.PostgresDB, logger *slog.Logger) Repositories {
	return Repositories{
		Accounts:        postgres.NewAccountRepository(logger, db),
		Transactions:    postgres.NewTransactionRepository(logger, db),
		Reconciliations: postgres.NewReconciliationRepository(logger, db),
		Corrections:     postgres.NewCorrectionRepository(logger, db),
		Audit:           postgres.NewAuditRepository(logger, db),
		HealthChecks:    postgres.NewHealthRepository(logger, db),
		Outbox:          postgres.NewOutboxRepository(logger, db),
	}
}

func NewMemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Accounts:        store.Accounts(),
		Transactions:    store.Transactions(),
		Reconciliations: store.Reconciliations(),
		Corrections:     store.Corrections(),
		Audit:           store.Audit(),
		HealthChecks:    store.HealthChecks(),
		Outbox:          store.Outbox(),
	}
}

// Services is the public surface of the engine
type Services struct {
	Reconciliation service.ReconciliationService
	Verification   service.VerificationService
	Correction     service.CorrectionService
	Discrepancy    service.DiscrepancyService
	AuditTrail     service.AuditTrailService
	Health         service.HealthService
	Query          service.QueryService
}

// CreateServices wires every engine service over db and repos.
// It fails only when the configured severity thresholds are invalid.
func CreateServices(db persistence.Transactor, repos Repositories, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Services, error) {
	policy, err := reconciliation.NewSeverityPolicy(cfg.Reconciliation.SeverityLowThreshold, cfg.Reconciliation.SeverityMediumThreshold)
	if err != nil {
		return nil, err
	}
	location := cfg.Reconciliation.Location()

	auditor := NewAuditRecorder(repos.Audit, logger.With("component", "audit_recorder"))
	outboxManager := NewOutboxManager(repos.Outbox, logger.With("component", "outbox_manager"))
	accountManager := NewAccountManager(repos.Accounts, logger.With("component", "account_manager"))
	calculator := NewBalanceCalculator(db, repos.Accounts, repos.Transactions, logger.With("component", "balance_calculator"))
	checks := NewIntegrityChecks(repos.Transactions, repos.Audit, cfg.Reconciliation.DuplicateWindow, logger.With("component", "integrity_checks"))

	return &Services{
		Reconciliation: service.NewReconciliationService(db, repos.Reconciliations, calculator, auditor, outboxManager, policy, location, m,
			logger.With("service", "reconciliation")),
		Verification: service.NewVerificationService(repos.Transactions, checks, m,
			logger.With("service", "verification")),
		Correction: service.NewCorrectionService(db, accountManager, repos.Transactions, repos.Corrections, auditor, outboxManager, m,
			logger.With("service", "correction")),
		Discrepancy: service.NewDiscrepancyService(db, repos.Reconciliations, auditor, outboxManager, m,
			logger.With("service", "discrepancy")),
		AuditTrail: service.NewAuditTrailService(repos.Transactions, repos.Reconciliations, repos.Audit, location, m,
			logger.With("service", "audit_trail")),
		Health: service.NewHealthService(db, repos.Accounts, repos.Reconciliations, repos.HealthChecks, auditor, m,
			logger.With("service", "health")),
		Query: service.NewQueryService(repos.Reconciliations, repos.Corrections, repos.HealthChecks),
	}, nil
}

// CreatePooledReconciliationService bounds concurrent passes with a worker pool,
// falling back to the base service when the pool cannot be created
func CreatePooledReconciliationService(base service.ReconciliationService, cfg *config.Config, logger *slog.Logger) service.ReconciliationService {
	pooled, err := service.NewWorkerPoolReconciliationService(
		base,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return base
	}

	logger.Info("Created worker pool reconciliation service", "pool_size", cfg.WorkerPool.Size)
	return pooled
}
