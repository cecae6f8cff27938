package service

import (
	"context"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// inlineTransactor runs fn directly and reports whether it was called
type inlineTransactor struct {
	calls int
}

func (d *inlineTransactor) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	d.calls++
	return fn(nil)
}

func (d *inlineTransactor) ExecuteReadTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Create(ctx context.Context, transaction *ledger.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) FindPotentialDuplicates(ctx context.Context, transaction *ledger.Transaction, window time.Duration) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, transaction, window)
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) ListBetween(ctx context.Context, start, end time.Time) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) SumCompletedBefore(ctx context.Context, before time.Time) (map[uuid.UUID]currency.Amount, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(map[uuid.UUID]currency.Amount), args.Error(1)
}

func (m *MockLedgerRepo) SumCompletedSince(ctx context.Context, since time.Time) (map[uuid.UUID]currency.Amount, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(map[uuid.UUID]currency.Amount), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockCorrectionRepo struct {
	mock.Mock
}

func (m *MockCorrectionRepo) Create(ctx context.Context, c *correction.BalanceCorrection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCorrectionRepo) List(ctx context.Context, filter correction.Filter, page shared.Pagination) ([]*correction.BalanceCorrection, int, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]*correction.BalanceCorrection), args.Int(1), args.Error(2)
}

func (m *MockCorrectionRepo) WithTx(tx pgx.Tx) correction.Repository {
	return m
}

type MockReconciliationRepo struct {
	mock.Mock
}

func (m *MockReconciliationRepo) CreateRecord(ctx context.Context, record *reconciliation.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockReconciliationRepo) GetRecord(ctx context.Context, id uuid.UUID) (*reconciliation.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Record), args.Error(1)
}

func (m *MockReconciliationRepo) ListRecords(ctx context.Context, filter reconciliation.RecordFilter, page shared.Pagination) ([]*reconciliation.Record, int, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]*reconciliation.Record), args.Int(1), args.Error(2)
}

func (m *MockReconciliationRepo) GetAlert(ctx context.Context, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.DiscrepancyAlert), args.Error(1)
}

func (m *MockReconciliationRepo) LockAlert(ctx context.Context, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.DiscrepancyAlert), args.Error(1)
}

func (m *MockReconciliationRepo) SaveResolution(ctx context.Context, alert *reconciliation.DiscrepancyAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockReconciliationRepo) ListAlerts(ctx context.Context, filter reconciliation.AlertFilter, page shared.Pagination) ([]*reconciliation.DiscrepancyAlert, int, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]*reconciliation.DiscrepancyAlert), args.Int(1), args.Error(2)
}

func (m *MockReconciliationRepo) ListAlertsBetween(ctx context.Context, start, end time.Time) ([]*reconciliation.DiscrepancyAlert, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reconciliation.DiscrepancyAlert), args.Error(1)
}

func (m *MockReconciliationRepo) CountOpenAlerts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockReconciliationRepo) WithTx(tx pgx.Tx) reconciliation.Repository {
	return m
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Append(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepo) HasEntry(ctx context.Context, eventType audit.EventType, entityType audit.EntityType, entityID string) (bool, error) {
	args := m.Called(ctx, eventType, entityType, entityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuditRepo) ListChain(ctx context.Context) ([]*audit.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepo) WithTx(tx pgx.Tx) audit.Repository {
	return m
}

type MockIntegrityCheck struct {
	mock.Mock
	name string
}

func (m *MockIntegrityCheck) Name() string { return m.name }

func (m *MockIntegrityCheck) Check(ctx context.Context, transaction *ledger.Transaction) (*ledger.Issue, error) {
	args := m.Called(ctx, transaction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Issue), args.Error(1)
}

type MockAccountManager struct {
	mock.Mock
}

func (m *MockAccountManager) LockAndSetBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance currency.Amount) (currency.Amount, error) {
	args := m.Called(ctx, tx, accountID, balance)
	return args.Get(0).(currency.Amount), args.Error(1)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, tx pgx.Tx, entityType audit.EntityType, entityID string, changes audit.Changes, actorID *string) error {
	args := m.Called(ctx, tx, entityType, entityID, changes, actorID)
	return args.Error(0)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) Enqueue(ctx context.Context, tx pgx.Tx, eventType outbox.EventType, aggregateID uuid.UUID, payload any) error {
	args := m.Called(ctx, tx, eventType, aggregateID, payload)
	return args.Error(0)
}

type MockBalanceCalculator struct {
	mock.Mock
}

func (m *MockBalanceCalculator) Compare(ctx context.Context, start, end time.Time) ([]AccountComparison, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AccountComparison), args.Error(1)
}
