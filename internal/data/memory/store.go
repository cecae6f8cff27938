// Package memory is an isolated in-memory implementation of every repository and of
// persistence.Transactor. Each test builds its own Store.
//
// ExecuteTx units run one at a time and are rolled back by restoring a snapshot, so the
// atomicity of multi-write operations can be checked without PostgreSQL. ExecuteReadTx units
// share that turn, so no write unit commits while one is reading. Reads outside a unit may
// observe writes of a unit still in progress.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ persistence.Transactor = (*Store)(nil)

type state struct {
	accounts     map[uuid.UUID]account.AccountBalance
	transactions []ledger.Transaction
	records      []reconciliation.Record
	alerts       []reconciliation.DiscrepancyAlert
	corrections  []correction.BalanceCorrection
	audit        []audit.Entry
	auditHead    string
	checks       []health.Check
	outbox       []outbox.Message
	nextAuditID  int64
	nextOutboxID int64
}

// clone copies every collection. Stored values are never mutated in place, so element copies suffice.
func (st *state) clone() *state {
	c := *st
	c.accounts = maps.Clone(st.accounts)
	c.transactions = slices.Clone(st.transactions)
	c.records = slices.Clone(st.records)
	c.alerts = slices.Clone(st.alerts)
	c.corrections = slices.Clone(st.corrections)
	c.audit = slices.Clone(st.audit)
	c.checks = slices.Clone(st.checks)
	c.outbox = slices.Clone(st.outbox)
	return &c
}

// Store holds all engine state in memory
type Store struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	state  *state
	faults map[string]error
}

func NewStore() *Store {
	return &Store{
		state: &state{
			accounts:     make(map[uuid.UUID]account.AccountBalance),
			nextAuditID:  1,
			nextOutboxID: 1,
		},
		faults: make(map[string]error),
	}
}

// ExecuteTx runs fn as one atomic unit. Repositories need no WithTx binding; fn receives a nil tx.
func (s *Store) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return persistence.WrapStoreError("failed to begin transaction", err)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	rollback := func() {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err := fn(nil); err != nil {
		rollback()
		return err
	}
	return nil
}

// ExecuteReadTx runs fn while no write unit can start or commit. fn receives a nil tx and
// must not start another unit.
func (s *Store) ExecuteReadTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return persistence.WrapStoreError("failed to begin transaction", err)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(nil)
}

// FailOn makes every later call of op return err until ClearFaults.
// Ops are named "<repository>.<Method>", e.g. "audit.Append" or "accounts.SetBalance".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.faults)
}

// fault must be called with s.mu held
func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		return err
	}
	return nil
}

func (s *Store) read(op string) (func(), error) {
	s.mu.RLock()
	if err := s.fault(op); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	return s.mu.RUnlock, nil
}

func (s *Store) write(op string) (func(), error) {
	s.mu.Lock()
	if err := s.fault(op); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s.mu.Unlock, nil
}

// AddAccount seeds an account balance row, as the external account store would
func (s *Store) AddAccount(a *account.AccountBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[a.AccountID] = *a
}

// AddTransaction seeds a ledger transaction, as the booking workflow would
func (s *Store) AddTransaction(t *ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.transactions = append(s.state.transactions, *t)
}

// TamperAuditEntry edits a stored audit entry in place, simulating an out-of-band change
// that bypassed the append-only store
func (s *Store) TamperAuditEntry(id int64, edit func(e *audit.Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.audit {
		if s.state.audit[i].ID == id {
			edit(&s.state.audit[i])
			return true
		}
	}
	return false
}

// OutboxMessages returns a copy of every outbox message regardless of status
func (s *Store) OutboxMessages() []outbox.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.outbox)
}

func (s *Store) Accounts() account.Repository { return &accountRepository{s: s} }
func (s *Store) Transactions() ledger.Repository { return &transactionRepository{s: s} }
func (s *Store) Reconciliations() reconciliation.Repository { return &reconciliationRepository{s: s} }
func (s *Store) Corrections() correction.Repository { return &correctionRepository{s: s} }
func (s *Store) Audit() audit.Repository { return &auditRepository{s: s} }
func (s *Store) HealthChecks() health.Repository { return &healthRepository{s: s} }
func (s *Store) Outbox() outbox.Repository { return &outboxRepository{s: s} }
