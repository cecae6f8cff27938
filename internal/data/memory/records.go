package memory

import (
	"context"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

type correctionRepository struct {
	s *Store
}

func (r *correctionRepository) WithTx(pgx.Tx) correction.Repository { return r }

func (r *correctionRepository) Create(ctx context.Context, c *correction.BalanceCorrection) error {
	unlock, err := r.s.write("corrections.Create")
	if err != nil {
		return err
	}
	defer unlock()

	r.s.state.corrections = append(r.s.state.corrections, *c)
	return nil
}

func (r *correctionRepository) List(ctx context.Context, filter correction.Filter, page shared.Pagination) ([]*correction.BalanceCorrection, int, error) {
	unlock, err := r.s.read("corrections.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	corrections := newestFirst(r.s.state.corrections,
		func(c *correction.BalanceCorrection) time.Time { return c.CreatedAt },
		func(c *correction.BalanceCorrection) bool {
			return (filter.AccountID == nil || c.AccountID == *filter.AccountID) &&
				within(c.CreatedAt, filter.From, filter.To)
		})
	return paginate(corrections, page), len(corrections), nil
}

type auditRepository struct {
	s *Store
}

func (r *auditRepository) WithTx(pgx.Tx) audit.Repository { return r }

func (r *auditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	unlock, err := r.s.write("audit.Append")
	if err != nil {
		return err
	}
	defer unlock()

	if err := entry.Seal(r.s.state.auditHead); err != nil {
		return err
	}
	entry.ID = r.s.state.nextAuditID
	r.s.state.nextAuditID++
	r.s.state.audit = append(r.s.state.audit, *entry)
	r.s.state.auditHead = entry.Hash
	return nil
}

func (r *auditRepository) HasEntry(ctx context.Context, eventType audit.EventType, entityType audit.EntityType, entityID string) (bool, error) {
	unlock, err := r.s.read("audit.HasEntry")
	if err != nil {
		return false, err
	}
	defer unlock()

	for _, e := range r.s.state.audit {
		if e.EventType == eventType && e.EntityType == entityType && e.EntityID == entityID {
			return true, nil
		}
	}
	return false, nil
}

func (r *auditRepository) ListChain(ctx context.Context) ([]*audit.Entry, error) {
	unlock, err := r.s.read("audit.ListChain")
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries := make([]*audit.Entry, 0, len(r.s.state.audit))
	for _, e := range r.s.state.audit {
		entries = append(entries, &e)
	}
	return entries, nil
}

type healthRepository struct {
	s *Store
}

func (r *healthRepository) WithTx(pgx.Tx) health.Repository { return r }

func (r *healthRepository) Create(ctx context.Context, check *health.Check) error {
	unlock, err := r.s.write("health.Create")
	if err != nil {
		return err
	}
	defer unlock()

	r.s.state.checks = append(r.s.state.checks, *check)
	return nil
}

func (r *healthRepository) List(ctx context.Context, filter health.Filter, page shared.Pagination) ([]*health.Check, int, error) {
	unlock, err := r.s.read("health.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	checks := newestFirst(r.s.state.checks,
		func(c *health.Check) time.Time { return c.CreatedAt },
		func(c *health.Check) bool {
			return (filter.Status == nil || c.Status == *filter.Status) &&
				within(c.CreatedAt, filter.From, filter.To)
		})
	return paginate(checks, page), len(checks), nil
}

type outboxRepository struct {
	s *Store
}

func (r *outboxRepository) WithTx(pgx.Tx) outbox.Repository { return r }

func (r *outboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	unlock, err := r.s.write("outbox.Create")
	if err != nil {
		return err
	}
	defer unlock()

	message.ID = r.s.state.nextOutboxID
	r.s.state.nextOutboxID++
	r.s.state.outbox = append(r.s.state.outbox, *message)
	return nil
}

func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	unlock, err := r.s.read("outbox.GetPending")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var messages []*outbox.Message
	for _, m := range r.s.state.outbox {
		if len(messages) == limit {
			break
		}
		if m.Status == shared.OutboxStatusPending {
			messages = append(messages, &m)
		}
	}
	return messages, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.update("outbox.UpdateStatus", id, func(m *outbox.Message) {
		m.Status = status
		now := time.Now()
		m.LastAttemptAt = &now
	})
}

func (r *outboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.update("outbox.IncrementAttempts", id, (*outbox.Message).IncrementAttempts)
}

func (r *outboxRepository) update(op string, id int64, apply func(*outbox.Message)) error {
	unlock, err := r.s.write(op)
	if err != nil {
		return err
	}
	defer unlock()

	for i := range r.s.state.outbox {
		if r.s.state.outbox[i].ID == id {
			m := r.s.state.outbox[i]
			apply(&m)
			r.s.state.outbox[i] = m
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}
