package memory

import (
	"context"
	"sort"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// newestFirst copies the items that pass keep, ordered by creation time descending
func newestFirst[T any](items []T, createdAt func(*T) time.Time, keep func(*T) bool) []*T {
	out := []*T{}
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if keep(&item) {
			out = append(out, &item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).After(createdAt(out[j]))
	})
	return out
}

func paginate[T any](items []*T, page shared.Pagination) []*T {
	start, end := page.Window(len(items))
	return items[start:end]
}

// within applies optional [from, to) bounds
func within(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

type reconciliationRepository struct {
	s *Store
}

func (r *reconciliationRepository) WithTx(pgx.Tx) reconciliation.Repository { return r }

func (r *reconciliationRepository) CreateRecord(ctx context.Context, record *reconciliation.Record) error {
	unlock, err := r.s.write("reconciliations.CreateRecord")
	if err != nil {
		return err
	}
	defer unlock()

	stored := *record
	stored.Discrepancies = nil
	r.s.state.records = append(r.s.state.records, stored)
	for _, a := range record.Discrepancies {
		r.s.state.alerts = append(r.s.state.alerts, *a)
	}
	return nil
}

func (r *reconciliationRepository) GetRecord(ctx context.Context, id uuid.UUID) (*reconciliation.Record, error) {
	unlock, err := r.s.read("reconciliations.GetRecord")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, record := range r.s.state.records {
		if record.ID == id {
			r.attachAlerts(&record)
			return &record, nil
		}
	}
	return nil, reconciliation.ErrRecordNotFound{RecordID: id}
}

func (r *reconciliationRepository) ListRecords(ctx context.Context, filter reconciliation.RecordFilter, page shared.Pagination) ([]*reconciliation.Record, int, error) {
	unlock, err := r.s.read("reconciliations.ListRecords")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	records := newestFirst(r.s.state.records,
		func(rec *reconciliation.Record) time.Time { return rec.CreatedAt },
		func(rec *reconciliation.Record) bool {
			return (filter.Date == nil || rec.Date == *filter.Date) &&
				(filter.Status == nil || rec.Status == *filter.Status)
		})

	selected := paginate(records, page)
	for _, record := range selected {
		r.attachAlerts(record)
	}
	return selected, len(records), nil
}

// attachAlerts must be called with the store read lock held
func (r *reconciliationRepository) attachAlerts(record *reconciliation.Record) {
	record.Discrepancies = []*reconciliation.DiscrepancyAlert{}
	for _, a := range r.s.state.alerts {
		if a.RecordID == record.ID {
			record.Discrepancies = append(record.Discrepancies, &a)
		}
	}
	record.SortDiscrepancies()
}

func (r *reconciliationRepository) GetAlert(ctx context.Context, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	return r.getAlert("reconciliations.GetAlert", id)
}

func (r *reconciliationRepository) LockAlert(ctx context.Context, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	return r.getAlert("reconciliations.LockAlert", id)
}

func (r *reconciliationRepository) getAlert(op string, id uuid.UUID) (*reconciliation.DiscrepancyAlert, error) {
	unlock, err := r.s.read(op)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, a := range r.s.state.alerts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, reconciliation.ErrAlertNotFound{AlertID: id}
}

func (r *reconciliationRepository) SaveResolution(ctx context.Context, alert *reconciliation.DiscrepancyAlert) error {
	unlock, err := r.s.write("reconciliations.SaveResolution")
	if err != nil {
		return err
	}
	defer unlock()

	for i, a := range r.s.state.alerts {
		if a.ID != alert.ID {
			continue
		}
		if a.Status != reconciliation.AlertStatusOpen {
			break
		}
		a.Status = alert.Status
		a.ResolutionNotes = alert.ResolutionNotes
		a.ResolvedBy = alert.ResolvedBy
		a.ResolvedAt = alert.ResolvedAt
		r.s.state.alerts[i] = a
		return nil
	}
	return reconciliation.ErrAlertAlreadyResolved{AlertID: alert.ID}
}

func (r *reconciliationRepository) ListAlerts(ctx context.Context, filter reconciliation.AlertFilter, page shared.Pagination) ([]*reconciliation.DiscrepancyAlert, int, error) {
	unlock, err := r.s.read("reconciliations.ListAlerts")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	alerts := newestFirst(r.s.state.alerts,
		func(a *reconciliation.DiscrepancyAlert) time.Time { return a.CreatedAt },
		func(a *reconciliation.DiscrepancyAlert) bool {
			return (filter.Status == nil || a.Status == *filter.Status) &&
				(filter.Severity == nil || a.Severity == *filter.Severity) &&
				(filter.AccountID == nil || a.AccountID == *filter.AccountID) &&
				within(a.CreatedAt, filter.From, filter.To)
		})
	return paginate(alerts, page), len(alerts), nil
}

func (r *reconciliationRepository) ListAlertsBetween(ctx context.Context, start, end time.Time) ([]*reconciliation.DiscrepancyAlert, error) {
	unlock, err := r.s.read("reconciliations.ListAlertsBetween")
	if err != nil {
		return nil, err
	}
	defer unlock()

	alerts := []*reconciliation.DiscrepancyAlert{}
	for _, a := range r.s.state.alerts {
		if within(a.CreatedAt, &start, &end) {
			alerts = append(alerts, &a)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].CreatedAt.Before(alerts[j].CreatedAt) })
	return alerts, nil
}

func (r *reconciliationRepository) CountOpenAlerts(ctx context.Context) (int, error) {
	unlock, err := r.s.read("reconciliations.CountOpenAlerts")
	if err != nil {
		return 0, err
	}
	defer unlock()

	count := 0
	for _, a := range r.s.state.alerts {
		if a.Status == reconciliation.AlertStatusOpen {
			count++
		}
	}
	return count, nil
}
