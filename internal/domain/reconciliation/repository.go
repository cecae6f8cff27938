package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordFilter narrows ListRecords
type RecordFilter struct {
	Date   *string
	Status *Status
}

// AlertFilter narrows ListAlerts
type AlertFilter struct {
	Status    *AlertStatus
	Severity  *Severity
	AccountID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// Repository persists reconciliation records and their discrepancy alerts
type Repository interface {
	// CreateRecord stores the record and all of its discrepancies
	CreateRecord(ctx context.Context, record *Record) error
	GetRecord(ctx context.Context, id uuid.UUID) (*Record, error)
	ListRecords(ctx context.Context, filter RecordFilter, page shared.Pagination) ([]*Record, int, error)

	GetAlert(ctx context.Context, id uuid.UUID) (*DiscrepancyAlert, error)
	LockAlert(ctx context.Context, id uuid.UUID) (*DiscrepancyAlert, error)
	SaveResolution(ctx context.Context, alert *DiscrepancyAlert) error
	ListAlerts(ctx context.Context, filter AlertFilter, page shared.Pagination) ([]*DiscrepancyAlert, int, error)
	ListAlertsBetween(ctx context.Context, start, end time.Time) ([]*DiscrepancyAlert, error)
	CountOpenAlerts(ctx context.Context) (int, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrResolutionNotesRequired is returned when resolving an alert without notes
var ErrResolutionNotesRequired = errors.New("resolution notes are required")

// ErrRecordNotFound indicates a missing reconciliation record
type ErrRecordNotFound struct {
	RecordID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "reconciliation record not found: " + e.RecordID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	return t.RecordID == uuid.Nil || e.RecordID == t.RecordID
}

// ErrAlertNotFound indicates a missing discrepancy alert
type ErrAlertNotFound struct {
	AlertID uuid.UUID
}

func (e ErrAlertNotFound) Error() string {
	return "discrepancy alert not found: " + e.AlertID.String()
}

// Is implements the errors.Is interface for ErrAlertNotFound
func (e ErrAlertNotFound) Is(target error) bool {
	t, ok := target.(ErrAlertNotFound)
	if !ok {
		return false
	}
	return t.AlertID == uuid.Nil || e.AlertID == t.AlertID
}

// ErrAlertAlreadyResolved is returned when resolving a RESOLVED alert
type ErrAlertAlreadyResolved struct {
	AlertID uuid.UUID
}

func (e ErrAlertAlreadyResolved) Error() string {
	return "discrepancy alert already resolved: " + e.AlertID.String()
}

// Is implements the errors.Is interface for ErrAlertAlreadyResolved
func (e ErrAlertAlreadyResolved) Is(target error) bool {
	t, ok := target.(ErrAlertAlreadyResolved)
	if !ok {
		return false
	}
	return t.AlertID == uuid.Nil || e.AlertID == t.AlertID
}
