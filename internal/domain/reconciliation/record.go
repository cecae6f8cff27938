// Package reconciliation holds the output of reconciliation passes: records and the
// discrepancy alerts they raise.
package reconciliation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
)

// DateLayout is the layout of a reconciliation target date
const DateLayout = "2006-01-02"

// Status is the overall outcome of a pass
type Status string

const (
	StatusReconciled       Status = "RECONCILED"
	StatusDiscrepancyFound Status = "DISCREPANCY_FOUND"
)

// Severity classifies the magnitude of a discrepancy
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// AlertStatus is the lifecycle state of a discrepancy alert
type AlertStatus string

const (
	AlertStatusOpen     AlertStatus = "OPEN"
	AlertStatusResolved AlertStatus = "RESOLVED"
)

// Record is the immutable result of one reconciliation pass for one date.
// Re-running a date creates a new Record; earlier ones are kept.
type Record struct {
	ID               uuid.UUID                     `json:"id"`
	Date             string                        `json:"date"`
	Status           Status                        `json:"status"`
	ExpectedBalances map[uuid.UUID]currency.Amount `json:"expected_balances"`
	ActualBalances   map[uuid.UUID]currency.Amount `json:"actual_balances"`
	Discrepancies    []*DiscrepancyAlert           `json:"discrepancies"`
	CreatedAt        time.Time                     `json:"created_at"`
}

// DiscrepancyAlert is one expected/actual mismatch for one account
type DiscrepancyAlert struct {
	ID              uuid.UUID       `json:"id"`
	RecordID        uuid.UUID       `json:"reconciliation_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	ExpectedAmount  currency.Amount `json:"expected_amount"`
	ActualAmount    currency.Amount `json:"actual_amount"`
	Difference      currency.Amount `json:"difference"`
	Severity        Severity        `json:"severity"`
	Status          AlertStatus     `json:"status"`
	ResolutionNotes *string         `json:"resolution_notes,omitempty"`
	ResolvedBy      *string         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewRecord starts an empty record for date
func NewRecord(date string, createdAt time.Time) *Record {
	return &Record{
		ID:               uuid.New(),
		Date:             date,
		Status:           StatusReconciled,
		ExpectedBalances: make(map[uuid.UUID]currency.Amount),
		ActualBalances:   make(map[uuid.UUID]currency.Amount),
		Discrepancies:    []*DiscrepancyAlert{},
		CreatedAt:        createdAt,
	}
}

// Compare records both balances for an account and raises an alert when they differ.
// Amounts are exact after rounding, so equality is the only tolerance.
func (r *Record) Compare(accountID uuid.UUID, expected, actual currency.Amount, policy SeverityPolicy) *DiscrepancyAlert {
	r.ExpectedBalances[accountID] = expected
	r.ActualBalances[accountID] = actual
	if expected.Equal(actual) {
		return nil
	}

	difference := actual.Sub(expected)
	alert := &DiscrepancyAlert{
		ID:             uuid.New(),
		RecordID:       r.ID,
		AccountID:      accountID,
		ExpectedAmount: expected,
		ActualAmount:   actual,
		Difference:     difference,
		Severity:       policy.Classify(difference),
		Status:         AlertStatusOpen,
		CreatedAt:      r.CreatedAt,
	}
	r.Discrepancies = append(r.Discrepancies, alert)
	r.Status = StatusDiscrepancyFound
	return alert
}

// SortDiscrepancies orders alerts by account id
func (r *Record) SortDiscrepancies() {
	sort.Slice(r.Discrepancies, func(i, j int) bool {
		return r.Discrepancies[i].AccountID.String() < r.Discrepancies[j].AccountID.String()
	})
}

// Resolve closes an open alert. Notes are mandatory.
func (a *DiscrepancyAlert) Resolve(notes string, actorID *string, at time.Time) error {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return ErrResolutionNotesRequired
	}
	if a.Status == AlertStatusResolved {
		return ErrAlertAlreadyResolved{AlertID: a.ID}
	}

	a.Status = AlertStatusResolved
	a.ResolutionNotes = &trimmed
	a.ResolvedBy = actorID
	a.ResolvedAt = &at
	return nil
}

// ParseDate parses a YYYY-MM-DD target date in loc. Empty text means today in loc.
func ParseDate(text string, now time.Time, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(text) == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate{Value: text}
	}
	return day, nil
}

// DayWindow returns [00:00, next 00:00) for the day starting at start
func DayWindow(start time.Time) (time.Time, time.Time) {
	return start, start.AddDate(0, 0, 1)
}

// ErrInvalidDate indicates a malformed reconciliation target date
type ErrInvalidDate struct {
	Value string
}

func (e ErrInvalidDate) Error() string {
	return fmt.Sprintf("invalid reconciliation date %q: expected YYYY-MM-DD", e.Value)
}
