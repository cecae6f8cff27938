package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
)

const dateLayout = "2006-01-02"

// Period is a half-open [Start, End) interval
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in [Start, End)
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// ParsePeriod parses both bounds as YYYY-MM-DD in loc or as RFC3339 timestamps.
// Start must be strictly before End.
func ParsePeriod(startText, endText string, loc *time.Location) (Period, error) {
	start, err := parseBound(startText, loc)
	if err != nil {
		return Period{}, ErrInvalidDateRange{Start: startText, End: endText, Reason: "start date: " + err.Error()}
	}
	end, err := parseBound(endText, loc)
	if err != nil {
		return Period{}, ErrInvalidDateRange{Start: startText, End: endText, Reason: "end date: " + err.Error()}
	}
	if !start.Before(end) {
		return Period{}, ErrInvalidDateRange{Start: startText, End: endText, Reason: "start date must be before end date"}
	}
	return Period{Start: start, End: end}, nil
}

func parseBound(text string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, errors.New("missing")
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t, nil
}

// Summary holds the derived counters of a TrailReport
type Summary struct {
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      currency.Amount `json:"total_amount"`
	DiscrepancyCount int             `json:"discrepancy_count"`
}

// TrailReport aggregates transactions and discrepancies created within a period
type TrailReport struct {
	Period        Period                             `json:"period"`
	Transactions  []*ledger.Transaction              `json:"transactions"`
	Discrepancies []*reconciliation.DiscrepancyAlert `json:"discrepancies"`
	Summary       Summary                            `json:"summary"`
}

// BuildTrailReport keeps the rows inside period and derives the summary.
// TotalAmount sums the magnitude of COMPLETED transactions whose stored amount parses;
// malformed amounts are counted but not summed, and returned in skipped.
func BuildTrailReport(period Period, transactions []*ledger.Transaction, alerts []*reconciliation.DiscrepancyAlert) (report *TrailReport, skipped []*ledger.Transaction) {
	report = &TrailReport{
		Period:        period,
		Transactions:  []*ledger.Transaction{},
		Discrepancies: []*reconciliation.DiscrepancyAlert{},
	}

	total := currency.Zero
	for _, t := range transactions {
		if !period.Contains(t.CreatedAt) {
			continue
		}
		report.Transactions = append(report.Transactions, t)
		if !t.IsCompleted() {
			continue
		}
		amount, err := t.ParsedAmount()
		if err != nil {
			skipped = append(skipped, t)
			continue
		}
		total = total.Add(amount)
	}

	for _, a := range alerts {
		if period.Contains(a.CreatedAt) {
			report.Discrepancies = append(report.Discrepancies, a)
		}
	}

	report.Summary = Summary{
		TransactionCount: len(report.Transactions),
		TotalAmount:      total,
		DiscrepancyCount: len(report.Discrepancies),
	}
	return report, skipped
}

// ErrInvalidDateRange is returned for malformed or inverted audit trail bounds
type ErrInvalidDateRange struct {
	Start  string
	End    string
	Reason string
}

func (e ErrInvalidDateRange) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s): %s", e.Start, e.End, e.Reason)
}

// Is implements the errors.Is interface for ErrInvalidDateRange
func (e ErrInvalidDateRange) Is(target error) bool {
	_, ok := target.(ErrInvalidDateRange)
	return ok
}
