package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/google/uuid"
)

// ReconcileRequest represents a request to run a reconciliation pass. An empty date means today.
type ReconcileRequest struct {
	Date string `json:"date"`
}

// CorrectBalanceRequest represents a balance correction. Amounts are accepted as text so that
// currency formatted input like "৳5,500.00" can be validated by the engine.
type CorrectBalanceRequest struct {
	AccountID      string  `json:"account_id" binding:"required,uuid"`
	CurrentBalance string  `json:"current_balance"`
	CorrectBalance string  `json:"correct_balance"`
	Reason         string  `json:"reason"`
	Evidence       *string `json:"evidence,omitempty"`
}

// ResolveDiscrepancyRequest represents the operator's resolution of an alert
type ResolveDiscrepancyRequest struct {
	Notes string `json:"notes"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// DiscrepancyResponse represents a discrepancy alert in API responses
type DiscrepancyResponse struct {
	ID                  string     `json:"id"`
	ReconciliationID    string     `json:"reconciliation_id"`
	AccountID           string     `json:"account_id"`
	ExpectedAmount      string     `json:"expected_amount"`
	ActualAmount        string     `json:"actual_amount"`
	Difference          string     `json:"difference"`
	FormattedDifference string     `json:"formatted_difference"`
	Severity            string     `json:"severity"`
	Status              string     `json:"status"`
	ResolutionNotes     *string    `json:"resolution_notes,omitempty"`
	ResolvedBy          *string    `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	CreatedAt           string     `json:"created_at"`
}

// ReconciliationResponse represents a reconciliation record in API responses
type ReconciliationResponse struct {
	ID               string                `json:"id"`
	Date             string                `json:"date"`
	Status           string                `json:"status"`
	ExpectedBalances map[string]string     `json:"expected_balances"`
	ActualBalances   map[string]string     `json:"actual_balances"`
	Discrepancies    []DiscrepancyResponse `json:"discrepancies"`
	CreatedAt        string                `json:"created_at"`
}

// CorrectionResponse represents a balance correction in API responses
type CorrectionResponse struct {
	ID                  string  `json:"id"`
	TransactionID       *string `json:"transaction_id,omitempty"`
	AccountID           string  `json:"account_id"`
	PreviousBalance     string  `json:"previous_balance"`
	NewBalance          string  `json:"new_balance"`
	Difference          string  `json:"difference"`
	FormattedDifference string  `json:"formatted_difference"`
	CorrectionType      string  `json:"correction_type"`
	Reason              string  `json:"reason"`
	Evidence            *string `json:"evidence,omitempty"`
	ActorID             *string `json:"actor_id,omitempty"`
	ObservedBalance     string  `json:"observed_balance"`
	ConcurrencyWarning  bool    `json:"concurrency_warning"`
	CreatedAt           string  `json:"created_at"`
}

// Presenter maps domain values to response DTOs, formatting amounts for display
type Presenter struct {
	formatter currency.Formatter
}

func NewPresenter(formatter currency.Formatter) *Presenter {
	return &Presenter{formatter: formatter}
}

func (p *Presenter) Discrepancy(a *reconciliation.DiscrepancyAlert) DiscrepancyResponse {
	return DiscrepancyResponse{
		ID:                  a.ID.String(),
		ReconciliationID:    a.RecordID.String(),
		AccountID:           a.AccountID.String(),
		ExpectedAmount:      a.ExpectedAmount.String(),
		ActualAmount:        a.ActualAmount.String(),
		Difference:          a.Difference.String(),
		FormattedDifference: p.formatter.Format(a.Difference),
		Severity:            string(a.Severity),
		Status:              string(a.Status),
		ResolutionNotes:     a.ResolutionNotes,
		ResolvedBy:          a.ResolvedBy,
		ResolvedAt:          a.ResolvedAt,
		CreatedAt:           a.CreatedAt.Format(time.RFC3339),
	}
}

func (p *Presenter) Discrepancies(alerts []*reconciliation.DiscrepancyAlert) []DiscrepancyResponse {
	out := make([]DiscrepancyResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, p.Discrepancy(a))
	}
	return out
}

func (p *Presenter) Reconciliation(r *reconciliation.Record) ReconciliationResponse {
	return ReconciliationResponse{
		ID:               r.ID.String(),
		Date:             r.Date,
		Status:           string(r.Status),
		ExpectedBalances: amountsByAccount(r.ExpectedBalances),
		ActualBalances:   amountsByAccount(r.ActualBalances),
		Discrepancies:    p.Discrepancies(r.Discrepancies),
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

func (p *Presenter) Correction(c *correction.BalanceCorrection) CorrectionResponse {
	response := CorrectionResponse{
		ID:                  c.ID.String(),
		AccountID:           c.AccountID.String(),
		PreviousBalance:     c.PreviousBalance.String(),
		NewBalance:          c.NewBalance.String(),
		Difference:          c.Difference.String(),
		FormattedDifference: p.formatter.Format(c.Difference),
		CorrectionType:      string(c.Type),
		Reason:              c.Reason,
		Evidence:            c.Evidence,
		ActorID:             c.ActorID,
		ObservedBalance:     c.ObservedBalance.String(),
		ConcurrencyWarning:  c.ConcurrencyWarning,
		CreatedAt:           c.CreatedAt.Format(time.RFC3339),
	}
	if c.TransactionID != nil {
		id := c.TransactionID.String()
		response.TransactionID = &id
	}
	return response
}

func amountsByAccount(amounts map[uuid.UUID]currency.Amount) map[string]string {
	out := make(map[string]string, len(amounts))
	for id, a := range amounts {
		out[id.String()] = a.String()
	}
	return out
}

// parseTimeParam accepts YYYY-MM-DD (start of day in loc) or RFC3339. Empty text yields nil.
func parseTimeParam(name, text string, loc *time.Location) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(reconciliation.DateLayout, text, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD or RFC3339", name, text)
	}
	return &t, nil
}

func parseUUIDParam(name, text string) (*uuid.UUID, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	id, err := uuid.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, text)
	}
	return &id, nil
}
