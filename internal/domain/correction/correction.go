package correction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
)

// Type is derived from the sign of the correction difference
type Type string

const (
	TypeCreditAdjustment Type = "CREDIT_ADJUSTMENT"
	TypeDebitAdjustment  Type = "DEBIT_ADJUSTMENT"
)

// TypeFor returns CREDIT_ADJUSTMENT for a zero or positive difference, DEBIT_ADJUSTMENT otherwise
func TypeFor(difference currency.Amount) Type {
	if difference.IsNegative() {
		return TypeDebitAdjustment
	}
	return TypeCreditAdjustment
}

// Request is the caller input of a balance correction.
// CurrentBalance is the balance the caller observed; CorrectBalance is the target.
type Request struct {
	AccountID      uuid.UUID `json:"account_id"`
	CurrentBalance string    `json:"current_balance"`
	CorrectBalance string    `json:"correct_balance"`
	Reason         string    `json:"reason"`
	Evidence       *string   `json:"evidence,omitempty"`
}

// Validated holds the parsed form of a Request
type Validated struct {
	AccountID      uuid.UUID
	CurrentBalance currency.Amount
	CorrectBalance currency.Amount
	Reason         string
	Evidence       *string
}

// Validate parses both amounts and checks the reason. It touches no storage.
func (r Request) Validate() (*Validated, error) {
	current, err := currency.Parse(r.CurrentBalance)
	if err != nil {
		return nil, ErrInvalidAmountFormat{Field: "current_balance", Value: r.CurrentBalance, err: err}
	}
	correct, err := currency.Parse(r.CorrectBalance)
	if err != nil {
		return nil, ErrInvalidAmountFormat{Field: "correct_balance", Value: r.CorrectBalance, err: err}
	}

	reason := strings.TrimSpace(r.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var evidence *string
	if r.Evidence != nil {
		if e := strings.TrimSpace(*r.Evidence); e != "" {
			evidence = &e
		}
	}

	return &Validated{
		AccountID:      r.AccountID,
		CurrentBalance: current,
		CorrectBalance: correct,
		Reason:         reason,
		Evidence:       evidence,
	}, nil
}

// BalanceCorrection is the immutable record of one applied correction
type BalanceCorrection struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   *uuid.UUID      `json:"transaction_id,omitempty"`
	AccountID       uuid.UUID       `json:"account_id"`
	PreviousBalance currency.Amount `json:"previous_balance"`
	NewBalance      currency.Amount `json:"new_balance"`
	Difference      currency.Amount `json:"difference"`
	Type            Type            `json:"correction_type"`
	Reason          string          `json:"reason"`
	Evidence        *string         `json:"evidence,omitempty"`
	ActorID         *string         `json:"actor_id,omitempty"`

	// ObservedBalance is the live balance read under lock. It differs from PreviousBalance
	// when another writer changed the account after the caller looked at it.
	ObservedBalance    currency.Amount `json:"observed_balance"`
	ConcurrencyWarning bool            `json:"concurrency_warning"`
	CreatedAt          time.Time       `json:"created_at"`
}

// New builds a correction from validated input and the live balance
func New(v *Validated, observed currency.Amount, actorID *string, at time.Time) *BalanceCorrection {
	difference := v.CorrectBalance.Sub(v.CurrentBalance)
	return &BalanceCorrection{
		ID:                 uuid.New(),
		AccountID:          v.AccountID,
		PreviousBalance:    v.CurrentBalance,
		NewBalance:         v.CorrectBalance,
		Difference:         difference,
		Type:               TypeFor(difference),
		Reason:             v.Reason,
		Evidence:           v.Evidence,
		ActorID:            actorID,
		ObservedBalance:    observed,
		ConcurrencyWarning: !observed.Equal(v.CurrentBalance),
		CreatedAt:          at,
	}
}

// AppliedDelta is the change actually made to the stored balance
func (c *BalanceCorrection) AppliedDelta() currency.Amount {
	return c.NewBalance.Sub(c.ObservedBalance)
}

// ErrReasonRequired is returned when a correction has no justification
var ErrReasonRequired = errors.New("correction reason is required")

// ErrInvalidAmountFormat reports which correction field failed to parse
type ErrInvalidAmountFormat struct {
	Field string
	Value string
	err   error
}

func (e ErrInvalidAmountFormat) Error() string {
	return fmt.Sprintf("invalid amount format for %s: %q", e.Field, e.Value)
}

func (e ErrInvalidAmountFormat) Unwrap() error {
	if e.err == nil {
		return currency.ErrInvalidFormat
	}
	return e.err
}

// Is implements the errors.Is interface for ErrInvalidAmountFormat.
// An empty target Field matches any field.
func (e ErrInvalidAmountFormat) Is(target error) bool {
	t, ok := target.(ErrInvalidAmountFormat)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}
