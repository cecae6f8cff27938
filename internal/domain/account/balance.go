package account

import (
	"errors"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
)

var ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")

// AccountBalance is the materialized balance of one account.
// OpeningBalance is the balance the account was created with; it anchors the start-of-day
// balance computed by reconciliation.
type AccountBalance struct {
	AccountID      uuid.UUID       `json:"account_id"`
	Balance        currency.Amount `json:"balance"`
	OpeningBalance currency.Amount `json:"opening_balance"`
	Currency       string          `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewAccountBalance creates a balance row whose current balance equals its opening balance
func NewAccountBalance(opening currency.Amount, currencyCode string, createdAt time.Time) (*AccountBalance, error) {
	if len(currencyCode) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	return &AccountBalance{
		AccountID:      uuid.New(),
		Balance:        opening,
		OpeningBalance: opening,
		Currency:       currencyCode,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}, nil
}

// ExistedBy reports whether the account had been created before t
func (a *AccountBalance) ExistedBy(t time.Time) bool {
	return a.CreatedAt.Before(t)
}
