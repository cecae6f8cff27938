package ledger

import (
	"fmt"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// CorrectionReferencePrefix marks ledger adjustments written by balance corrections
const CorrectionReferencePrefix = "CORRECTION:"

// Transaction is an immutable record of one money movement.
// Amount holds the stored text as read from the ledger so malformed values can be reported
// by the integrity verifier instead of failing the read.
type Transaction struct {
	ID        uuid.UUID                `json:"id"`
	AccountID uuid.UUID                `json:"account_id"`
	Amount    string                   `json:"amount"`
	Type      shared.TransactionType   `json:"type"`
	Reference *string                  `json:"reference,omitempty"`
	Status    shared.TransactionStatus `json:"status"`
	CreatedAt time.Time                `json:"created_at"`
}

// ParsedAmount returns the magnitude of the transaction
func (t *Transaction) ParsedAmount() (currency.Amount, error) {
	a, err := currency.Parse(t.Amount)
	if err != nil {
		return currency.Zero, err
	}
	return a.Abs(), nil
}

// SignedAmount returns the effect on the account balance: positive for CREDIT, negative for DEBIT
func (t *Transaction) SignedAmount() (currency.Amount, error) {
	a, err := t.ParsedAmount()
	if err != nil {
		return currency.Zero, err
	}
	switch t.Type {
	case shared.TransactionTypeCredit:
		return a, nil
	case shared.TransactionTypeDebit:
		return a.Neg(), nil
	default:
		return currency.Zero, fmt.Errorf("unknown transaction type %q", t.Type)
	}
}

// IsCompleted reports whether the transaction affects balances
func (t *Transaction) IsCompleted() bool {
	return t.Status == shared.TransactionStatusCompleted
}

// NewAdjustment creates the COMPLETED ledger transaction that carries a balance correction delta.
// A positive delta is booked as a CREDIT, a negative one as a DEBIT.
func NewAdjustment(accountID uuid.UUID, delta currency.Amount, correctionID uuid.UUID, at time.Time) *Transaction {
	txType := shared.TransactionTypeCredit
	if delta.IsNegative() {
		txType = shared.TransactionTypeDebit
	}
	reference := CorrectionReferencePrefix + correctionID.String()

	return &Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    delta.Abs().String(),
		Type:      txType,
		Reference: &reference,
		Status:    shared.TransactionStatusCompleted,
		CreatedAt: at,
	}
}

// SameReference compares optional references, treating two missing references as equal
func SameReference(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
