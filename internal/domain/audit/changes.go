package audit

import (
	"encoding/json"
	"fmt"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// Changes is the typed payload of an audit entry. Each event type has exactly one variant.
type Changes interface {
	EventType() EventType
}

// TransactionCreatedChanges records a ledger transaction written by the engine
type TransactionCreatedChanges struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	AccountID     uuid.UUID                `json:"account_id"`
	Amount        currency.Amount          `json:"amount"`
	Type          shared.TransactionType   `json:"type"`
	Reference     *string                  `json:"reference,omitempty"`
	Status        shared.TransactionStatus `json:"status"`
}

func (TransactionCreatedChanges) EventType() EventType { return EventTransactionCreated }

// BalanceCorrectionChanges records the before and after of a corrected balance
type BalanceCorrectionChanges struct {
	CorrectionID uuid.UUID       `json:"correction_id"`
	From         currency.Amount `json:"from"`
	To           currency.Amount `json:"to"`
}

func (BalanceCorrectionChanges) EventType() EventType { return EventBalanceCorrection }

// ReconciliationRunChanges summarizes one reconciliation pass
type ReconciliationRunChanges struct {
	RecordID         uuid.UUID `json:"record_id"`
	Date             string    `json:"date"`
	Status           string    `json:"status"`
	AccountCount     int       `json:"account_count"`
	DiscrepancyCount int       `json:"discrepancy_count"`
}

func (ReconciliationRunChanges) EventType() EventType { return EventReconciliationRun }

// DiscrepancyResolvedChanges records an alert moving from OPEN to RESOLVED
type DiscrepancyResolvedChanges struct {
	AlertID uuid.UUID `json:"alert_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Notes   string    `json:"notes"`
}

func (DiscrepancyResolvedChanges) EventType() EventType { return EventDiscrepancyResolved }

// HealthCheckChanges records a persisted health snapshot
type HealthCheckChanges struct {
	CheckID    uuid.UUID `json:"check_id"`
	Status     string    `json:"status"`
	AlertCount int       `json:"alert_count"`
}

func (HealthCheckChanges) EventType() EventType { return EventHealthCheck }

// EncodeChanges serializes a payload for the storage column.
// Struct field order is fixed, so the output is stable across encode/decode cycles.
func EncodeChanges(c Changes) ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c)
}

// DecodeChanges restores the typed payload of eventType from its stored form
func DecodeChanges(eventType EventType, data []byte) (Changes, error) {
	switch eventType {
	case EventTransactionCreated:
		var c TransactionCreatedChanges
		return decodeInto(&c, data)
	case EventBalanceCorrection:
		var c BalanceCorrectionChanges
		return decodeInto(&c, data)
	case EventReconciliationRun:
		var c ReconciliationRunChanges
		return decodeInto(&c, data)
	case EventDiscrepancyResolved:
		var c DiscrepancyResolvedChanges
		return decodeInto(&c, data)
	case EventHealthCheck:
		var c HealthCheckChanges
		return decodeInto(&c, data)
	default:
		return nil, fmt.Errorf("unknown audit event type %q", eventType)
	}
}

func decodeInto[T Changes](c *T, data []byte) (Changes, error) {
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode audit changes: %w", err)
	}
	return *c, nil
}
