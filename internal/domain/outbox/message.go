package outbox

import (
	"encoding/json"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// EventType names a financial event published from the outbox
type EventType string

const (
	EventReconciliationCompleted EventType = "reconciliation.completed"
	EventBalanceCorrected        EventType = "balance.corrected"
	EventDiscrepancyResolved     EventType = "discrepancy.resolved"
)

// Message stores a financial event in the same transaction as the change it describes,
// so it is published only if that change committed
type Message struct {
	ID            int64               `json:"id"`
	EventType     EventType           `json:"event_type"`
	AggregateID   uuid.UUID           `json:"aggregate_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage marshals payload into a PENDING message
func NewMessage(eventType EventType, aggregateID uuid.UUID, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     data,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Event is the envelope published to the events topic and archived
type Event struct {
	OutboxID    int64           `json:"outbox_id" bson:"outbox_id"`
	Type        EventType       `json:"type" bson:"type"`
	AggregateID string          `json:"aggregate_id" bson:"aggregate_id"`
	Payload     json.RawMessage `json:"payload" bson:"-"`
	OccurredAt  time.Time       `json:"occurred_at" bson:"occurred_at"`
}

// Event wraps the message for publication
func (m *Message) Event() *Event {
	return &Event{
		OutboxID:    m.ID,
		Type:        m.EventType,
		AggregateID: m.AggregateID.String(),
		Payload:     m.Payload,
		OccurredAt:  m.CreatedAt,
	}
}
