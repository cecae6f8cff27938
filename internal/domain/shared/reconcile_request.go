package shared

import (
	"time"

	"github.com/google/uuid"
)

// ReconcileRequest defines a Kafka message asking the worker to run a reconciliation pass
type ReconcileRequest struct {
	RequestID     uuid.UUID `json:"request_id"`
	Date          string    `json:"date,omitempty"` // YYYY-MM-DD, empty means today
	RequestedBy   string    `json:"requested_by,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}
