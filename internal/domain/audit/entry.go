// Package audit defines the append-only, hash-chained audit trail and the audit trail report.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EventType identifies what happened
type EventType string

const (
	EventTransactionCreated  EventType = "TRANSACTION_CREATED"
	EventBalanceCorrection   EventType = "BALANCE_CORRECTION"
	EventReconciliationRun   EventType = "RECONCILIATION_RUN"
	EventDiscrepancyResolved EventType = "DISCREPANCY_RESOLVED"
	EventHealthCheck         EventType = "HEALTH_CHECK"
)

// EntityType identifies what the entry is about
type EntityType string

const (
	EntityTransaction          EntityType = "TRANSACTION"
	EntityAccountBalance       EntityType = "ACCOUNT_BALANCE"
	EntityReconciliationRecord EntityType = "RECONCILIATION_RECORD"
	EntityDiscrepancyAlert     EntityType = "DISCREPANCY_ALERT"
	EntityHealthCheck          EntityType = "FINANCIAL_HEALTH_CHECK"
)

// Entry is one audit row. It is never updated or deleted.
type Entry struct {
	ID           int64      `json:"id"`
	EventType    EventType  `json:"event_type"`
	EntityType   EntityType `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	Changes      Changes    `json:"changes"`
	ActorID      *string    `json:"actor_id,omitempty"` // nil for system events
	CreatedAt    time.Time  `json:"created_at"`
	PreviousHash string     `json:"previous_hash"`
	Hash         string     `json:"hash"`
}

// NewEntry builds an unsealed entry. The event type comes from the payload.
// CreatedAt is truncated to the precision the store keeps so hashes survive a round trip.
func NewEntry(entityType EntityType, entityID string, changes Changes, actorID *string, at time.Time) *Entry {
	return &Entry{
		EventType:  changes.EventType(),
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		ActorID:    actorID,
		CreatedAt:  at.UTC().Truncate(time.Microsecond),
	}
}

// Seal links the entry to the current chain head and computes its hash
func (e *Entry) Seal(previousHash string) error {
	e.PreviousHash = previousHash
	hash, err := ComputeHash(e)
	if err != nil {
		return err
	}
	e.Hash = hash
	return nil
}

// ComputeHash returns the hex SHA-256 of the entry's canonical fields and its previous hash.
// The store-assigned ID is not part of the hash.
func ComputeHash(e *Entry) (string, error) {
	changes, err := EncodeChanges(e.Changes)
	if err != nil {
		return "", fmt.Errorf("failed to encode audit changes: %w", err)
	}
	actor := ""
	if e.ActorID != nil {
		actor = *e.ActorID
	}

	data := strings.Join([]string{
		string(e.EventType),
		string(e.EntityType),
		e.EntityID,
		string(changes),
		actor,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.PreviousHash,
	}, "|")

	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:]), nil
}

// ChainVerification is the outcome of walking the audit chain
type ChainVerification struct {
	Valid    bool   `json:"valid"`
	Checked  int    `json:"checked"`
	BrokenAt *int64 `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// VerifyChain walks entries in append order and reports the first link that does not hold
func VerifyChain(entries []*Entry) ChainVerification {
	previous := ""
	for i, e := range entries {
		if e.PreviousHash != previous {
			return broken(i, e.ID, "previous hash does not match the preceding entry")
		}
		hash, err := ComputeHash(e)
		if err != nil {
			return broken(i, e.ID, err.Error())
		}
		if hash != e.Hash {
			return broken(i, e.ID, "entry content does not match its hash")
		}
		previous = e.Hash
	}
	return ChainVerification{Valid: true, Checked: len(entries)}
}

func broken(checked int, id int64, reason string) ChainVerification {
	return ChainVerification{Valid: false, Checked: checked, BrokenAt: &id, Reason: reason}
}
