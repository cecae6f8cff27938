package health

import (
	"context"
	"fmt"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Status is the overall outcome of a health check
type Status string

const (
	StatusHealthy        Status = "HEALTHY"
	StatusIssuesDetected Status = "ISSUES_DETECTED"
)

// AlertType names the condition a health alert reports
type AlertType string

const (
	AlertOutstandingDiscrepancies AlertType = "OUTSTANDING_DISCREPANCIES"
	AlertNegativeBalance          AlertType = "NEGATIVE_BALANCE"
)

// BalanceAnomaly is an account whose balance breaks an expectation
type BalanceAnomaly struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   currency.Amount `json:"balance"`
	Type      AlertType       `json:"type"`
}

// Metrics are the values computed by one check
type Metrics struct {
	OutstandingDiscrepancies int              `json:"outstanding_discrepancies"`
	BalanceAnomalies         []BalanceAnomaly `json:"balance_anomalies"`
}

// Alert is one condition raised during a check
type Alert struct {
	Type      AlertType  `json:"type"`
	Message   string     `json:"message"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Count     int        `json:"count,omitempty"`
}

// Check is an immutable financial health snapshot
type Check struct {
	ID        uuid.UUID `json:"id"`
	Status    Status    `json:"status"`
	Metrics   Metrics   `json:"metrics"`
	Alerts    []Alert   `json:"alerts"`
	CreatedAt time.Time `json:"created_at"`
}

// Evaluate derives status and alerts from the scanned metrics
func Evaluate(openDiscrepancies int, anomalies []BalanceAnomaly, at time.Time) *Check {
	if anomalies == nil {
		anomalies = []BalanceAnomaly{}
	}
	check := &Check{
		ID:     uuid.New(),
		Status: StatusHealthy,
		Metrics: Metrics{
			OutstandingDiscrepancies: openDiscrepancies,
			BalanceAnomalies:         anomalies,
		},
		Alerts:    []Alert{},
		CreatedAt: at,
	}

	if openDiscrepancies > 0 {
		check.Alerts = append(check.Alerts, Alert{
			Type:    AlertOutstandingDiscrepancies,
			Message: fmt.Sprintf("%d discrepancy alerts are still open", openDiscrepancies),
			Count:   openDiscrepancies,
		})
	}
	for _, a := range anomalies {
		accountID := a.AccountID
		check.Alerts = append(check.Alerts, Alert{
			Type:      a.Type,
			Message:   fmt.Sprintf("account %s has balance %s", a.AccountID, a.Balance),
			AccountID: &accountID,
		})
	}

	if len(check.Alerts) > 0 {
		check.Status = StatusIssuesDetected
	}
	return check
}

// Filter narrows List
type Filter struct {
	Status *Status
	From   *time.Time
	To     *time.Time
}

// Repository stores health snapshots. Rows are never updated.
type Repository interface {
	Create(ctx context.Context, check *Check) error
	List(ctx context.Context, filter Filter, page shared.Pagination) ([]*Check, int, error)
	WithTx(tx pgx.Tx) Repository
}
