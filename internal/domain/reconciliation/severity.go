package reconciliation

import (
	"errors"
	"fmt"

	"github.com/financial-reconciliation-engine/internal/currency"
)

// SeverityPolicy assigns severity by the magnitude of a difference.
// |difference| < Low is LOW, < Medium is MEDIUM, anything else HIGH.
type SeverityPolicy struct {
	Low    currency.Amount
	Medium currency.Amount
}

// DefaultSeverityPolicy returns the 100 / 10,000 bands
func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{
		Low:    currency.MustParse("100.00"),
		Medium: currency.MustParse("10000.00"),
	}
}

// NewSeverityPolicy parses configured thresholds
func NewSeverityPolicy(low, medium string) (SeverityPolicy, error) {
	lowAmount, err := currency.Parse(low)
	if err != nil {
		return SeverityPolicy{}, fmt.Errorf("invalid low severity threshold: %w", err)
	}
	mediumAmount, err := currency.Parse(medium)
	if err != nil {
		return SeverityPolicy{}, fmt.Errorf("invalid medium severity threshold: %w", err)
	}
	if !lowAmount.IsPositive() || !lowAmount.LessThan(mediumAmount) {
		return SeverityPolicy{}, errors.New("severity thresholds must satisfy 0 < low < medium")
	}
	return SeverityPolicy{Low: lowAmount, Medium: mediumAmount}, nil
}

// Classify returns the severity of difference
func (p SeverityPolicy) Classify(difference currency.Amount) Severity {
	magnitude := difference.Abs()
	switch {
	case magnitude.LessThan(p.Low):
		return SeverityLow
	case magnitude.LessThan(p.Medium):
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
