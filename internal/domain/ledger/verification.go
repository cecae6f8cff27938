package ledger

import "github.com/google/uuid"

// Names of the integrity checks run against a single transaction
const (
	CheckAmountValidation = "amountValidation"
	CheckDuplicate        = "duplicateCheck"
	CheckAuditCorrelation = "auditCorrelation"
)

// Issue is one failed integrity check
type Issue struct {
	Check       string `json:"check"`
	Description string `json:"description"`
}

// VerificationResult accumulates the outcome of every check.
// A transaction is valid only when no check reported an issue.
type VerificationResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	IsValid       bool      `json:"is_valid"`
	Issues        []Issue   `json:"issues"`
}

func NewVerificationResult(transactionID uuid.UUID) *VerificationResult {
	return &VerificationResult{TransactionID: transactionID, IsValid: true, Issues: []Issue{}}
}

// Add records an issue and marks the result invalid
func (r *VerificationResult) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	r.IsValid = false
}
