package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerificationService_Verify(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	transaction := &ledger.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Amount:    "100.00",
		Type:      shared.TransactionTypeCredit,
		Status:    shared.TransactionStatusCompleted,
	}

	tests := []struct {
		name           string
		setupMocks     func(repo *MockLedgerRepo, first, second *MockIntegrityCheck)
		expectedValid  bool
		expectedIssues []string
		expectedError  error
	}{
		{
			name: "all checks pass",
			setupMocks: func(repo *MockLedgerRepo, first, second *MockIntegrityCheck) {
				repo.On("GetByID", ctx, transaction.ID).Return(transaction, nil).Once()
				first.On("Check", ctx, transaction).Return(nil, nil).Once()
				second.On("Check", ctx, transaction).Return(nil, nil).Once()
			},
			expectedValid:  true,
			expectedIssues: []string{},
		},
		{
			name: "issues accumulate without short circuit",
			setupMocks: func(repo *MockLedgerRepo, first, second *MockIntegrityCheck) {
				repo.On("GetByID", ctx, transaction.ID).Return(transaction, nil).Once()
				first.On("Check", ctx, transaction).Return(&ledger.Issue{Check: "first", Description: "a"}, nil).Once()
				second.On("Check", ctx, transaction).Return(&ledger.Issue{Check: "second", Description: "b"}, nil).Once()
			},
			expectedValid:  false,
			expectedIssues: []string{"first", "second"},
		},
		{
			name: "transaction not found",
			setupMocks: func(repo *MockLedgerRepo, first, second *MockIntegrityCheck) {
				repo.On("GetByID", ctx, transaction.ID).Return(nil, ledger.ErrTransactionNotFound{TransactionID: transaction.ID}).Once()
			},
			expectedError: ledger.ErrTransactionNotFound{TransactionID: transaction.ID},
		},
		{
			name: "check cannot run",
			setupMocks: func(repo *MockLedgerRepo, first, second *MockIntegrityCheck) {
				repo.On("GetByID", ctx, transaction.ID).Return(transaction, nil).Once()
				first.On("Check", ctx, transaction).Return(nil, shared.ErrUnavailable).Once()
			},
			expectedError: shared.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockLedgerRepo{}
			first := &MockIntegrityCheck{name: "first"}
			second := &MockIntegrityCheck{name: "second"}
			tt.setupMocks(repo, first, second)

			svc := NewVerificationService(repo, []IntegrityCheck{first, second}, nil, logger)
			result, err := svc.Verify(ctx, transaction.ID)

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
				assert.Nil(t, result)
				second.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedValid, result.IsValid)
				names := []string{}
				for _, issue := range result.Issues {
					names = append(names, issue.Check)
				}
				assert.Equal(t, tt.expectedIssues, names)
			}
			repo.AssertExpectations(t)
			first.AssertExpectations(t)
		})
	}
}
