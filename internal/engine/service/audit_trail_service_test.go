package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditTrailService_GenerateAuditTrail(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	t.Run("SkipsUnparseableAmountsInTotal", func(t *testing.T) {
		ledgerRepo := &MockLedgerRepo{}
		recordRepo := &MockReconciliationRepo{}
		ledgerRepo.On("ListBetween", ctx, start, end).Return([]*ledger.Transaction{
			{ID: uuid.New(), Amount: "10.00", Type: shared.TransactionTypeCredit, Status: shared.TransactionStatusCompleted, CreatedAt: start.Add(time.Hour)},
			{ID: uuid.New(), Amount: "bogus", Type: shared.TransactionTypeDebit, Status: shared.TransactionStatusCompleted, CreatedAt: start.Add(2 * time.Hour)},
			{ID: uuid.New(), Amount: "5.00", Type: shared.TransactionTypeDebit, Status: shared.TransactionStatusPending, CreatedAt: start.Add(3 * time.Hour)},
		}, nil).Once()
		recordRepo.On("ListAlertsBetween", ctx, start, end).Return([]*reconciliation.DiscrepancyAlert{
			{ID: uuid.New(), CreatedAt: start.Add(time.Hour)},
		}, nil).Once()

		svc := NewAuditTrailService(ledgerRepo, recordRepo, &MockAuditRepo{}, time.UTC, nil, slog.Default())
		report, err := svc.GenerateAuditTrail(ctx, "2024-03-01", "2024-03-08")

		require.NoError(t, err)
		assert.Equal(t, 3, report.Summary.TransactionCount)
		assert.Equal(t, "10.00", report.Summary.TotalAmount.String())
		assert.Equal(t, 1, report.Summary.DiscrepancyCount)
	})

	t.Run("InvalidRangeReadsNothing", func(t *testing.T) {
		ledgerRepo := &MockLedgerRepo{}
		svc := NewAuditTrailService(ledgerRepo, &MockReconciliationRepo{}, &MockAuditRepo{}, time.UTC, nil, slog.Default())

		_, err := svc.GenerateAuditTrail(ctx, "2024-03-08", "2024-03-01")

		assert.ErrorIs(t, err, audit.ErrInvalidDateRange{})
		ledgerRepo.AssertNotCalled(t, "ListBetween", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuditTrailService_VerifyChain(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first := audit.NewEntry(audit.EntityHealthCheck, "h-1", audit.HealthCheckChanges{CheckID: uuid.New(), Status: "HEALTHY"}, nil, at)
	require.NoError(t, first.Seal(""))
	first.ID = 1
	second := audit.NewEntry(audit.EntityHealthCheck, "h-2", audit.HealthCheckChanges{CheckID: uuid.New(), Status: "HEALTHY"}, nil, at.Add(time.Minute))
	require.NoError(t, second.Seal(first.Hash))
	second.ID = 2

	repo := &MockAuditRepo{}
	repo.On("ListChain", ctx).Return([]*audit.Entry{first, second}, nil).Once()
	svc := NewAuditTrailService(&MockLedgerRepo{}, &MockReconciliationRepo{}, repo, nil, nil, slog.Default())

	result, err := svc.VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Checked)

	second.PreviousHash = "forged"
	repo.On("ListChain", ctx).Return([]*audit.Entry{first, second}, nil).Once()

	result, err = svc.VerifyChain(ctx)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BrokenAt)
	assert.Equal(t, int64(2), *result.BrokenAt)
}
