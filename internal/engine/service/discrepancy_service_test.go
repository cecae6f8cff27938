package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func openAlert() *reconciliation.DiscrepancyAlert {
	return &reconciliation.DiscrepancyAlert{
		ID:             uuid.New(),
		RecordID:       uuid.New(),
		AccountID:      uuid.New(),
		ExpectedAmount: currency.MustParse("100.00"),
		ActualAmount:   currency.MustParse("90.00"),
		Difference:     currency.MustParse("-10.00"),
		Severity:       reconciliation.SeverityLow,
		Status:         reconciliation.AlertStatusOpen,
		CreatedAt:      time.Now(),
	}
}

func TestDiscrepancyService_Resolve(t *testing.T) {
	ctx := context.Background()
	actor := "auditor-1"

	t.Run("ResolvesAndAudits", func(t *testing.T) {
		db := &inlineTransactor{}
		repo := &MockReconciliationRepo{}
		auditor := &MockAuditRecorder{}
		outboxManager := &MockOutboxManager{}
		alert := openAlert()

		repo.On("LockAlert", ctx, alert.ID).Return(alert, nil).Once()
		repo.On("SaveResolution", ctx, alert).Return(nil).Once()
		auditor.On("Record", ctx, mock.Anything, audit.EntityDiscrepancyAlert, alert.ID.String(),
			audit.DiscrepancyResolvedChanges{AlertID: alert.ID, From: "OPEN", To: "RESOLVED", Notes: "refunded"}, &actor).Return(nil).Once()
		outboxManager.On("Enqueue", ctx, mock.Anything, outbox.EventDiscrepancyResolved, alert.ID, alert).Return(nil).Once()

		svc := NewDiscrepancyService(db, repo, auditor, outboxManager, nil, slog.Default())
		resolved, err := svc.Resolve(ctx, alert.ID, "  refunded ", &actor)

		require.NoError(t, err)
		assert.Equal(t, reconciliation.AlertStatusResolved, resolved.Status)
		require.NotNil(t, resolved.ResolutionNotes)
		assert.Equal(t, "refunded", *resolved.ResolutionNotes)
		repo.AssertExpectations(t)
		auditor.AssertExpectations(t)
		outboxManager.AssertExpectations(t)
	})

	t.Run("NotesRequiredBeforeStoreAccess", func(t *testing.T) {
		db := &inlineTransactor{}
		svc := NewDiscrepancyService(db, &MockReconciliationRepo{}, &MockAuditRecorder{}, &MockOutboxManager{}, nil, slog.Default())

		_, err := svc.Resolve(ctx, uuid.New(), "\t", &actor)

		assert.ErrorIs(t, err, reconciliation.ErrResolutionNotesRequired)
		assert.Zero(t, db.calls)
	})

	t.Run("AlreadyResolved", func(t *testing.T) {
		repo := &MockReconciliationRepo{}
		alert := openAlert()
		alert.Status = reconciliation.AlertStatusResolved
		repo.On("LockAlert", ctx, alert.ID).Return(alert, nil).Once()

		svc := NewDiscrepancyService(&inlineTransactor{}, repo, &MockAuditRecorder{}, &MockOutboxManager{}, nil, slog.Default())
		_, err := svc.Resolve(ctx, alert.ID, "again", &actor)

		assert.ErrorIs(t, err, reconciliation.ErrAlertAlreadyResolved{AlertID: alert.ID})
		repo.AssertNotCalled(t, "SaveResolution", mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := &MockReconciliationRepo{}
		id := uuid.New()
		repo.On("LockAlert", ctx, id).Return(nil, reconciliation.ErrAlertNotFound{AlertID: id}).Once()

		svc := NewDiscrepancyService(&inlineTransactor{}, repo, &MockAuditRecorder{}, &MockOutboxManager{}, nil, slog.Default())
		_, err := svc.Resolve(ctx, id, "notes", &actor)

		assert.ErrorIs(t, err, reconciliation.ErrAlertNotFound{AlertID: id})
	})
}
