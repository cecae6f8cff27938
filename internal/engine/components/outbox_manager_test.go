package components

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

func TestOutboxManager_Enqueue(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	aggregateID := uuid.New()

	t.Run("StoresPendingMessage", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		repo.On("Create", ctx, mock.MatchedBy(func(m *outbox.Message) bool {
			var payload map[string]string
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return false
			}
			return m.EventType == outbox.EventDiscrepancyResolved &&
				m.AggregateID == aggregateID &&
				m.Status == shared.OutboxStatusPending &&
				payload["notes"] == "refunded"
		})).Return(nil).Once()

		err := NewOutboxManager(repo, logger).Enqueue(ctx, nil, outbox.EventDiscrepancyResolved, aggregateID, map[string]string{"notes": "refunded"})

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("UnmarshalablePayload", func(t *testing.T) {
		repo := &MockOutboxRepo{}

		err := NewOutboxManager(repo, logger).Enqueue(ctx, nil, outbox.EventBalanceCorrected, aggregateID, make(chan int))

		assert.ErrorContains(t, err, "failed to create outbox message payload")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("CreateError", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		repo.On("Create", ctx, mock.Anything).Return(errors.New("db error")).Once()

		err := NewOutboxManager(repo, logger).Enqueue(ctx, nil, outbox.EventBalanceCorrected, aggregateID, struct{}{})

		assert.ErrorContains(t, err, "failed to create outbox message for")
	})
}
