package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, request *shared.ReconcileRequest) (*reconciliation.Record, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Record), args.Error(1)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	return m.Called().Error(0)
}

var _ producers.DeadLetterPublisher = (*MockDeadLetterPublisher)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func requestBytes(t *testing.T, request shared.ReconcileRequest) []byte {
	data, err := json.Marshal(request)
	require.NoError(t, err)
	return data
}

func TestReconcileRequestHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()
	request := shared.ReconcileRequest{RequestID: uuid.New(), Date: "2024-03-10", RequestedBy: "ops", CorrelationID: "corr-1"}
	key := []byte(request.RequestID.String())

	t.Run("Reconciles", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		handler := NewReconcileRequestHandler(testLogger(), svc, dlq)

		record := &reconciliation.Record{ID: uuid.New(), Date: "2024-03-10", Status: reconciliation.StatusReconciled}
		svc.On("Reconcile", ctx, mock.MatchedBy(func(r *shared.ReconcileRequest) bool {
			return r.RequestID == request.RequestID && r.Date == "2024-03-10" && r.RequestedBy == "ops"
		})).Return(record, nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, key, requestBytes(t, request)))
		svc.AssertExpectations(t)
		dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ServiceFailureIsRetried", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		handler := NewReconcileRequestHandler(testLogger(), svc, dlq)
		storeErr := errors.New("database unavailable")
		svc.On("Reconcile", ctx, mock.Anything).Return(nil, storeErr).Once()

		err := handler.HandleMessage(ctx, key, requestBytes(t, request))
		assert.ErrorIs(t, err, storeErr)
		dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidDateGoesToDLQ", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		handler := NewReconcileRequestHandler(testLogger(), svc, dlq)
		bad := request
		bad.Date = "10/03/2024"
		value := requestBytes(t, bad)

		svc.On("Reconcile", ctx, mock.Anything).Return(nil, reconciliation.ErrInvalidDate{Value: bad.Date}).Once()
		dlq.On("PublishToDLQ", ctx, string(key), value, mock.MatchedBy(func(reason string) bool {
			return len(reason) > 0
		})).Return(nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, key, value))
		dlq.AssertExpectations(t)
	})

	t.Run("MalformedMessageGoesToDLQ", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		handler := NewReconcileRequestHandler(testLogger(), svc, dlq)
		value := []byte(`{"date":`)

		dlq.On("PublishToDLQ", ctx, "k", value, mock.AnythingOfType("string")).Return(nil).Once()

		require.NoError(t, handler.HandleMessage(ctx, []byte("k"), value))
		svc.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
		dlq.AssertExpectations(t)
	})

	t.Run("MalformedMessageWithDLQFailure", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		handler := NewReconcileRequestHandler(testLogger(), svc, dlq)

		dlq.On("PublishToDLQ", ctx, "k", mock.Anything, mock.Anything).Return(errors.New("dlq down")).Once()

		err := handler.HandleMessage(ctx, []byte("k"), []byte("not json"))
		assert.ErrorContains(t, err, "malformed reconcile request")
	})

	t.Run("MalformedMessageWithoutDLQ", func(t *testing.T) {
		svc := new(MockReconciliationService)
		handler := NewReconcileRequestHandler(testLogger(), svc, nil)

		err := handler.HandleMessage(ctx, []byte("k"), []byte("not json"))
		assert.Error(t, err)
	})
}
