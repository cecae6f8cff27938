package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestReconcileRequestProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconcileRequestProducer{logger: testLogger(), writer: mockWriter, topic: "reconcile-requests"}

		request := &shared.ReconcileRequest{RequestID: uuid.New(), Date: "2024-03-10", CorrelationID: "c-1", Timestamp: time.Now().UTC()}
		expected, _ := json.Marshal(request)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && string(msgs[0].Key) == request.RequestID.String() && string(msgs[0].Value) == string(expected)
		})).Return(nil).Once()

		err := producer.Publish(ctx, request.RequestID.String(), request)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconcileRequestProducer{logger: testLogger(), writer: mockWriter, topic: "reconcile-requests"}
		writerError := errors.New("kafka write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.Publish(ctx, "key", map[string]string{"date": "2024-03-10"})
		assert.ErrorIs(t, err, writerError)
	})

	t.Run("MarshalError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconcileRequestProducer{logger: testLogger(), writer: mockWriter, topic: "reconcile-requests"}

		err := producer.Publish(ctx, "key", func() {})
		assert.ErrorContains(t, err, "failed to marshal")
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("Close", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconcileRequestProducer{logger: testLogger(), writer: mockWriter, topic: "reconcile-requests"}
		closeError := errors.New("kafka close error")
		mockWriter.On("Close").Return(closeError).Once()

		assert.ErrorIs(t, producer.Close(), closeError)
	})
}

func TestEventProducer_PublishEvent(t *testing.T) {
	ctx := context.Background()
	event := &outbox.Event{
		OutboxID:    7,
		Type:        outbox.EventBalanceCorrected,
		AggregateID: uuid.NewString(),
		Payload:     json.RawMessage(`{"new_balance":"5500.00"}`),
		OccurredAt:  time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	t.Run("KeyedByAggregateWithTypeHeader", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EventProducer{logger: testLogger(), writer: mockWriter, topic: "financial-events"}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			var decoded outbox.Event
			if err := json.Unmarshal(msg.Value, &decoded); err != nil {
				return false
			}
			return string(msg.Key) == event.AggregateID &&
				len(msg.Headers) == 1 &&
				string(msg.Headers[0].Value) == string(outbox.EventBalanceCorrected) &&
				decoded.OutboxID == 7 &&
				string(decoded.Payload) == `{"new_balance":"5500.00"}`
		})).Return(nil).Once()

		require.NoError(t, producer.PublishEvent(ctx, event))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EventProducer{logger: testLogger(), writer: mockWriter, topic: "financial-events"}
		writerError := errors.New("leader not available")
		mockWriter.On("WriteMessages", ctx, mock.Anything).Return(writerError).Once()

		assert.ErrorIs(t, producer.PublishEvent(ctx, event), writerError)
	})
}

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()

	t.Run("WrapsOriginalMessage", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: testLogger(), writer: mockWriter, dlqTopic: "reconcile-dlq"}
		original := []byte(`{"date":`)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			var payload map[string]string
			if err := json.Unmarshal(msgs[0].Value, &payload); err != nil {
				return false
			}
			return string(msgs[0].Key) == "k-1" &&
				payload["original_value"] == string(original) &&
				payload["dlq_reason"] == "malformed_payload" &&
				payload["timestamp"] != ""
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, "k-1", original, "malformed_payload"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: testLogger(), writer: mockWriter, dlqTopic: "reconcile-dlq"}
		writerError := errors.New("kafka DLQ write error")
		mockWriter.On("WriteMessages", ctx, mock.Anything).Return(writerError).Once()

		assert.ErrorIs(t, producer.PublishToDLQ(ctx, "k", []byte("x"), "r"), writerError)
	})

	t.Run("Disabled", func(t *testing.T) {
		var producer *DLQProducer

		assert.ErrorIs(t, producer.PublishToDLQ(ctx, "k", []byte("x"), "r"), ErrDLQDisabled)
		assert.NoError(t, producer.Close())
	})
}
