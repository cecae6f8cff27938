package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/data/memory"
	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishEvent(ctx context.Context, event *outbox.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockProducer) Close() error {
	return m.Called().Error(0)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Store(ctx context.Context, event *outbox.Event) error {
	return m.Called(ctx, event).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func testOutboxConfig() *config.OutboxConfig {
	return &config.OutboxConfig{PollingInterval: 10 * time.Millisecond, BatchSize: 10, MaxRetryAttempts: 3}
}

func enqueue(t *testing.T, store *memory.Store, eventType outbox.EventType) *outbox.Message {
	msg, err := outbox.NewMessage(eventType, uuid.New(), map[string]string{"status": "RECONCILED"})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), msg))
	return msg
}

func statusOf(t *testing.T, store *memory.Store, id int64) (shared.OutboxStatus, int) {
	t.Helper()
	for _, m := range store.OutboxMessages() {
		if m.ID == id {
			return m.Status, m.Attempts
		}
	}
	t.Fatalf("outbox message %d not found", id)
	return "", 0
}

func TestPoller_ProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesAndMarksProcessed", func(t *testing.T) {
		store := memory.NewStore()
		first := enqueue(t, store, outbox.EventReconciliationCompleted)
		second := enqueue(t, store, outbox.EventBalanceCorrected)

		publisher := new(MockEventPublisher)
		publisher.On("Publish", ctx, mock.Anything).Return(nil).Twice()
		poller := NewPoller(testOutboxConfig(), store.Outbox(), publisher, nil, testLogger())

		published, err := poller.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, published)

		status, _ := statusOf(t, store, first.ID)
		assert.Equal(t, shared.OutboxStatusProcessed, status)
		status, _ = statusOf(t, store, second.ID)
		assert.Equal(t, shared.OutboxStatusProcessed, status)

		published, err = poller.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, published)
		publisher.AssertExpectations(t)
	})

	t.Run("FailureIncrementsAttemptsThenGivesUp", func(t *testing.T) {
		store := memory.NewStore()
		msg := enqueue(t, store, outbox.EventDiscrepancyResolved)

		publisher := new(MockEventPublisher)
		publisher.On("Publish", ctx, mock.Anything).Return(errors.New("broker unavailable"))
		poller := NewPoller(testOutboxConfig(), store.Outbox(), publisher, nil, testLogger())

		for attempt := 1; attempt <= 2; attempt++ {
			published, err := poller.ProcessPending(ctx)
			require.NoError(t, err)
			assert.Zero(t, published)
			status, attempts := statusOf(t, store, msg.ID)
			assert.Equal(t, shared.OutboxStatusPending, status)
			assert.Equal(t, attempt, attempts)
		}

		_, err := poller.ProcessPending(ctx)
		require.NoError(t, err)
		status, attempts := statusOf(t, store, msg.ID)
		assert.Equal(t, shared.OutboxStatusFailedToPublish, status)
		assert.Equal(t, 3, attempts)

		published, err := poller.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, published)
		publisher.AssertNumberOfCalls(t, "Publish", 3)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		store := memory.NewStore()
		storeErr := errors.New("connection reset")
		store.FailOn("outbox.GetPending", storeErr)
		poller := NewPoller(testOutboxConfig(), store.Outbox(), new(MockEventPublisher), nil, testLogger())

		_, err := poller.ProcessPending(ctx)
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("StatusUpdateFailureLeavesMessagePending", func(t *testing.T) {
		store := memory.NewStore()
		msg := enqueue(t, store, outbox.EventBalanceCorrected)
		store.FailOn("outbox.UpdateStatus", errors.New("write failed"))

		publisher := new(MockEventPublisher)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)
		poller := NewPoller(testOutboxConfig(), store.Outbox(), publisher, nil, testLogger())

		published, err := poller.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, published)
		status, _ := statusOf(t, store, msg.ID)
		assert.Equal(t, shared.OutboxStatusPending, status)
	})
}

func TestPoller_Start(t *testing.T) {
	store := memory.NewStore()
	msg := enqueue(t, store, outbox.EventReconciliationCompleted)

	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	poller := NewPoller(testOutboxConfig(), store.Outbox(), publisher, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		status, _ := statusOf(t, store, msg.ID)
		return status == shared.OutboxStatusProcessed
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestEventPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	msg, err := outbox.NewMessage(outbox.EventBalanceCorrected, uuid.New(), map[string]string{"new_balance": "5500.00"})
	require.NoError(t, err)
	msg.ID = 42

	matchesEvent := mock.MatchedBy(func(e *outbox.Event) bool {
		return e.OutboxID == 42 && e.AggregateID == msg.AggregateID.String() && e.Type == outbox.EventBalanceCorrected
	})

	t.Run("PublishesThenArchives", func(t *testing.T) {
		producer := new(MockProducer)
		archive := new(MockArchive)
		producer.On("PublishEvent", ctx, matchesEvent).Return(nil).Once()
		archive.On("Store", ctx, matchesEvent).Return(nil).Once()

		require.NoError(t, NewEventPublisher(producer, archive, testLogger()).Publish(ctx, msg))
		producer.AssertExpectations(t)
		archive.AssertExpectations(t)
	})

	t.Run("KafkaFailureSkipsArchive", func(t *testing.T) {
		producer := new(MockProducer)
		archive := new(MockArchive)
		kafkaErr := errors.New("not enough replicas")
		producer.On("PublishEvent", ctx, mock.Anything).Return(kafkaErr).Once()

		err := NewEventPublisher(producer, archive, testLogger()).Publish(ctx, msg)
		assert.ErrorIs(t, err, kafkaErr)
		archive.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("ArchiveFailure", func(t *testing.T) {
		producer := new(MockProducer)
		archive := new(MockArchive)
		archiveErr := errors.New("mongo timeout")
		producer.On("PublishEvent", ctx, mock.Anything).Return(nil).Once()
		archive.On("Store", ctx, mock.Anything).Return(archiveErr).Once()

		err := NewEventPublisher(producer, archive, testLogger()).Publish(ctx, msg)
		assert.ErrorIs(t, err, archiveErr)
	})

	t.Run("WithoutArchive", func(t *testing.T) {
		producer := new(MockProducer)
		producer.On("PublishEvent", ctx, mock.Anything).Return(nil).Once()

		require.NoError(t, NewEventPublisher(producer, nil, testLogger()).Publish(ctx, msg))
	})
}
