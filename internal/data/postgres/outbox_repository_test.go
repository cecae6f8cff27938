package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/outbox"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_WithTx(t *testing.T) {
	repo := &OutboxRepository{
		querier: nil,
		logger:  newTestLogger(),
	}

	mockTx := pgx.Tx(nil)
	txRepo := repo.WithTx(mockTx)

	assert.NotNil(t, txRepo)
	outboxRepo, ok := txRepo.(*OutboxRepository)
	require.True(t, ok)
	assert.Equal(t, mockTx, outboxRepo.querier)
	assert.Equal(t, repo.logger, outboxRepo.logger)
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	aggregateID := uuid.New()

	t.Run("success", func(t *testing.T) {
		message, err := outbox.NewMessage(outbox.EventBalanceCorrected, aggregateID, map[string]string{"account_id": aggregateID.String()})
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO outbox")).
			WithArgs(outbox.EventBalanceCorrected, aggregateID, string(message.Payload), shared.OutboxStatusPending, 0, message.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Create(ctx, message))
		assert.Equal(t, int64(42), message.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		message, err := outbox.NewMessage(outbox.EventDiscrepancyResolved, aggregateID, map[string]string{})
		require.NoError(t, err)
		dbErr := errors.New("insert failed")

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO outbox")).WillReturnError(dbErr)

		err = repo.Create(ctx, message)
		assert.ErrorIs(t, err, dbErr)
		assert.Zero(t, message.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	aggregateID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox WHERE status = $1 ORDER BY created_at ASC, id ASC LIMIT $2")).
		WithArgs(shared.OutboxStatusPending, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "event_type", "aggregate_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
			AddRow(int64(1), outbox.EventReconciliationCompleted, aggregateID, json.RawMessage(`{"status":"RECONCILED"}`),
				shared.OutboxStatusPending, 2, now, nil))

	messages, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, outbox.EventReconciliationCompleted, messages[0].EventType)
	assert.Equal(t, aggregateID, messages[0].AggregateID)
	assert.Equal(t, 2, messages[0].Attempts)
	assert.JSONEq(t, `{"status":"RECONCILED"}`, string(messages[0].Payload))
	assert.Nil(t, messages[0].LastAttemptAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("UPDATE outbox SET status = $1, last_attempt_at = $2 WHERE id = $3")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 7, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing message", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusFailedToPublish, pgxmock.AnyArg(), int64(8)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 8, shared.OutboxStatusFailedToPublish)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{ID: 8})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs(pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.IncrementAttempts(ctx, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
