package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func accountRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"account_id", "balance", "opening_balance", "currency", "created_at", "updated_at"})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accID := uuid.New()
	now := time.Now()
	query := regexp.QuoteMeta("FROM account_balances WHERE account_id = $1")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).
			WillReturnRows(accountRows().AddRow(accID, "5500.00", "5000.00", "BDT", now, now))

		acc, err := repo.GetByID(ctx, accID)
		require.NoError(t, err)
		assert.Equal(t, accID, acc.AccountID)
		assert.Equal(t, "5500.00", acc.Balance.String())
		assert.Equal(t, "5000.00", acc.OpeningBalance.String())
		assert.Equal(t, "BDT", acc.Currency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, accID, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to get account balance")
		assert.False(t, errors.Is(err, shared.ErrUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("timeout is unavailable", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(context.DeadlineExceeded)

		_, err := repo.GetByID(ctx, accID)
		assert.ErrorIs(t, err, shared.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListNegative(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()
	accID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM account_balances WHERE balance < 0")).
		WillReturnRows(accountRows().AddRow(accID, "-12.50", "0.00", "BDT", now, now))

	accounts, err := repo.ListNegative(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "-12.50", accounts[0].Balance.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_ListAll(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM account_balances ORDER BY account_id")).
			WillReturnRows(accountRows().
				AddRow(uuid.New(), "10.00", "10.00", "BDT", now, now).
				AddRow(uuid.New(), "20.00", "0.00", "BDT", now, now))

		accounts, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt amount", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM account_balances ORDER BY account_id")).
			WillReturnRows(accountRows().AddRow(uuid.New(), "NaN", "0.00", "BDT", now, now))

		_, err := repo.ListAll(ctx)
		assert.ErrorIs(t, err, currency.ErrInvalidFormat)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_SetBalance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accID := uuid.New()
	query := regexp.QuoteMeta("UPDATE account_balances SET balance = $1::numeric")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("5500.00", pgxmock.AnyArg(), accID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.SetBalance(ctx, accID, currency.MustParse("৳5,500"))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("1.00", pgxmock.AnyArg(), accID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetBalance(ctx, accID, currency.MustParse("1"))
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: accID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accID := uuid.New()
	now := time.Now()
	query := regexp.QuoteMeta("WHERE account_id = $1 FOR UPDATE")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).
			WillReturnRows(accountRows().AddRow(accID, "5000.00", "5000.00", "BDT", now, now))

		acc, err := repo.LockForUpdate(ctx, accID)
		require.NoError(t, err)
		assert.Equal(t, "5000.00", acc.Balance.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, accID)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
