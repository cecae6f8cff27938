package account

import (
	"errors"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountBalance(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		createdAt := time.Now().UTC()
		acc, err := NewAccountBalance(currency.MustParse("5000"), "BDT", createdAt)

		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.NotEqual(t, uuid.Nil, acc.AccountID, "Account ID should not be nil")
		assert.Equal(t, "5000.00", acc.Balance.String())
		assert.True(t, acc.Balance.Equal(acc.OpeningBalance), "Opening and current balance start equal")
		assert.Equal(t, "BDT", acc.Currency)
		assert.Equal(t, createdAt, acc.CreatedAt)
		assert.Equal(t, createdAt, acc.UpdatedAt)
	})

	t.Run("InvalidCurrency", func(t *testing.T) {
		acc, err := NewAccountBalance(currency.Zero, "TAKA", time.Now())
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, ErrInvalidCurrencyFormat)
	})
}

func TestAccountBalance_ExistedBy(t *testing.T) {
	createdAt := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	acc := &AccountBalance{CreatedAt: createdAt}

	assert.True(t, acc.ExistedBy(createdAt.Add(time.Second)))
	assert.False(t, acc.ExistedBy(createdAt))
	assert.False(t, acc.ExistedBy(createdAt.Add(-time.Hour)))
}

func TestErrAccountNotFound_Is(t *testing.T) {
	id := uuid.New()
	err := ErrAccountNotFound{AccountID: id}

	assert.True(t, errors.Is(err, ErrAccountNotFound{}))
	assert.True(t, errors.Is(err, ErrAccountNotFound{AccountID: id}))
	assert.False(t, errors.Is(err, ErrAccountNotFound{AccountID: uuid.New()}))
	assert.Equal(t, "account not found: "+id.String(), err.Error())
}
