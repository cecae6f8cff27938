package reconciliation

import (
	"errors"
	"testing"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Compare(t *testing.T) {
	policy := DefaultSeverityPolicy()

	t.Run("MatchingBalances", func(t *testing.T) {
		record := NewRecord("2024-03-15", time.Now())
		accountID := uuid.New()

		alert := record.Compare(accountID, currency.MustParse("5500.00"), currency.MustParse("5500"), policy)

		assert.Nil(t, alert)
		assert.Equal(t, StatusReconciled, record.Status)
		assert.Empty(t, record.Discrepancies)
		assert.Equal(t, "5500.00", record.ExpectedBalances[accountID].String())
		assert.Equal(t, "5500.00", record.ActualBalances[accountID].String())
	})

	t.Run("MismatchRaisesAlert", func(t *testing.T) {
		record := NewRecord("2024-03-15", time.Now())
		accountID := uuid.New()

		alert := record.Compare(accountID, currency.MustParse("7000.00"), currency.MustParse("5000.00"), policy)

		require.NotNil(t, alert)
		assert.Equal(t, StatusDiscrepancyFound, record.Status)
		require.Len(t, record.Discrepancies, 1)
		assert.Equal(t, "-2000.00", alert.Difference.String())
		assert.Equal(t, SeverityMedium, alert.Severity)
		assert.Equal(t, AlertStatusOpen, alert.Status)
		assert.Equal(t, record.ID, alert.RecordID)
		assert.Equal(t, accountID, alert.AccountID)
	})

	t.Run("OneMismatchFlipsStatus", func(t *testing.T) {
		record := NewRecord("2024-03-15", time.Now())
		record.Compare(uuid.New(), currency.MustParse("1.00"), currency.MustParse("1.00"), policy)
		record.Compare(uuid.New(), currency.MustParse("1.00"), currency.MustParse("1.01"), policy)
		record.Compare(uuid.New(), currency.MustParse("2.00"), currency.MustParse("2.00"), policy)

		assert.Equal(t, StatusDiscrepancyFound, record.Status)
		assert.Len(t, record.Discrepancies, 1)
		assert.Len(t, record.ExpectedBalances, 3)
	})
}

func TestRecord_SortDiscrepancies(t *testing.T) {
	record := NewRecord("2024-03-15", time.Now())
	for i := 0; i < 5; i++ {
		record.Compare(uuid.New(), currency.Zero, currency.MustParse("1.00"), DefaultSeverityPolicy())
	}

	record.SortDiscrepancies()

	for i := 1; i < len(record.Discrepancies); i++ {
		assert.Less(t, record.Discrepancies[i-1].AccountID.String(), record.Discrepancies[i].AccountID.String())
	}
}

func TestSeverityPolicy_Classify(t *testing.T) {
	policy := DefaultSeverityPolicy()

	tests := []struct {
		difference string
		want       Severity
	}{
		{"0.01", SeverityLow},
		{"-99.99", SeverityLow},
		{"100.00", SeverityMedium},
		{"-2000.00", SeverityMedium},
		{"9999.99", SeverityMedium},
		{"10000.00", SeverityHigh},
		{"-250000.00", SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.difference, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Classify(currency.MustParse(tt.difference)))
		})
	}
}

func TestNewSeverityPolicy(t *testing.T) {
	t.Run("Configured", func(t *testing.T) {
		policy, err := NewSeverityPolicy("50", "500")
		require.NoError(t, err)
		assert.Equal(t, SeverityMedium, policy.Classify(currency.MustParse("60")))
		assert.Equal(t, SeverityHigh, policy.Classify(currency.MustParse("500")))
	})

	t.Run("MalformedThreshold", func(t *testing.T) {
		_, err := NewSeverityPolicy("abc", "500")
		assert.ErrorIs(t, err, currency.ErrInvalidFormat)
	})

	t.Run("InvertedThresholds", func(t *testing.T) {
		_, err := NewSeverityPolicy("500", "50")
		assert.Error(t, err)
	})
}

func TestDiscrepancyAlert_Resolve(t *testing.T) {
	actor := "ops-1"
	at := time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC)

	t.Run("Resolves", func(t *testing.T) {
		alert := &DiscrepancyAlert{ID: uuid.New(), Status: AlertStatusOpen}

		require.NoError(t, alert.Resolve("  bank statement confirmed  ", &actor, at))
		assert.Equal(t, AlertStatusResolved, alert.Status)
		require.NotNil(t, alert.ResolutionNotes)
		assert.Equal(t, "bank statement confirmed", *alert.ResolutionNotes)
		assert.Equal(t, &actor, alert.ResolvedBy)
		assert.Equal(t, at, *alert.ResolvedAt)
	})

	t.Run("NotesRequired", func(t *testing.T) {
		alert := &DiscrepancyAlert{ID: uuid.New(), Status: AlertStatusOpen}

		err := alert.Resolve("   ", &actor, at)
		assert.ErrorIs(t, err, ErrResolutionNotesRequired)
		assert.Equal(t, AlertStatusOpen, alert.Status)
		assert.Nil(t, alert.ResolutionNotes)
	})

	t.Run("AlreadyResolved", func(t *testing.T) {
		alert := &DiscrepancyAlert{ID: uuid.New(), Status: AlertStatusResolved}

		err := alert.Resolve("again", nil, at)
		assert.True(t, errors.Is(err, ErrAlertAlreadyResolved{}))
	})
}

func TestParseDate(t *testing.T) {
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)

	t.Run("ExplicitDate", func(t *testing.T) {
		day, err := ParseDate("2024-03-15", time.Now(), dhaka)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, dhaka), day)

		start, end := DayWindow(day)
		assert.Equal(t, day, start)
		assert.Equal(t, 24*time.Hour, end.Sub(start))
	})

	t.Run("EmptyMeansToday", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
		day, err := ParseDate("", now, dhaka)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, dhaka), day)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := ParseDate("15/03/2024", time.Now(), time.UTC)
		var dateErr ErrInvalidDate
		require.ErrorAs(t, err, &dateErr)
		assert.Equal(t, "15/03/2024", dateErr.Value)
	})
}

func TestErrAlertNotFound_Is(t *testing.T) {
	id := uuid.New()
	err := ErrAlertNotFound{AlertID: id}

	assert.True(t, errors.Is(err, ErrAlertNotFound{}))
	assert.True(t, errors.Is(err, ErrAlertNotFound{AlertID: id}))
	assert.False(t, errors.Is(err, ErrAlertNotFound{AlertID: uuid.New()}))
	assert.False(t, errors.Is(err, ErrRecordNotFound{}))
}
