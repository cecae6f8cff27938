package components

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BalanceCalculatorImpl struct {
	db          persistence.Transactor
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	logger      *slog.Logger
}

func NewBalanceCalculator(db persistence.Transactor, accountRepo account.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) service.BalanceCalculator {
	return &BalanceCalculatorImpl{
		db:          db,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger,
	}
}

// Compare returns one comparison per account in scope of [start, end), ordered by account id.
//
// expected = opening balance + completed movements before start + completed movements in the window
// actual   = stored balance - completed movements at or after end
//
// For the current day nothing is recorded after end, so actual is the stored balance.
// All four reads share one snapshot: a correction committing mid-pass moves the stored
// balance and its adjustment transaction together or not at all.
func (c *BalanceCalculatorImpl) Compare(ctx context.Context, start, end time.Time) ([]service.AccountComparison, error) {
	var (
		accounts []*account.AccountBalance
		before   map[uuid.UUID]currency.Amount
		window   []*ledger.Transaction
		after    map[uuid.UUID]currency.Amount
	)
	err := c.db.ExecuteReadTx(ctx, func(tx pgx.Tx) error {
		accountRepo := c.accountRepo.WithTx(tx)
		ledgerRepo := c.ledgerRepo.WithTx(tx)

		var err error
		if accounts, err = accountRepo.ListAll(ctx); err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		if before, err = ledgerRepo.SumCompletedBefore(ctx, start); err != nil {
			return fmt.Errorf("failed to sum transactions before %s: %w", start.Format(time.RFC3339), err)
		}
		if window, err = ledgerRepo.ListBetween(ctx, start, end); err != nil {
			return fmt.Errorf("failed to list transactions of the day: %w", err)
		}
		if after, err = ledgerRepo.SumCompletedSince(ctx, end); err != nil {
			return fmt.Errorf("failed to sum transactions since %s: %w", end.Format(time.RFC3339), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dayNet, active := c.netByAccount(window)

	comparisons := make([]service.AccountComparison, 0, len(accounts))
	for _, acc := range accounts {
		if !acc.ExistedBy(end) {
			continue
		}
		if !active[acc.AccountID] && acc.Balance.IsZero() {
			continue
		}

		expected := acc.OpeningBalance.Add(sumOrZero(before, acc.AccountID)).Add(sumOrZero(dayNet, acc.AccountID))
		actual := acc.Balance.Sub(sumOrZero(after, acc.AccountID))
		comparisons = append(comparisons, service.AccountComparison{
			AccountID: acc.AccountID,
			Expected:  expected,
			Actual:    actual,
		})
	}

	sort.Slice(comparisons, func(i, j int) bool {
		return comparisons[i].AccountID.String() < comparisons[j].AccountID.String()
	})
	return comparisons, nil
}

// netByAccount sums completed movements per account. Every account with a transaction in the
// window is active, whatever its status.
func (c *BalanceCalculatorImpl) netByAccount(transactions []*ledger.Transaction) (map[uuid.UUID]currency.Amount, map[uuid.UUID]bool) {
	net := make(map[uuid.UUID]currency.Amount)
	active := make(map[uuid.UUID]bool)
	for _, t := range transactions {
		active[t.AccountID] = true
		if !t.IsCompleted() {
			continue
		}
		signed, err := t.SignedAmount()
		if err != nil {
			c.logger.Warn("Skipping transaction with unusable amount",
				"transaction_id", t.ID.String(),
				"amount", t.Amount,
				"error", err,
			)
			continue
		}
		net[t.AccountID] = sumOrZero(net, t.AccountID).Add(signed)
	}
	return net, active
}

func sumOrZero(sums map[uuid.UUID]currency.Amount, id uuid.UUID) currency.Amount {
	if v, ok := sums[id]; ok {
		return v
	}
	return currency.Zero
}
