package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AccountManagerImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

func NewAccountManager(accountRepo account.Repository, logger *slog.Logger) service.AccountManager {
	return &AccountManagerImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// LockAndSetBalance locks the account row and overwrites its balance. The balance read under
// the lock is returned so the caller can compare it with what it expected.
func (m *AccountManagerImpl) LockAndSetBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance currency.Amount) (currency.Amount, error) {
	accountRepoTx := m.accountRepo.WithTx(tx)

	locked, err := accountRepoTx.LockForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{AccountID: accountID}) {
			m.logger.Warn("Account not found for lock", "account_id", accountID.String())
			return currency.Zero, err
		}
		m.logger.Error("Failed to lock account", "account_id", accountID.String(), "error", err)
		return currency.Zero, fmt.Errorf("failed to lock account %s: %w", accountID.String(), err)
	}
	m.logger.Debug("Account locked", "account_id", accountID.String(), "balance", locked.Balance.String())

	if err := accountRepoTx.SetBalance(ctx, accountID, balance); err != nil {
		m.logger.Error("Failed to update account balance", "account_id", accountID.String(), "error", err)
		return currency.Zero, fmt.Errorf("failed to update balance of account %s: %w", accountID.String(), err)
	}

	return locked.Balance, nil
}
