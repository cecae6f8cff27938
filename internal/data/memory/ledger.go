package memory

import (
	"context"
	"sort"
	"time"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/account"
	"github.com/financial-reconciliation-engine/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type accountRepository struct {
	s *Store
}

func (r *accountRepository) WithTx(pgx.Tx) account.Repository { return r }

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.AccountBalance, error) {
	unlock, err := r.s.read("accounts.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, ok := r.s.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &a, nil
}

// LockForUpdate is GetByID; ExecuteTx units already run one at a time
func (r *accountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.AccountBalance, error) {
	unlock, err := r.s.read("accounts.LockForUpdate")
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, ok := r.s.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &a, nil
}

func (r *accountRepository) ListAll(ctx context.Context) ([]*account.AccountBalance, error) {
	return r.list("accounts.ListAll", func(*account.AccountBalance) bool { return true })
}

func (r *accountRepository) ListNegative(ctx context.Context) ([]*account.AccountBalance, error) {
	return r.list("accounts.ListNegative", func(a *account.AccountBalance) bool { return a.Balance.IsNegative() })
}

func (r *accountRepository) list(op string, keep func(*account.AccountBalance) bool) ([]*account.AccountBalance, error) {
	unlock, err := r.s.read(op)
	if err != nil {
		return nil, err
	}
	defer unlock()

	accounts := []*account.AccountBalance{}
	for _, a := range r.s.state.accounts {
		if keep(&a) {
			accounts = append(accounts, &a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID.String() < accounts[j].AccountID.String()
	})
	return accounts, nil
}

func (r *accountRepository) SetBalance(ctx context.Context, id uuid.UUID, balance currency.Amount) error {
	unlock, err := r.s.write("accounts.SetBalance")
	if err != nil {
		return err
	}
	defer unlock()

	a, ok := r.s.state.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	a.Balance = balance
	a.UpdatedAt = time.Now()
	r.s.state.accounts[id] = a
	return nil
}

type transactionRepository struct {
	s *Store
}

func (r *transactionRepository) WithTx(pgx.Tx) ledger.Repository { return r }

func (r *transactionRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	unlock, err := r.s.write("transactions.Create")
	if err != nil {
		return err
	}
	defer unlock()

	r.s.state.transactions = append(r.s.state.transactions, *t)
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	unlock, err := r.s.read("transactions.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, t := range r.s.state.transactions {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound{TransactionID: id}
}

func (r *transactionRepository) FindPotentialDuplicates(ctx context.Context, t *ledger.Transaction, window time.Duration) ([]*ledger.Transaction, error) {
	from, to := t.CreatedAt.Add(-window), t.CreatedAt.Add(window)
	return r.list("transactions.FindPotentialDuplicates", func(o *ledger.Transaction) bool {
		return o.AccountID == t.AccountID &&
			o.ID != t.ID &&
			sameAmount(o.Amount, t.Amount) &&
			ledger.SameReference(o.Reference, t.Reference) &&
			!o.CreatedAt.Before(from) && !o.CreatedAt.After(to)
	})
}

func (r *transactionRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*ledger.Transaction, error) {
	return r.list("transactions.ListBetween", func(t *ledger.Transaction) bool {
		return !t.CreatedAt.Before(start) && t.CreatedAt.Before(end)
	})
}

func (r *transactionRepository) SumCompletedBefore(ctx context.Context, before time.Time) (map[uuid.UUID]currency.Amount, error) {
	unlock, err := r.s.read("transactions.SumCompletedBefore")
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.sum(func(t *ledger.Transaction) bool {
		a, ok := r.s.state.accounts[t.AccountID]
		return ok && !t.CreatedAt.Before(a.CreatedAt) && t.CreatedAt.Before(before)
	}), nil
}

func (r *transactionRepository) SumCompletedSince(ctx context.Context, since time.Time) (map[uuid.UUID]currency.Amount, error) {
	unlock, err := r.s.read("transactions.SumCompletedSince")
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.sum(func(t *ledger.Transaction) bool { return !t.CreatedAt.Before(since) }), nil
}

// sum must be called with the store read lock held. Malformed amounts cannot exist in a
// NUMERIC column, so they are left out here as well.
func (r *transactionRepository) sum(keep func(*ledger.Transaction) bool) map[uuid.UUID]currency.Amount {
	sums := make(map[uuid.UUID]currency.Amount)
	for _, t := range r.s.state.transactions {
		if !t.IsCompleted() || !keep(&t) {
			continue
		}
		signed, err := t.SignedAmount()
		if err != nil {
			continue
		}
		sums[t.AccountID] = sums[t.AccountID].Add(signed)
	}
	return sums
}

func (r *transactionRepository) list(op string, keep func(*ledger.Transaction) bool) ([]*ledger.Transaction, error) {
	unlock, err := r.s.read(op)
	if err != nil {
		return nil, err
	}
	defer unlock()

	transactions := []*ledger.Transaction{}
	for _, t := range r.s.state.transactions {
		if keep(&t) {
			transactions = append(transactions, &t)
		}
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.Before(transactions[j].CreatedAt)
	})
	return transactions, nil
}

func sameAmount(a, b string) bool {
	x, errX := currency.Parse(a)
	y, errY := currency.Parse(b)
	if errX != nil || errY != nil {
		return a == b
	}
	return x.Equal(y)
}
