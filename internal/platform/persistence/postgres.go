package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier supports database operations for both pool and transactions
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Ensure interfaces are satisfied (compile-time check)
var _ Querier = (*pgxpool.Pool)(nil)
var _ Querier = (pgx.Tx)(nil)

// Transactor runs fn as one atomic unit. Repositories bound with WithTx(tx) join the unit.
type Transactor interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error

	// ExecuteReadTx runs fn against one consistent read-only snapshot; no write committed
	// while fn runs is visible to it.
	ExecuteReadTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// readSnapshot gives every statement of a read unit the snapshot taken by its first statement
var readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

var _ Transactor = (*PostgresDB)(nil)

type PostgresDB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresDB(ctx context.Context, logger *slog.Logger, cfg *config.PostgresConfig) (*PostgresDB, error) {
	if err := RunMigrations(cfg.URL, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, WrapStoreError("failed to ping PostgreSQL", err)
	}

	logger.Info("Connected to PostgreSQL", "max_conns", cfg.MaxConns)

	return &PostgresDB{
		pool:   pool,
		logger: logger,
	}, nil
}

func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *PostgresDB) Close() {
	db.pool.Close()
	db.logger.Info("Closed PostgreSQL connection")
}

// ExecuteTx runs function in a transaction, rolling back on error or panic
func (db *PostgresDB) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return runTx(ctx, db.pool, pgx.TxOptions{}, db.logger, fn)
}

// ExecuteReadTx runs function in a read-only REPEATABLE READ transaction
func (db *PostgresDB) ExecuteReadTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return runTx(ctx, db.pool, readSnapshot, db.logger, fn)
}

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func runTx(ctx context.Context, db txBeginner, opts pgx.TxOptions, logger *slog.Logger, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return WrapStoreError("failed to begin transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx) // Attempt rollback on panic
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error("Failed to roll back transaction", "error", rbErr)
			return errors.Join(err, WrapStoreError("failed to roll back transaction", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return WrapStoreError("failed to commit transaction", err)
	}
	return nil
}

// WrapStoreError adds context to a store error and marks connectivity failures and
// deadline expiry with shared.ErrUnavailable, so callers can tell them from data errors.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsUnavailable(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(shared.ErrUnavailable, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsUnavailable reports whether err means the store could not be reached in time
func IsUnavailable(err error) bool {
	if errors.Is(err, shared.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// The server never saw the statement, e.g. the connection was already closed.
	return pgconn.SafeToRetry(err)
}
