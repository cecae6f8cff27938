// Package cli implements reconctl, the operator command line for the reconciliation engine.
// Every command runs the engine services in process against the configured PostgreSQL store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/engine/components"
	"github.com/financial-reconciliation-engine/internal/logger"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus"
)

// Bootstrap builds the engine services for cfg. The returned func releases what it opened.
type Bootstrap func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components.Services, func(), error)

// Migrator applies or inspects the schema at databaseURL
type Migrator interface {
	Up(databaseURL, migrationsPath string) error
	Status(databaseURL, migrationsPath string) (*persistence.MigrationState, error)
}

// Options customise an App. Zero values select the production behaviour.
type Options struct {
	Out        io.Writer
	Err        io.Writer
	LoadConfig func(name string) (*config.Config, error)
	Bootstrap  Bootstrap
	Migrator   Migrator
}

// App holds state shared by all commands of one invocation
type App struct {
	out        io.Writer
	errOut     io.Writer
	loadConfig func(name string) (*config.Config, error)
	bootstrap  Bootstrap
	migrator   Migrator

	configName string
	actor      string
	output     string

	cfg      *config.Config
	logger   *slog.Logger
	services *components.Services
	release  func()
}

func NewApp(opts Options) *App {
	app := &App{
		out:        opts.Out,
		errOut:     opts.Err,
		loadConfig: opts.LoadConfig,
		bootstrap:  opts.Bootstrap,
		migrator:   opts.Migrator,
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.errOut == nil {
		app.errOut = os.Stderr
	}
	if app.loadConfig == nil {
		app.loadConfig = config.LoadConfig
	}
	if app.bootstrap == nil {
		app.bootstrap = PostgresBootstrap
	}
	if app.migrator == nil {
		app.migrator = golangMigrator{}
	}
	return app
}

// Close releases the engine connections opened by the last command
func (a *App) Close() {
	if a.release != nil {
		a.release()
		a.release = nil
	}
	a.services = nil
}

func (a *App) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.loadConfig(a.configName)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.logger = logger.NewLoggerWithWriter(cfg, a.errOut)
	return cfg, nil
}

// engine connects the services on first use
func (a *App) engine(ctx context.Context) (*components.Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	services, release, err := a.bootstrap(ctx, cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	a.services = services
	a.release = release
	return services, nil
}

func (a *App) formatter() currency.Formatter {
	if a.cfg == nil {
		return currency.DefaultFormatter
	}
	return currency.NewFormatter(a.cfg.Currency.Symbol, a.cfg.Currency.Code)
}

// actorID is nil when no actor was given
func (a *App) actorID() *string {
	if a.actor == "" {
		return nil
	}
	actor := a.actor
	return &actor
}

// PostgresBootstrap opens the PostgreSQL pool and wires the engine over it
func PostgresBootstrap(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components.Services, func(), error) {
	db, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}

	services, err := components.CreateServices(
		db,
		components.NewPostgresRepositories(db, log),
		cfg,
		metrics.New(prometheus.NewRegistry()),
		log,
	)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return services, db.Close, nil
}

type golangMigrator struct{}

func (golangMigrator) Up(databaseURL, migrationsPath string) error {
	return persistence.RunMigrations(databaseURL, migrationsPath)
}

func (golangMigrator) Status(databaseURL, migrationsPath string) (*persistence.MigrationState, error) {
	return persistence.MigrationStatus(databaseURL, migrationsPath)
}
