package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"bizbiller/internal/config"
	"bizbiller/internal/core"
	"bizbiller/internal/db"
	"bizbiller/internal/lock"
	"bizbiller/internal/store/pgstore"
	"bizbiller/internal/store/sqlitestore"
)

// App owns the storage and lock connections behind an ApplicationService.
type App struct {
	Service ApplicationService
	Store   core.Store

	closers []func()
}

// New opens the configured backend and wires every service over it.
// The SQLite schema is created on open; a Postgres database must have been
// migrated with Migrate first.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.Store = pgstore.New(pool)
	default:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { s.Close() })
		a.Store = s
	}

	locker, err := newLocker(ctx, a, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier := core.NewLogNotifier(log.With().Str("component", "stock").Logger())
	seq := core.NewSequenceAllocator(a.Store, locker)
	stock := core.NewStockLedger(a.Store, locker, notifier)
	parties := core.NewPartyLedger(a.Store, locker)
	accounts := core.NewAccountLedger(a.Store, locker)

	a.Service = NewAppService(Services{
		Businesses:    core.NewBusinessService(a.Store, cfg.PhoneRegion),
		Settings:      core.NewSettingsService(a.Store, locker),
		Parties:       core.NewPartyService(a.Store, locker, cfg.PhoneRegion),
		Items:         core.NewItemService(a.Store, locker),
		Accounts:      core.NewAccountService(a.Store, locker),
		StockLedger:   stock,
		PartyLedger:   parties,
		AccountLedger: accounts,
		Invoices: core.NewInvoiceService(a.Store, locker, seq, stock, parties, accounts, notifier,
			log.With().Str("component", "invoices").Logger()),
		Expenses: core.NewExpenseService(a.Store, locker, accounts,
			log.With().Str("component", "expenses").Logger()),
		Reports: core.NewReportingService(a.Store),
	})
	return a, nil
}

// newLocker returns a Redis-backed lock when REDIS_ADDRESS is set so several
// processes can share one Postgres database, and an in-process lock otherwise.
func newLocker(ctx context.Context, a *App, cfg *config.Config, log zerolog.Logger) (core.BusinessLocker, error) {
	if cfg.RedisAddress == "" {
		return core.NewLocalLocker(), nil
	}
	rdb, err := lock.Connect(ctx, cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { rdb.Close() })
	log.Info().Str("address", cfg.RedisAddress).Msg("using redis business lock")
	return lock.NewRedisLocker(rdb, lock.DefaultTTL, log.With().Str("component", "lock").Logger()), nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Migrate brings the configured database schema up to date.
func Migrate(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pgstore.Migrate(ctx, pool, log)
	default:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite schema up to date")
		return s.Close()
	}
}
