package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/internal/common"
)

// OpenPool creates a pgx pool tuned from DatabaseConfig.
func OpenPool(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "retenciones"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, eris.Wrap(err, "postgres: connect")
	}

	logger.Info("successfully connected to database")
	return pool, nil
}

// Backend bundles the record store and the KV store that share one
// connection.
type Backend struct {
	Store RetentionStore
	KV    KVStore
}

// Close releases the shared connection.
func (b *Backend) Close() error {
	if b == nil || b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

// OpenBackend opens the driver named in cfg and runs its migrations.
func OpenBackend(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Backend, error) {
	logger = common.LoggerOrDefault(logger)
	switch cfg.Driver {
	case common.StoreDriverMemory:
		return &Backend{Store: NewMemoryStore(logger), KV: NewMemoryKV()}, nil
	case common.StoreDriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, KV: NewSQLiteKV(s.DB())}, nil
	case common.StoreDriverPostgres:
		pool, err := OpenPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(pool, logger)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{Store: s, KV: NewPostgresKV(pool)}, nil
	default:
		return nil, common.InvalidInputf("unknown store driver %q", cfg.Driver)
	}
}

// HealthCheck pings the store, bounded by timeout when positive.
func HealthCheck(ctx context.Context, store RetentionStore, timeout time.Duration, logger *slog.Logger) error {
	logger = common.LoggerOrDefault(logger)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := store.Ping(ctx); err != nil {
		logger.Error("store.ping.failed", "error", err)
		return common.StoreFailure("ping", err)
	}
	logger.Debug("store.ping.ok", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
