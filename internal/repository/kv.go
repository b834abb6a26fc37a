package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// KVStore is a tiny string key-value store. A missing key is reported with
// ok=false, not an error.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type memoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryKV() KVStore {
	return &memoryKV{m: make(map[string]string)}
}

func (k *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *memoryKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

type sqliteKV struct {
	db *sql.DB
}

// NewSQLiteKV uses the kv table created by the SQLite migration.
func NewSQLiteKV(db *sql.DB) KVStore {
	return &sqliteKV{db: db}
}

func (k *sqliteKV) Get(ctx context.Context, key string) (string, bool, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("value").From(b.Table("kv")).Where(entsql.EQ("key", key)).Query()
	var v string
	err := k.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "sqlite: get kv %s", key)
	}
	return v, true, nil
}

func (k *sqliteKV) Set(ctx context.Context, key, value string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UnixMicro()).
		OnConflict(entsql.ConflictColumns("key"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := k.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "sqlite: set kv %s", key)
	}
	return nil
}

type postgresKV struct {
	pool Pool
}

func NewPostgresKV(pool Pool) KVStore {
	return &postgresKV{pool: pool}
}

func (k *postgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := psql.Select("value").From("kv").Where("key = ?", key).ToSql()
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: build kv select")
	}
	var v string
	err = k.pool.QueryRow(ctx, query, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "postgres: get kv %s", key)
	}
	return v, true, nil
}

func (k *postgresKV) Set(ctx context.Context, key, value string) error {
	query, args, err := psql.Insert("kv").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build kv upsert")
	}
	if _, err := k.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: set kv %s", key)
	}
	return nil
}
