package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

const retentionsTable = "retentions"

var retentionColumns = []string{
	"id", "user_id", "numero_retencion", "numero_autorizacion", "razon_social_proveedor",
	"ruc_proveedor", "numero_factura", "fecha_emision", "file_name", "estado", "created_at",
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS retentions (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	numero_retencion       TEXT NOT NULL,
	numero_autorizacion    TEXT NOT NULL,
	razon_social_proveedor TEXT NOT NULL,
	ruc_proveedor          TEXT NOT NULL,
	numero_factura         TEXT NOT NULL,
	fecha_emision          TEXT NOT NULL,
	file_name              TEXT NOT NULL DEFAULT '',
	estado                 TEXT NOT NULL,
	created_at             INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_retentions_user_created ON retentions(user_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_retentions_user_numero ON retentions(user_id, numero_retencion);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore is the default on-disk RetentionStore. Statements are built
// with ent's SQL builder; created_at is stored as unix microseconds.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	clock  *monotonicClock
	logger *slog.Logger
}

// OpenSQLite opens (and migrates) the database at path, creating parent
// directories as needed. ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	logger = common.LoggerOrDefault(logger)
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, eris.Wrap(err, "sqlite: create data directory")
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db, path: path, clock: newMonotonicClock(), logger: logger}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.seedClock(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("store.sqlite.open", "path", path)
	return s, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// seedClock keeps new timestamps after anything already stored, even if the
// wall clock moved backwards between runs.
func (s *SQLiteStore) seedClock(ctx context.Context) error {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("MAX(created_at)").From(b.Table(retentionsTable)).Query()
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&max); err != nil {
		return eris.Wrap(err, "sqlite: read max created_at")
	}
	if max.Valid {
		s.clock.Observe(time.UnixMicro(max.Int64))
	}
	return nil
}

// DB exposes the handle so the KV store can share it.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Create(ctx context.Context, ownerID string, in entity.NewRetention) (entity.RetentionRecord, error) {
	in, err := prepareCreate(ownerID, in)
	if err != nil {
		return entity.RetentionRecord{}, err
	}
	rec := entity.RetentionRecord{
		RetentionData: in.Data,
		ID:            uuid.NewString(),
		FileName:      in.FileName,
		CreatedAt:     s.clock.Next(),
		UserID:        ownerID,
		Estado:        in.Estado,
	}
	d := rec.RetentionData
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(retentionsTable).
		Columns(retentionColumns...).
		Values(rec.ID, rec.UserID, d.NumeroRetencion, d.NumeroAutorizacion, d.RazonSocialProveedor,
			d.RucProveedor, d.NumeroFactura, d.FechaEmision, rec.FileName, string(rec.Estado), rec.CreatedAt.UnixMicro()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("store.sqlite.create_failed", "owner", ownerID, "error", err)
		return entity.RetentionRecord{}, common.StoreFailure("create retention", eris.Wrap(err, "sqlite: insert retention"))
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ownerID, id string) (entity.RetentionRecord, error) {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return entity.RetentionRecord{}, err
	}
	query, args := s.selectOwned(ownerID, entsql.EQ("id", id)).Query()
	rec, err := scanRetention(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.RetentionRecord{}, notFound(id)
	}
	if err != nil {
		return entity.RetentionRecord{}, common.StoreFailure("get retention", eris.Wrapf(err, "sqlite: get retention %s", id))
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]entity.RetentionRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	query, args := s.selectOwned(ownerID).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()
	return s.queryRecords(ctx, "list retentions", query, args)
}

func (s *SQLiteStore) FindByNumeroRetencion(ctx context.Context, ownerID, numero string) (*entity.RetentionRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	query, args := s.selectOwned(ownerID, entsql.EQ("numero_retencion", numero)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()
	rec, err := scanRetention(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.StoreFailure("find retention", eris.Wrap(err, "sqlite: find by numero_retencion"))
	}
	return &rec, nil
}

func (s *SQLiteStore) Update(ctx context.Context, ownerID, id string, patch entity.RetentionPatch) (entity.RetentionRecord, error) {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return entity.RetentionRecord{}, err
	}
	if err := checkPatch(patch); err != nil {
		return entity.RetentionRecord{}, err
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Update(retentionsTable).
		Set("estado", string(*patch.Estado)).
		Where(entsql.And(entsql.EQ("user_id", ownerID), entsql.EQ("id", id))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return entity.RetentionRecord{}, common.StoreFailure("update retention", eris.Wrapf(err, "sqlite: update retention %s", id))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.RetentionRecord{}, notFound(id)
	}
	return s.Get(ctx, ownerID, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return err
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(retentionsTable).
		Where(entsql.And(entsql.EQ("user_id", ownerID), entsql.EQ("id", id))).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return common.StoreFailure("delete retention", eris.Wrapf(err, "sqlite: delete retention %s", id))
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) selectOwned(ownerID string, extra ...*entsql.Predicate) *entsql.Selector {
	b := entsql.Dialect(dialect.SQLite)
	preds := append([]*entsql.Predicate{entsql.EQ("user_id", ownerID)}, extra...)
	return b.Select(retentionColumns...).
		From(b.Table(retentionsTable)).
		Where(entsql.And(preds...))
}

func (s *SQLiteStore) queryRecords(ctx context.Context, op, query string, args []any) ([]entity.RetentionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.StoreFailure(op, eris.Wrap(err, "sqlite: "+op))
	}
	defer rows.Close()

	out := make([]entity.RetentionRecord, 0)
	for rows.Next() {
		rec, err := scanRetention(rows)
		if err != nil {
			return nil, common.StoreFailure(op, eris.Wrap(err, "sqlite: scan retention"))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreFailure(op, eris.Wrap(err, "sqlite: iterate retentions"))
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRetention(row rowScanner) (entity.RetentionRecord, error) {
	var (
		rec       entity.RetentionRecord
		estado    string
		createdAt int64
	)
	d := &rec.RetentionData
	if err := row.Scan(&rec.ID, &rec.UserID, &d.NumeroRetencion, &d.NumeroAutorizacion, &d.RazonSocialProveedor,
		&d.RucProveedor, &d.NumeroFactura, &d.FechaEmision, &rec.FileName, &estado, &createdAt); err != nil {
		return entity.RetentionRecord{}, err
	}
	rec.Estado = constants.RetentionStatus(estado)
	rec.CreatedAt = time.UnixMicro(createdAt).UTC()
	return rec, nil
}
