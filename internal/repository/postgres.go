package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

// Pool is the subset of *pgxpool.Pool the Postgres stores use. pgxmock's
// pool satisfies it as well.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresMigration creates the tables used by PostgresStore and PostgresKV.
const PostgresMigration = `
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
	created_at             TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS idx_retentions_user_created ON retentions(user_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_retentions_user_numero ON retentions(user_id, numero_retencion);
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps records in Postgres. createdAt comes from the server
// clock so ordering stays authoritative across processes. Two inserts in the
// same microsecond get equal createdAt; List breaks the tie by id DESC.
type PostgresStore struct {
	pool   Pool
	logger *slog.Logger
}

func NewPostgresStore(pool Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: common.LoggerOrDefault(logger)}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, PostgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Create(ctx context.Context, ownerID string, in entity.NewRetention) (entity.RetentionRecord, error) {
	in, err := prepareCreate(ownerID, in)
	if err != nil {
		return entity.RetentionRecord{}, err
	}
	rec := entity.RetentionRecord{
		RetentionData: in.Data,
		ID:            uuid.NewString(),
		FileName:      in.FileName,
		UserID:        ownerID,
		Estado:        in.Estado,
	}
	d := rec.RetentionData
	query, args, err := psql.Insert(retentionsTable).
		Columns(retentionColumns[:len(retentionColumns)-1]...).
		Values(rec.ID, rec.UserID, d.NumeroRetencion, d.NumeroAutorizacion, d.RazonSocialProveedor,
			d.RucProveedor, d.NumeroFactura, d.FechaEmision, rec.FileName, string(rec.Estado)).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return entity.RetentionRecord{}, eris.Wrap(err, "postgres: build insert")
	}
	var createdAt time.Time
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&createdAt); err != nil {
		s.logger.Error("store.postgres.create_failed", "owner", ownerID, "error", err)
		return entity.RetentionRecord{}, common.StoreFailure("create retention", eris.Wrap(err, "postgres: insert retention"))
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (entity.RetentionRecord, error) {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return entity.RetentionRecord{}, err
	}
	query, args, err := selectOwned(ownerID).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return entity.RetentionRecord{}, eris.Wrap(err, "postgres: build select")
	}
	rec, err := scanPgRetention(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.RetentionRecord{}, notFound(id)
	}
	if err != nil {
		return entity.RetentionRecord{}, common.StoreFailure("get retention", eris.Wrapf(err, "postgres: get retention %s", id))
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]entity.RetentionRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	query, args, err := selectOwned(ownerID).OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build select")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, common.StoreFailure("list retentions", eris.Wrap(err, "postgres: list retentions"))
	}
	defer rows.Close()

	out := make([]entity.RetentionRecord, 0)
	for rows.Next() {
		rec, err := scanPgRetention(rows)
		if err != nil {
			return nil, common.StoreFailure("list retentions", eris.Wrap(err, "postgres: scan retention"))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreFailure("list retentions", eris.Wrap(err, "postgres: iterate retentions"))
	}
	return out, nil
}

func (s *PostgresStore) FindByNumeroRetencion(ctx context.Context, ownerID, numero string) (*entity.RetentionRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	query, args, err := selectOwned(ownerID).
		Where(sq.Eq{"numero_retencion": numero}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build select")
	}
	rec, err := scanPgRetention(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.StoreFailure("find retention", eris.Wrap(err, "postgres: find by numero_retencion"))
	}
	return &rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, ownerID, id string, patch entity.RetentionPatch) (entity.RetentionRecord, error) {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return entity.RetentionRecord{}, err
	}
	if err := checkPatch(patch); err != nil {
		return entity.RetentionRecord{}, err
	}
	query, args, err := psql.Update(retentionsTable).
		Set("estado", string(*patch.Estado)).
		Where(sq.Eq{"user_id": ownerID, "id": id}).
		Suffix("RETURNING " + strings.Join(retentionColumns, ", ")).
		ToSql()
	if err != nil {
		return entity.RetentionRecord{}, eris.Wrap(err, "postgres: build update")
	}
	rec, err := scanPgRetention(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.RetentionRecord{}, notFound(id)
	}
	if err != nil {
		return entity.RetentionRecord{}, common.StoreFailure("update retention", eris.Wrapf(err, "postgres: update retention %s", id))
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return err
	}
	query, args, err := psql.Delete(retentionsTable).
		Where(sq.Eq{"user_id": ownerID, "id": id}).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build delete")
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return common.StoreFailure("delete retention", eris.Wrapf(err, "postgres: delete retention %s", id))
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func selectOwned(ownerID string) sq.SelectBuilder {
	return psql.Select(retentionColumns...).
		From(retentionsTable).
		Where(sq.Eq{"user_id": ownerID})
}

func scanPgRetention(row pgx.Row) (entity.RetentionRecord, error) {
	var (
		rec       entity.RetentionRecord
		estado    string
		createdAt time.Time
	)
	d := &rec.RetentionData
	if err := row.Scan(&rec.ID, &rec.UserID, &d.NumeroRetencion, &d.NumeroAutorizacion, &d.RazonSocialProveedor,
		&d.RucProveedor, &d.NumeroFactura, &d.FechaEmision, &rec.FileName, &estado, &createdAt); err != nil {
		return entity.RetentionRecord{}, err
	}
	rec.Estado = constants.RetentionStatus(estado)
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
