package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/db"
	"github.com/geodata-br/censomap/internal/malha"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot paths of the sync loop.
var preparedStatements = map[string]string{
	"record_sync": `INSERT INTO sync_log (id, dataset, etag, row_count, status, error, synced_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_sync":    `SELECT id, dataset, etag, row_count, status, error, synced_at FROM sync_log WHERE dataset = $1 ORDER BY synced_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS observations (
	code     BIGINT NOT NULL,
	name     TEXT NOT NULL,
	category TEXT NOT NULL,
	count    BIGINT,
	PRIMARY KEY (code, category)
);

CREATE TABLE IF NOT EXISTS geometries (
	code     BIGINT PRIMARY KEY,
	name     TEXT NOT NULL,
	boundary BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset   TEXT NOT NULL,
	etag      TEXT,
	row_count BIGINT NOT NULL DEFAULT 0,
	status    TEXT NOT NULL,
	error     TEXT,
	synced_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_observations_category ON observations(category);
CREATE INDEX IF NOT EXISTS idx_sync_log_dataset ON sync_log(dataset, synced_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var observationColumns = []string{"code", "name", "category", "count"}

func (s *PostgresStore) UpsertObservations(ctx context.Context, obs []census.Observation) (int64, error) {
	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		var count any
		if o.Count != nil {
			count = *o.Count
		}
		rows = append(rows, []any{o.Code, o.Name, string(o.Category), count})
	}
	return db.BulkUpsert(ctx, s.pool, "observations", observationColumns, []string{"code", "category"}, rows)
}

func (s *PostgresStore) ListObservations(ctx context.Context) ([]census.Observation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name, category, count FROM observations ORDER BY code, category`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var obs []census.Observation
	for rows.Next() {
		var o census.Observation
		var category string
		var count *int64
		if err := rows.Scan(&o.Code, &o.Name, &category, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		o.Category = census.Category(category)
		o.Count = count
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "postgres: list observations iterate")
}

var geometryColumns = []string{"code", "name", "boundary"}

func (s *PostgresStore) UpsertGeometries(ctx context.Context, geoms []census.Geometry) (int64, error) {
	if len(geoms) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(geoms))
	for _, g := range geoms {
		wkb, err := malha.EncodeBoundary(g.Boundary)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode boundary %d", g.Code)
		}
		rows = append(rows, []any{g.Code, g.Name, wkb})
	}

	// An empty table takes the COPY fast path. A mesh refresh over
	// existing rows goes through the staging-table merge instead.
	var existing int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM geometries`).Scan(&existing); err != nil {
		return 0, eris.Wrap(err, "postgres: count geometries")
	}
	if existing == 0 {
		return db.CopyFrom(ctx, s.pool, "geometries", geometryColumns, rows)
	}
	return db.BulkUpsert(ctx, s.pool, "geometries", geometryColumns, []string{"code"}, rows)
}

func (s *PostgresStore) ListGeometries(ctx context.Context) ([]census.Geometry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name, boundary FROM geometries ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list geometries")
	}
	defer rows.Close()

	var geoms []census.Geometry
	for rows.Next() {
		var g census.Geometry
		var wkb []byte
		if err := rows.Scan(&g.Code, &g.Name, &wkb); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geometry")
		}
		g.Boundary, err = malha.DecodeBoundary(wkb)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode boundary %d", g.Code)
		}
		geoms = append(geoms, g)
	}
	return geoms, eris.Wrap(rows.Err(), "postgres: list geometries iterate")
}

func (s *PostgresStore) RecordSync(ctx context.Context, entry SyncEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_log (id, dataset, etag, row_count, status, error, synced_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Dataset, entry.ETag, entry.Rows, string(entry.Status), entry.Error, entry.SyncedAt,
	)
	return eris.Wrap(err, "postgres: record sync")
}

func (s *PostgresStore) GetSync(ctx context.Context, dataset string) (*SyncEntry, error) {
	var e SyncEntry
	var etag, errMsg *string
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT id, dataset, etag, row_count, status, error, synced_at FROM sync_log
		 WHERE dataset = $1 ORDER BY synced_at DESC LIMIT 1`,
		dataset,
	).Scan(&e.ID, &e.Dataset, &etag, &e.Rows, &status, &errMsg, &e.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get sync")
	}

	e.Status = SyncStatus(status)
	if etag != nil {
		e.ETag = *etag
	}
	if errMsg != nil {
		e.Error = *errMsg
	}
	return &e, nil
}

func (s *PostgresStore) ListSyncs(ctx context.Context, filter SyncFilter) ([]SyncEntry, error) {
	query := `SELECT id, dataset, etag, row_count, status, error, synced_at FROM sync_log WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Dataset != "" {
		query += fmt.Sprintf(` AND dataset = $%d`, argIdx)
		args = append(args, filter.Dataset)
		argIdx++
	}
	query += ` ORDER BY synced_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list syncs")
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		var etag, errMsg *string
		var status string
		if err := rows.Scan(&e.ID, &e.Dataset, &etag, &e.Rows, &status, &errMsg, &e.SyncedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync entry")
		}
		e.Status = SyncStatus(status)
		if etag != nil {
			e.ETag = *etag
		}
		if errMsg != nil {
			e.Error = *errMsg
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list syncs iterate")
}
