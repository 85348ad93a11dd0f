package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/malha"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS observations (
	code     INTEGER NOT NULL,
	name     TEXT NOT NULL,
	category TEXT NOT NULL,
	count    INTEGER,
	PRIMARY KEY (code, category)
);

CREATE TABLE IF NOT EXISTS geometries (
	code     INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	boundary BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id        TEXT PRIMARY KEY,
	dataset   TEXT NOT NULL,
	etag      TEXT,
	row_count INTEGER NOT NULL DEFAULT 0,
	status    TEXT NOT NULL,
	error     TEXT,
	synced_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_observations_category ON observations(category);
CREATE INDEX IF NOT EXISTS idx_sync_log_dataset ON sync_log(dataset, synced_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertObservations(ctx context.Context, obs []census.Observation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert observations")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (code, name, category, count) VALUES (?, ?, ?, ?)
		 ON CONFLICT (code, category) DO UPDATE SET name = excluded.name, count = excluded.count`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert observations")
	}
	defer stmt.Close()

	for _, o := range obs {
		var count sql.NullInt64
		if o.Count != nil {
			count = sql.NullInt64{Int64: *o.Count, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, o.Code, o.Name, string(o.Category), count); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert observation %d/%s", o.Code, o.Category)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert observations")
	}
	return int64(len(obs)), nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context) ([]census.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, category, count FROM observations ORDER BY code, category`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var obs []census.Observation
	for rows.Next() {
		var o census.Observation
		var category string
		var count sql.NullInt64
		if err := rows.Scan(&o.Code, &o.Name, &category, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.Category = census.Category(category)
		if count.Valid {
			v := count.Int64
			o.Count = &v
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "sqlite: list observations iterate")
}

func (s *SQLiteStore) UpsertGeometries(ctx context.Context, geoms []census.Geometry) (int64, error) {
	if len(geoms) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert geometries")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO geometries (code, name, boundary) VALUES (?, ?, ?)
		 ON CONFLICT (code) DO UPDATE SET name = excluded.name, boundary = excluded.boundary`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert geometries")
	}
	defer stmt.Close()

	for _, g := range geoms {
		wkb, err := malha.EncodeBoundary(g.Boundary)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: encode boundary %d", g.Code)
		}
		if _, err := stmt.ExecContext(ctx, g.Code, g.Name, wkb); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert geometry %d", g.Code)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert geometries")
	}
	return int64(len(geoms)), nil
}

func (s *SQLiteStore) ListGeometries(ctx context.Context) ([]census.Geometry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, boundary FROM geometries ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list geometries")
	}
	defer rows.Close()

	var geoms []census.Geometry
	for rows.Next() {
		var g census.Geometry
		var wkb []byte
		if err := rows.Scan(&g.Code, &g.Name, &wkb); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geometry")
		}
		g.Boundary, err = malha.DecodeBoundary(wkb)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode boundary %d", g.Code)
		}
		geoms = append(geoms, g)
	}
	return geoms, eris.Wrap(rows.Err(), "sqlite: list geometries iterate")
}

func (s *SQLiteStore) RecordSync(ctx context.Context, entry SyncEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, dataset, etag, row_count, status, error, synced_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Dataset, entry.ETag, entry.Rows, string(entry.Status), entry.Error, entry.SyncedAt,
	)
	return eris.Wrap(err, "sqlite: record sync")
}

func (s *SQLiteStore) GetSync(ctx context.Context, dataset string) (*SyncEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, etag, row_count, status, error, synced_at FROM sync_log
		 WHERE dataset = ? ORDER BY synced_at DESC LIMIT 1`,
		dataset,
	)
	e, err := scanSyncEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *SQLiteStore) ListSyncs(ctx context.Context, filter SyncFilter) ([]SyncEntry, error) {
	query := `SELECT id, dataset, etag, row_count, status, error, synced_at FROM sync_log WHERE 1=1`
	var args []any

	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY synced_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list syncs")
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		e, err := scanSyncEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list syncs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSyncEntry(row scannable) (*SyncEntry, error) {
	var e SyncEntry
	var etag, errMsg sql.NullString
	var status string

	err := row.Scan(&e.ID, &e.Dataset, &etag, &e.Rows, &status, &errMsg, &e.SyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan sync entry")
	}

	e.Status = SyncStatus(status)
	e.ETag = etag.String
	e.Error = errMsg.String
	return &e, nil
}
