package store

import (
	"context"
	"time"

	"github.com/geodata-br/censomap/internal/census"
)

// SyncStatus records the outcome of a dataset sync.
type SyncStatus string

const (
	SyncStatusOK        SyncStatus = "ok"
	SyncStatusUnchanged SyncStatus = "unchanged"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncEntry is one row of the sync log. Dataset names the source
// ("sidra" or "malha"), ETag holds the validator returned by the
// upstream API when it sent one.
type SyncEntry struct {
	ID       string     `json:"id"`
	Dataset  string     `json:"dataset"`
	ETag     string     `json:"etag,omitempty"`
	Rows     int64      `json:"rows"`
	Status   SyncStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	SyncedAt time.Time  `json:"synced_at"`
}

// SyncFilter specifies criteria for listing sync log entries.
type SyncFilter struct {
	Dataset string `json:"dataset,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for census observations and
// municipal geometries.
type Store interface {
	// Observations
	UpsertObservations(ctx context.Context, obs []census.Observation) (int64, error)
	ListObservations(ctx context.Context) ([]census.Observation, error)

	// Geometries
	UpsertGeometries(ctx context.Context, geoms []census.Geometry) (int64, error)
	ListGeometries(ctx context.Context) ([]census.Geometry, error)

	// Sync log
	RecordSync(ctx context.Context, entry SyncEntry) error
	GetSync(ctx context.Context, dataset string) (*SyncEntry, error)
	ListSyncs(ctx context.Context, filter SyncFilter) ([]SyncEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
