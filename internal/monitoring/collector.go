package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/store"
)

// MetricsSnapshot holds a point-in-time view of dataset health.
type MetricsSnapshot struct {
	// Coverage of the statistics/geometry join.
	Municipalities int     `json:"municipalities"`
	WithCounts     int     `json:"with_counts"`
	WithGeometry   int     `json:"with_geometry"`
	CoverageRatio  float64 `json:"coverage_ratio"`

	// Observation totals.
	Observations int `json:"observations"`
	Suppressed   int `json:"suppressed"`

	// Sync activity within the lookback window, plus the most recent
	// entry per dataset regardless of age.
	SyncTotal int                         `json:"sync_total"`
	SyncOK    int                         `json:"sync_ok"`
	SyncFail  int                         `json:"sync_failed"`
	LastSyncs map[string]*store.SyncEntry `json:"last_sync_by_dataset"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of dataset metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
		LastSyncs:     map[string]*store.SyncEntry{},
	}

	obs, err := c.store.ListObservations(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list observations")
	}
	geoms, err := c.store.ListGeometries(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list geometries")
	}

	snap.Observations = len(obs)
	withCounts := map[int64]bool{}
	for _, o := range obs {
		if o.Count == nil {
			snap.Suppressed++
			continue
		}
		withCounts[o.Code] = true
	}
	snap.WithCounts = len(withCounts)
	snap.WithGeometry = len(geoms)

	ds := census.BuildDataset(geoms, obs)
	snap.Municipalities = ds.Len()
	if snap.Municipalities > 0 {
		covered := 0
		for _, m := range ds.Municipalities {
			if _, ok := m.Denominator(); ok {
				covered++
			}
		}
		snap.CoverageRatio = float64(covered) / float64(snap.Municipalities)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	entries, err := c.store.ListSyncs(ctx, store.SyncFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list syncs")
	}
	for i := range entries {
		e := entries[i]
		if _, seen := snap.LastSyncs[e.Dataset]; !seen {
			snap.LastSyncs[e.Dataset] = &entries[i]
		}
		if e.SyncedAt.Before(cutoff) {
			continue
		}
		snap.SyncTotal++
		switch e.Status {
		case store.SyncStatusFailed:
			snap.SyncFail++
		case store.SyncStatusOK, store.SyncStatusUnchanged:
			snap.SyncOK++
		}
	}

	return snap, nil
}
