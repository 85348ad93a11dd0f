package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/malha"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "censomap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testBoundary(t *testing.T) *geom.MultiPolygon {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(malha.SRID)
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{-46.8, -24.0}, {-46.3, -24.0}, {-46.3, -23.4}, {-46.8, -23.4}, {-46.8, -24.0}},
	})
	require.NoError(t, mp.Push(poly))
	return mp
}

func int64p(v int64) *int64 { return &v }

func TestSQLiteObservationsRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	obs := []census.Observation{
		{Code: 3550308, Name: "São Paulo", Category: census.CategoryParda, Count: int64p(3900000)},
		{Code: 3550308, Name: "São Paulo", Category: census.CategoryBranca, Count: int64p(6100000)},
		{Code: 1302603, Name: "Manaus", Category: census.CategoryIndigena, Count: nil},
	}

	n, err := s.UpsertObservations(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := s.ListObservations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by code, then category.
	assert.Equal(t, int64(1302603), got[0].Code)
	assert.Equal(t, census.CategoryIndigena, got[0].Category)
	assert.Nil(t, got[0].Count, "suppressed count survives as NULL")
	assert.Equal(t, census.CategoryBranca, got[1].Category)
	require.NotNil(t, got[1].Count)
	assert.Equal(t, int64(6100000), *got[1].Count)
}

func TestSQLiteObservationsUpsertReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.UpsertObservations(ctx, []census.Observation{
		{Code: 3550308, Name: "São Paulo", Category: census.CategoryParda, Count: int64p(100)},
	})
	require.NoError(t, err)

	_, err = s.UpsertObservations(ctx, []census.Observation{
		{Code: 3550308, Name: "São Paulo", Category: census.CategoryParda, Count: int64p(200)},
	})
	require.NoError(t, err)

	got, err := s.ListObservations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(200), *got[0].Count)
}

func TestSQLiteGeometriesRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	boundary := testBoundary(t)

	n, err := s.UpsertGeometries(ctx, []census.Geometry{
		{Code: 3550308, Name: "São Paulo", Boundary: boundary},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.ListGeometries(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3550308), got[0].Code)
	require.NotNil(t, got[0].Boundary)
	assert.Equal(t, malha.SRID, got[0].Boundary.SRID())
	assert.Equal(t, boundary.FlatCoords(), got[0].Boundary.FlatCoords())
}

func TestSQLiteSyncLog(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	none, err := s.GetSync(ctx, "sidra")
	require.NoError(t, err)
	assert.Nil(t, none)

	first := SyncEntry{
		Dataset:  "sidra",
		ETag:     `"abc123"`,
		Rows:     5570,
		Status:   SyncStatusOK,
		SyncedAt: time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.RecordSync(ctx, first))
	require.NoError(t, s.RecordSync(ctx, SyncEntry{
		Dataset:  "sidra",
		Status:   SyncStatusFailed,
		Error:    "http 503",
		SyncedAt: time.Date(2025, 1, 3, 3, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.RecordSync(ctx, SyncEntry{
		Dataset: "malha",
		Rows:    5570,
		Status:  SyncStatusOK,
	}))

	latest, err := s.GetSync(ctx, "sidra")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, SyncStatusFailed, latest.Status)
	assert.Equal(t, "http 503", latest.Error)

	sidraOnly, err := s.ListSyncs(ctx, SyncFilter{Dataset: "sidra"})
	require.NoError(t, err)
	assert.Len(t, sidraOnly, 2)

	all, err := s.ListSyncs(ctx, SyncFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListSyncs(ctx, SyncFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
