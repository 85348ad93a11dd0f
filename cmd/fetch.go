package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/fetcher"
	"github.com/geodata-br/censomap/internal/malha"
	"github.com/geodata-br/censomap/internal/sidra"
	"github.com/geodata-br/censomap/internal/store"
)

var (
	fetchStatsOnly bool
	fetchMeshOnly  bool
	fetchForce     bool
	fetchTable     int
	fetchPeriod    string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Sync census statistics and the municipal mesh into the store",
	Long: `Downloads the SIDRA cor/raça tabulation and the IBGE municipal mesh,
then loads both into the configured store.

Statistics are fetched conditionally: when the API returns the same ETag
as the previous sync, the download is skipped. Use --force to refetch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fetchStatsOnly && fetchMeshOnly {
			return eris.New("--stats-only and --mesh-only are mutually exclusive")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		g, gctx := errgroup.WithContext(ctx)
		if !fetchMeshOnly {
			g.Go(func() error { return syncStats(gctx, st) })
		}
		if !fetchStatsOnly {
			g.Go(func() error { return syncMesh(gctx, st) })
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Println("Fetch complete")
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchStatsOnly, "stats-only", false, "sync only the SIDRA statistics")
	fetchCmd.Flags().BoolVar(&fetchMeshOnly, "mesh-only", false, "sync only the municipal mesh")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "ignore the stored ETag and refetch")
	fetchCmd.Flags().IntVar(&fetchTable, "table", 0, "SIDRA table number (default from config)")
	fetchCmd.Flags().StringVar(&fetchPeriod, "period", "", "census period, e.g. 2022 (default from config)")
	rootCmd.AddCommand(fetchCmd)
}

func syncStats(ctx context.Context, st store.Store) error {
	log := zap.L().With(zap.String("dataset", "sidra"))
	started := time.Now()

	table := cfg.SIDRA.Table
	if fetchTable != 0 {
		table = fetchTable
	}
	period := cfg.SIDRA.Period
	if fetchPeriod != "" {
		period = fetchPeriod
	}

	client := sidra.NewClient(newHTTPFetcher(), sidra.Options{
		BaseURL:  cfg.SIDRA.BaseURL,
		Table:    table,
		Variable: cfg.SIDRA.Variable,
		Period:   period,
	})

	var etag string
	if !fetchForce {
		if last, err := st.GetSync(ctx, "sidra"); err != nil {
			return err
		} else if last != nil && last.Status != store.SyncStatusFailed {
			etag = last.ETag
		}
	}

	obs, newETag, changed, err := client.FetchIfChanged(ctx, etag)
	if err != nil {
		recordFailure(ctx, st, "sidra", err)
		return err
	}
	if !changed {
		log.Info("statistics unchanged, skipping load", zap.String("etag", etag))
		return st.RecordSync(ctx, store.SyncEntry{
			Dataset: "sidra",
			ETag:    etag,
			Status:  store.SyncStatusUnchanged,
		})
	}

	n, err := st.UpsertObservations(ctx, obs)
	if err != nil {
		recordFailure(ctx, st, "sidra", err)
		return err
	}

	log.Info("statistics synced",
		zap.Int64("rows", n),
		zap.Duration("took", time.Since(started)),
	)
	return st.RecordSync(ctx, store.SyncEntry{
		Dataset: "sidra",
		ETag:    newETag,
		Rows:    n,
		Status:  store.SyncStatusOK,
	})
}

func syncMesh(ctx context.Context, st store.Store) error {
	log := zap.L().With(zap.String("dataset", "malha"))
	started := time.Now()

	geoms, err := fetchMesh(ctx)
	if err != nil {
		recordFailure(ctx, st, "malha", err)
		return err
	}

	n, err := st.UpsertGeometries(ctx, geoms)
	if err != nil {
		recordFailure(ctx, st, "malha", err)
		return err
	}

	log.Info("mesh synced",
		zap.Int64("municipalities", n),
		zap.Duration("took", time.Since(started)),
	)
	return st.RecordSync(ctx, store.SyncEntry{
		Dataset: "malha",
		Rows:    n,
		Status:  store.SyncStatusOK,
	})
}

// fetchMesh acquires boundaries from the configured source: the Malhas
// API (GeoJSON) or the geoftp shapefile archive.
func fetchMesh(ctx context.Context) ([]census.Geometry, error) {
	switch cfg.Malha.Source {
	case "", "api":
		return malha.FetchMesh(ctx, newHTTPFetcher(), malha.MeshOptions{
			BaseURL: cfg.Malha.BaseURL,
			Quality: cfg.Malha.Quality,
		})
	case "ftp":
		f := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		})
		return malha.FetchShapefileMesh(ctx, f, cfg.Malha.FTPURL, cfg.Malha.TempDir)
	default:
		return nil, eris.Errorf("unknown mesh source %q", cfg.Malha.Source)
	}
}

func recordFailure(ctx context.Context, st store.Store, dataset string, cause error) {
	if err := st.RecordSync(ctx, store.SyncEntry{
		Dataset: dataset,
		Status:  store.SyncStatusFailed,
		Error:   cause.Error(),
	}); err != nil {
		zap.L().Warn("failed to record sync failure",
			zap.String("dataset", dataset),
			zap.Error(err),
		)
	}
}
