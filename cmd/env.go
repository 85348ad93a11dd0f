package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/fetcher"
	"github.com/geodata-br/censomap/internal/store"
)

// openStore builds the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	switch cfg.Store.Driver {
	case "", "sqlite":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
	})
}

// loadDataset joins the stored observations and geometries. Errors when
// either side is empty, which means fetch has not run yet.
func loadDataset(ctx context.Context, st store.Store) (*census.Dataset, error) {
	obs, err := st.ListObservations(ctx)
	if err != nil {
		return nil, err
	}
	geoms, err := st.ListGeometries(ctx)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 || len(geoms) == 0 {
		return nil, eris.New("no data in store, run 'censomap fetch' first")
	}
	return census.BuildDataset(geoms, obs), nil
}
