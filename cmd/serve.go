package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/choropleth"
	"github.com/geodata-br/censomap/internal/monitoring"
	"github.com/geodata-br/censomap/internal/report"
	"github.com/geodata-br/censomap/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset and maps over HTTP",
	Long: `Starts an HTTP server exposing the derived percentages, per-category
SVG maps rendered on demand, and the generated report directory when it
exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ds, err := loadDataset(ctx, st)
		if err != nil {
			return err
		}

		srv := newServer(st, ds)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("municipalities", ds.Len()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	store    store.Store
	ds       *census.Dataset
	palettes report.Palettes
	router   chi.Router
}

func newServer(st store.Store, ds *census.Dataset) *server {
	s := &server{
		store:    st,
		ds:       ds,
		palettes: report.DefaultPalettes(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/api/categories", s.handleCategories)
	r.Get("/api/summary", s.handleSummary)
	r.Get("/api/percentages", s.handlePercentages)
	r.Get("/api/municipalities/{code}", s.handleMunicipality)
	r.Get("/api/geojson/{category}", s.handleGeoJSON)
	r.Get("/api/maps/{category}.svg", s.handleMap)

	// Serve the generated report directory when one exists.
	if info, err := os.Stat(cfg.Report.OutDir); err == nil && info.IsDir() {
		r.Handle("/*", http.FileServer(http.Dir(cfg.Report.OutDir)))
	}

	s.router = r
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := monitoring.NewCollector(s.store).Collect(r.Context(), 24)
	if err != nil {
		zap.L().Error("status collection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status collection failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	type category struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	out := make([]category, 0, len(census.Categories()))
	for _, c := range census.Categories() {
		out = append(out, category{Name: string(c), Slug: c.Slug()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ds.Summarize(cfg.Report.Precision))
}

func (s *server) handlePercentages(w http.ResponseWriter, r *http.Request) {
	var rows []census.PercentageRow
	var err error

	if q := r.URL.Query().Get("category"); q != "" {
		cat, perr := census.ParseCategory(q)
		if perr != nil || cat == census.CategoryTotal {
			writeError(w, http.StatusBadRequest, "unknown category "+q)
			return
		}
		rows, err = s.ds.Percentages(cat, cfg.Report.Precision)
	} else {
		rows, err = s.ds.AllPercentages(cfg.Report.Precision)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleMunicipality(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseInt(chi.URLParam(r, "code"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "code must be numeric")
		return
	}

	m := s.ds.Get(code)
	if m == nil {
		writeError(w, http.StatusNotFound, "municipality not found")
		return
	}

	type share struct {
		Count   *int64  `json:"count"`
		Percent float64 `json:"percent"`
	}
	out := struct {
		Code   int64            `json:"code"`
		Name   string           `json:"name"`
		Shares map[string]share `json:"shares"`
	}{
		Code:   m.Code,
		Name:   m.Name,
		Shares: map[string]share{},
	}

	denom, ok := m.Denominator()
	for _, c := range census.Categories() {
		sh := share{Count: m.Counts[c]}
		if ok && denom > 0 && sh.Count != nil {
			sh.Percent = census.Round(100*float64(*sh.Count)/float64(denom), cfg.Report.Precision)
		}
		out.Shares[c.Slug()] = sh
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	cat, err := census.ParseCategory(chi.URLParam(r, "category"))
	if err != nil || cat == census.CategoryTotal {
		writeError(w, http.StatusBadRequest, "unknown category "+chi.URLParam(r, "category"))
		return
	}

	rows, err := s.ds.Percentages(cat, cfg.Report.Precision)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	values := census.PercentByCode(rows)

	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, s.ds.Len()),
	}
	for _, m := range s.ds.Municipalities {
		props := map[string]interface{}{
			"code":     m.Code,
			"name":     m.Name,
			"category": string(cat),
		}
		if v := m.Counts[cat]; v != nil {
			props["count"] = *v
		}
		if pct, ok := values[m.Code]; ok {
			props["percent"] = pct
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.FormatInt(m.Code, 10),
			Geometry:   m.Boundary,
			Properties: props,
		})
	}
	writeJSON(w, http.StatusOK, fc)
}

func (s *server) handleMap(w http.ResponseWriter, r *http.Request) {
	cat, err := census.ParseCategory(chi.URLParam(r, "category"))
	if err != nil || cat == census.CategoryTotal {
		writeError(w, http.StatusBadRequest, "unknown category "+chi.URLParam(r, "category"))
		return
	}

	rows, err := s.ds.Percentages(cat, cfg.Report.Precision)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	values := census.PercentByCode(rows)

	pal := s.palettes.For(cat)
	low, err := choropleth.ParseHex(pal.Low)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	high, err := choropleth.ParseHex(pal.High)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	svg := choropleth.Render(s.ds, values, choropleth.NewScale(values, low, high), choropleth.Options{
		Width:     cfg.Report.MapWidth,
		Height:    cfg.Report.MapHeight,
		Title:     string(cat),
		Precision: cfg.Report.Precision,
	})

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(svg) //nolint:errcheck
}
