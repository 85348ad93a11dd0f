// Package report renders the static deliverable: one choropleth SVG per
// category, a machine-readable data.json and a self-contained HTML page
// with the sortable municipality table.
package report

import (
	"context"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/choropleth"
)

// Options configures the report builder.
type Options struct {
	OutputDir  string
	Title      string
	Precision  int
	PageSize   int // rows per page in the HTML table
	MapWidth   int
	MapHeight  int
	Palettes   Palettes
	Categories []census.Category // maps to render; all five when empty
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "report"
	}
	if o.Title == "" {
		o.Title = "Censo 2022: cor ou raça por município"
	}
	if o.Precision == 0 {
		o.Precision = 2
	}
	if o.PageSize == 0 {
		o.PageSize = 25
	}
	if o.Palettes.Categories == nil {
		o.Palettes = DefaultPalettes()
	}
	if len(o.Categories) == 0 {
		o.Categories = census.Categories()
	}
	return o
}

// Result describes what Build wrote to disk.
type Result struct {
	ReportPath string
	DataPath   string
	MapPaths   map[census.Category]string
	Rows       int
}

// Builder renders a dataset into the report directory.
type Builder struct {
	ds   *census.Dataset
	opts Options
}

// NewBuilder creates a report builder for the given dataset.
func NewBuilder(ds *census.Dataset, opts Options) *Builder {
	return &Builder{ds: ds, opts: opts.withDefaults()}
}

type categorySection struct {
	Name    string
	Slug    string
	MapFile string
	Rows    int
}

type pageData struct {
	Title       string
	GeneratedAt string
	Precision   int
	PageSize    int
	Summary     []census.CategorySummary
	Sections    []categorySection
	RowsJSON    template.JS
}

// Build writes the SVG maps, data.json and report.html. The context
// bounds the whole render so a cancelled run stops between maps.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	opts := b.opts
	mapsDir := filepath.Join(opts.OutputDir, "maps")
	if err := os.MkdirAll(mapsDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", mapsDir)
	}

	res := &Result{
		ReportPath: filepath.Join(opts.OutputDir, "report.html"),
		DataPath:   filepath.Join(opts.OutputDir, "data.json"),
		MapPaths:   make(map[census.Category]string, len(opts.Categories)),
	}

	var sections []categorySection
	for _, c := range opts.Categories {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "report: cancelled")
		}

		rows, err := b.ds.Percentages(c, opts.Precision)
		if err != nil {
			return nil, err
		}
		values := census.PercentByCode(rows)

		pal := opts.Palettes.For(c)
		low, err := choropleth.ParseHex(pal.Low)
		if err != nil {
			return nil, eris.Wrapf(err, "report: palette for %s", c)
		}
		high, err := choropleth.ParseHex(pal.High)
		if err != nil {
			return nil, eris.Wrapf(err, "report: palette for %s", c)
		}

		svg := choropleth.Render(b.ds, values, choropleth.NewScale(values, low, high), choropleth.Options{
			Width:     opts.MapWidth,
			Height:    opts.MapHeight,
			Title:     string(c),
			Precision: opts.Precision,
		})

		mapPath := filepath.Join(mapsDir, c.Slug()+".svg")
		if err := os.WriteFile(mapPath, svg, 0o644); err != nil {
			return nil, eris.Wrapf(err, "report: write map %s", mapPath)
		}
		res.MapPaths[c] = mapPath

		sections = append(sections, categorySection{
			Name:    string(c),
			Slug:    c.Slug(),
			MapFile: filepath.ToSlash(filepath.Join("maps", c.Slug()+".svg")),
			Rows:    len(rows),
		})
		zap.L().Info("report: rendered map",
			zap.String("category", string(c)),
			zap.Int("municipalities", len(rows)),
		)
	}

	all, err := b.ds.AllPercentages(opts.Precision)
	if err != nil {
		return nil, err
	}
	census.SortRowsByName(all)
	res.Rows = len(all)

	rowsJSON, err := json.Marshal(all)
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal rows")
	}
	if err := os.WriteFile(res.DataPath, rowsJSON, 0o644); err != nil {
		return nil, eris.Wrapf(err, "report: write %s", res.DataPath)
	}

	page := pageData{
		Title:       opts.Title,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Precision:   opts.Precision,
		PageSize:    opts.PageSize,
		Summary:     b.ds.Summarize(opts.Precision),
		Sections:    sections,
		RowsJSON:    template.JS(rowsJSON),
	}

	f, err := os.Create(res.ReportPath)
	if err != nil {
		return nil, eris.Wrapf(err, "report: create %s", res.ReportPath)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, page); err != nil {
		return nil, eris.Wrap(err, "report: execute template")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrapf(err, "report: close %s", res.ReportPath)
	}

	zap.L().Info("report: written",
		zap.String("path", res.ReportPath),
		zap.Int("rows", res.Rows),
	)
	return res, nil
}
