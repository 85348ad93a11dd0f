package malha

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/fetcher"
)

// MeshOptions configures the Malhas API query.
type MeshOptions struct {
	BaseURL string
	Quality string // minima, intermediaria, maxima
}

// MeshURL builds the national mesh query with municipality subdivisions.
func MeshURL(opts MeshOptions) string {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://servicodados.ibge.gov.br/api/v3/malhas"
	}
	if opts.Quality == "" {
		opts.Quality = "minima"
	}
	return fmt.Sprintf("%s/paises/BR?formato=%s&intrarregiao=municipio&qualidade=%s",
		opts.BaseURL, url.QueryEscape("application/vnd.geo+json"), opts.Quality)
}

// FetchMesh downloads the national municipal mesh as GeoJSON and decodes
// it into boundary records.
func FetchMesh(ctx context.Context, f fetcher.Fetcher, opts MeshOptions) ([]census.Geometry, error) {
	u := MeshURL(opts)
	zap.L().Info("malha: fetching municipal mesh", zap.String("url", u))

	body, err := f.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrap(err, "malha: download mesh")
	}
	defer body.Close() //nolint:errcheck

	return ParseMesh(body)
}

// ParseMesh decodes a Malhas API GeoJSON FeatureCollection. Each feature
// carries the municipality code in the codarea property; names come from
// the statistics side of the join, so features here have none.
func ParseMesh(r io.Reader) ([]census.Geometry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "malha: read mesh body")
	}

	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, eris.Wrap(err, "malha: decode geojson")
	}

	geoms := make([]census.Geometry, 0, len(fc.Features))
	var skipped int
	for _, feat := range fc.Features {
		code, ok := featureCode(feat)
		if !ok {
			skipped++
			continue
		}

		mp, err := ToMultiPolygon(feat.Geometry)
		if err != nil {
			skipped++
			continue
		}

		geoms = append(geoms, census.Geometry{Code: code, Boundary: mp})
	}

	if skipped > 0 {
		zap.L().Warn("malha: skipped mesh features", zap.Int("skipped", skipped))
	}
	if len(geoms) == 0 {
		return nil, eris.New("malha: mesh contained no usable features")
	}

	return geoms, nil
}

// featureCode extracts and normalizes the municipality code from a mesh
// feature: the codarea property, falling back to the feature ID.
func featureCode(feat *geojson.Feature) (int64, bool) {
	raw, _ := feat.Properties["codarea"].(string)
	if raw == "" {
		raw = feat.ID
	}
	if raw == "" {
		return 0, false
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	code, err := NormalizeCode(n)
	if err != nil {
		return 0, false
	}
	return code, true
}
