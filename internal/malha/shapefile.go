package malha

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
)

// ParseShapefile reads an IBGE municipal mesh shapefile (CD_MUN / NM_MUN
// attribute columns) into boundary records.
func ParseShapefile(shpPath string) ([]census.Geometry, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "malha: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	codeIdx, nameIdx := -1, -1
	for i, f := range reader.Fields() {
		switch strings.ToUpper(strings.TrimRight(f.String(), "\x00")) {
		case "CD_MUN":
			codeIdx = i
		case "NM_MUN":
			nameIdx = i
		}
	}
	if codeIdx < 0 {
		return nil, eris.Errorf("malha: shapefile %s has no CD_MUN field", shpPath)
	}

	var geoms []census.Geometry
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		rawCode := strings.TrimSpace(strings.TrimRight(reader.Attribute(codeIdx), "\x00"))
		n, err := strconv.ParseInt(rawCode, 10, 64)
		if err != nil {
			skipped++
			continue
		}
		code, err := NormalizeCode(n)
		if err != nil {
			skipped++
			continue
		}

		g := census.Geometry{Code: code, Boundary: mp}
		if nameIdx >= 0 {
			g.Name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		geoms = append(geoms, g)
	}

	if skipped > 0 {
		zap.L().Debug("malha: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return geoms, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("malha: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("malha: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
