package choropleth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/geodata-br/censomap/internal/census"
)

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 255, G: 128, B: 0}, c)
	assert.Equal(t, "#ff8000", c.Hex())

	c, err = ParseHex("004488")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 0, G: 68, B: 136}, c)

	_, err = ParseHex("#fff")
	require.Error(t, err)
	_, err = ParseHex("zzzzzz")
	require.Error(t, err)
}

func TestScaleColorAt(t *testing.T) {
	s := Scale{Min: 0, Max: 100, Low: Color{}, High: Color{R: 200, G: 100, B: 50}}

	assert.Equal(t, s.Low, s.ColorAt(0))
	assert.Equal(t, s.High, s.ColorAt(100))
	assert.Equal(t, Color{R: 100, G: 50, B: 25}, s.ColorAt(50))

	// Out-of-domain values clamp.
	assert.Equal(t, s.Low, s.ColorAt(-10))
	assert.Equal(t, s.High, s.ColorAt(110))
}

func TestScaleColorAt_DegenerateDomain(t *testing.T) {
	s := Scale{Min: 40, Max: 40, Low: Color{R: 1}, High: Color{R: 2}}
	assert.Equal(t, s.Low, s.ColorAt(40))
}

func TestNewScale(t *testing.T) {
	s := NewScale(map[int64]float64{1: 12.5, 2: 80.2, 3: 43.0}, Color{}, Color{R: 255})
	assert.Equal(t, 12.5, s.Min)
	assert.Equal(t, 80.2, s.Max)

	empty := NewScale(nil, Color{}, Color{})
	assert.Equal(t, 0.0, empty.Min)
	assert.Equal(t, 0.0, empty.Max)
}

func TestStops(t *testing.T) {
	s := Scale{Min: 0, Max: 100, Low: Color{}, High: Color{R: 100}}
	stops := s.Stops(5)
	require.Len(t, stops, 5)
	assert.Equal(t, 0.0, stops[0].Value)
	assert.Equal(t, 100.0, stops[4].Value)
	assert.Equal(t, 50.0, stops[2].Value)
}

func boundary(x, y float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4674)
	poly := geom.NewPolygonFlat(geom.XY, []float64{x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y}, []int{10})
	_ = mp.Push(poly)
	return mp
}

func renderTestDataset() *census.Dataset {
	return census.BuildDataset([]census.Geometry{
		{Code: 3550308, Name: "São Paulo", Boundary: boundary(-46, -23)},
		{Code: 3304557, Name: "Rio de Janeiro", Boundary: boundary(-43, -22)},
		{Code: 1302603, Name: "Manaus", Boundary: boundary(-60, -3)},
	}, nil)
}

func TestRender(t *testing.T) {
	ds := renderTestDataset()
	values := map[int64]float64{
		3550308: 60.5,
		3304557: 31.2,
		// Manaus deliberately missing.
	}
	scale := NewScale(values, Color{R: 240, G: 240, B: 255}, Color{B: 140})

	svg := string(Render(ds, values, scale, Options{Title: "Branca (%)"}))

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg"`))
	assert.Contains(t, svg, "Branca (%)")
	// One path per municipality with a boundary.
	assert.Equal(t, 3, strings.Count(svg, "<path "))
	// The missing municipality renders in the neutral fill with a
	// "sem dados" tooltip.
	assert.Contains(t, svg, `fill="#d0d0d0"`)
	assert.Contains(t, svg, "Manaus (1302603): sem dados")
	// Values show up in tooltips.
	assert.Contains(t, svg, "São Paulo (3550308): 60.50%")
	// Highest value gets the High endpoint color.
	assert.Contains(t, svg, `fill="#00008c"`)
	// Legend present.
	assert.Contains(t, svg, `url(#ramp)`)
	assert.Contains(t, svg, "sem dados</text>")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(svg), "</svg>"))
}

func TestRender_EmptyValues(t *testing.T) {
	ds := renderTestDataset()
	scale := NewScale(nil, Color{}, Color{R: 255})
	svg := string(Render(ds, nil, scale, Options{}))

	assert.Equal(t, 3, strings.Count(svg, "<path "))
	assert.Equal(t, 3, strings.Count(svg, "sem dados</title>"))
}

func TestBoundaryPath_ClosedSubpaths(t *testing.T) {
	ds := renderTestDataset()
	proj := fitProjection(ds, 960, 920)

	path := boundaryPath(ds.Municipalities[0].Boundary, proj)
	assert.True(t, strings.HasPrefix(path, "M"))
	assert.True(t, strings.HasSuffix(path, "Z"))
	assert.Equal(t, 1, strings.Count(path, "M"))
	assert.Equal(t, 4, strings.Count(path, "L"))
}

func TestFitProjection_PreservesOrientation(t *testing.T) {
	ds := renderTestDataset()
	proj := fitProjection(ds, 960, 920)

	// Manaus is north-west of São Paulo: smaller x, smaller y in SVG space.
	mx, my := proj.apply(-60, -3)
	sx, sy := proj.apply(-46, -23)
	assert.Less(t, mx, sx)
	assert.Less(t, my, sy)
}
