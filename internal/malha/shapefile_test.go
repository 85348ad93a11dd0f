package malha

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonToMultiPolygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -46.7, Y: -23.6},
			{X: -46.7, Y: -23.4},
			{X: -46.3, Y: -23.4},
			{X: -46.3, Y: -23.6},
			{X: -46.7, Y: -23.6}, // closed ring
		},
	}

	mp := polygonToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, SRID, mp.SRID())
}

func TestPolygonToMultiPolygon_MultiPart(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			// Part 1
			{X: 0, Y: 0},
			{X: 0, Y: 1},
			{X: 1, Y: 1},
			{X: 1, Y: 0},
			{X: 0, Y: 0},
			// Part 2
			{X: 2, Y: 2},
			{X: 2, Y: 3},
			{X: 3, Y: 3},
			{X: 3, Y: 2},
			{X: 2, Y: 2},
		},
	}

	mp := polygonToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestPolygonToMultiPolygon_Degenerate(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
}

func TestParseShapefile_MissingFile(t *testing.T) {
	_, err := ParseShapefile("/nonexistent/mesh.shp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}
