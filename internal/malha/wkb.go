package malha

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is SIRGAS 2000, the official Brazilian geodetic reference system
// used by every IBGE geometry distribution.
const SRID = 4674

// EncodeBoundary serializes a boundary to EWKB for storage.
func EncodeBoundary(mp *geom.MultiPolygon) ([]byte, error) {
	if mp == nil {
		return nil, eris.New("malha: nil boundary")
	}
	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "malha: encode boundary")
	}
	return data, nil
}

// DecodeBoundary deserializes a stored EWKB boundary.
func DecodeBoundary(data []byte) (*geom.MultiPolygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "malha: decode boundary")
	}
	return ToMultiPolygon(g)
}

// ToMultiPolygon coerces a geometry to a MultiPolygon with the SIRGAS
// 2000 SRID. Single polygons are wrapped; anything else is rejected.
func ToMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t.SetSRID(SRID), nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "malha: wrap polygon")
		}
		return mp, nil
	default:
		return nil, eris.Errorf("malha: unsupported geometry type %T", g)
	}
}
