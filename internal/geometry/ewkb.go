package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeEWKB serializes g with its SRID as little-endian EWKB.
func EncodeEWKB(g geom.T) ([]byte, error) {
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses EWKB produced by EncodeEWKB or PostGIS ST_AsEWKB.
func DecodeEWKB(data []byte) (geom.T, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: decode EWKB")
	}
	return g, nil
}

// DecodeArea parses EWKB holding a MultiPolygon.
func DecodeArea(data []byte) (*geom.MultiPolygon, error) {
	g, err := DecodeEWKB(data)
	if err != nil {
		return nil, err
	}
	mp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return nil, eris.Errorf("geometry: stored area is %s, not MultiPolygon", typeName(g))
	}
	return mp, nil
}

// DecodeLocation parses EWKB holding a Point. Empty input yields nil.
func DecodeLocation(data []byte) (*geom.Point, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := DecodeEWKB(data)
	if err != nil {
		return nil, err
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("geometry: stored location is %s, not Point", typeName(g))
	}
	return pt, nil
}
