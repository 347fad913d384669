// Package geometry normalizes raw GeoJSON geometry payloads into the
// canonical shapes stored for districts and stations. It is the single
// place where a coordinate reference system (SRID) is attached.
package geometry

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// Kind selects the canonical shape a payload is normalized to.
type Kind int

const (
	// Area normalizes to a MultiPolygon.
	Area Kind = iota + 1
	// Location normalizes to a Point.
	Location
)

func (k Kind) String() string {
	switch k {
	case Area:
		return "area"
	case Location:
		return "location"
	default:
		return "unknown"
	}
}

// Normalize parses raw and returns the canonical geometry for kind, tagged
// with srid.
func Normalize(raw json.RawMessage, srid int, kind Kind) (geom.T, error) {
	switch kind {
	case Area:
		mp, err := NormalizeArea(raw, srid)
		if err != nil {
			return nil, err
		}
		return mp, nil
	case Location:
		pt, err := NormalizeLocation(raw, srid)
		if err != nil {
			return nil, err
		}
		return pt, nil
	default:
		return nil, model.InvalidGeometry("unknown geometry kind %d", kind)
	}
}

// NormalizeArea parses a Polygon or MultiPolygon payload. A Polygon is
// promoted to a single-member MultiPolygon.
func NormalizeArea(raw json.RawMessage, srid int) (*geom.MultiPolygon, error) {
	g, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return PromoteArea(g, srid)
}

// PromoteArea returns g as a MultiPolygon tagged with srid.
func PromoteArea(g geom.T, srid int) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		if err := validatePolygon(t); err != nil {
			return nil, err
		}
		mp := geom.NewMultiPolygon(t.Layout())
		if err := mp.Push(t); err != nil {
			return nil, model.NewGeometryError(eris.Wrap(err, "promote polygon"))
		}
		return mp.SetSRID(srid), nil
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil, model.InvalidGeometry("empty multipolygon")
		}
		for i := 0; i < t.NumPolygons(); i++ {
			if err := validatePolygon(t.Polygon(i)); err != nil {
				return nil, err
			}
		}
		return t.SetSRID(srid), nil
	default:
		return nil, model.InvalidGeometry("expected Polygon or MultiPolygon, got %s", typeName(g))
	}
}

// NormalizeLocation parses a Point payload and tags it with srid.
func NormalizeLocation(raw json.RawMessage, srid int) (*geom.Point, error) {
	g, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, model.InvalidGeometry("expected Point, got %s", typeName(g))
	}
	if len(pt.FlatCoords()) < 2 {
		return nil, model.InvalidGeometry("empty point")
	}
	return pt.SetSRID(srid), nil
}

// Decode parses a GeoJSON geometry object.
func Decode(raw json.RawMessage) (geom.T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, model.InvalidGeometry("empty payload")
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "decode geojson"))
	}
	if g == nil {
		return nil, model.InvalidGeometry("empty payload")
	}
	return g, nil
}

// Encode renders g as a GeoJSON geometry object.
func Encode(g geom.T) (json.RawMessage, error) {
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "encode geojson"))
	}
	return data, nil
}

func validatePolygon(p *geom.Polygon) error {
	if p.NumLinearRings() == 0 {
		return model.InvalidGeometry("polygon has no rings")
	}
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		n := ring.NumCoords()
		if n < 4 {
			return model.InvalidGeometry("ring %d has %d points, need at least 4", i, n)
		}
		first, last := ring.Coord(0), ring.Coord(n-1)
		if first.X() != last.X() || first.Y() != last.Y() {
			return model.InvalidGeometry("ring %d is not closed", i)
		}
	}
	return nil
}

func typeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return "unknown"
	}
}
