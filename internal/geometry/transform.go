package geometry

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// StripZ drops elevation (and measure) ordinates, returning a 2D geometry
// with the same SRID. 2D input is returned unchanged.
func StripZ(g geom.T) (geom.T, error) {
	if g == nil || g.Layout() == geom.XY {
		return g, nil
	}
	stride := g.Stride()
	flat := dropOrdinates(g.FlatCoords(), stride)

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(geom.XY, flat).SetSRID(t.SRID()), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(geom.XY, flat).SetSRID(t.SRID()), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(geom.XY, flat).SetSRID(t.SRID()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(geom.XY, flat, rescaleEnds(t.Ends(), stride)).SetSRID(t.SRID()), nil
	case *geom.MultiPolygon:
		endss := make([][]int, 0, len(t.Endss()))
		for _, ends := range t.Endss() {
			endss = append(endss, rescaleEnds(ends, stride))
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss).SetSRID(t.SRID()), nil
	default:
		return nil, model.InvalidGeometry("cannot strip elevation from %s", typeName(g))
	}
}

// CollapseSingle unwraps a collection holding exactly one member, so a
// one-polygon MultiGeometry becomes a Polygon.
func CollapseSingle(g geom.T) geom.T {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		if t.NumPolygons() == 1 {
			return t.Polygon(0).SetSRID(t.SRID())
		}
	case *geom.MultiPoint:
		if t.NumPoints() == 1 {
			return t.Point(0).SetSRID(t.SRID())
		}
	case *geom.GeometryCollection:
		if t.NumGeoms() == 1 {
			return CollapseSingle(t.Geom(0))
		}
	}
	return g
}

// CollapseMultiPoint rewrites a one-element MultiPoint payload as a Point
// payload. Any other payload is returned unchanged.
func CollapseMultiPoint(raw json.RawMessage) (json.RawMessage, error) {
	var probe struct {
		Type        string            `json:"type"`
		Coordinates []json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "probe geometry type"))
	}
	if probe.Type != "MultiPoint" || len(probe.Coordinates) != 1 {
		return raw, nil
	}
	out, err := json.Marshal(struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}{Type: "Point", Coordinates: probe.Coordinates[0]})
	if err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "collapse multipoint"))
	}
	return out, nil
}

// PointXY builds a 2D point tagged with srid.
func PointXY(x, y float64, srid int) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(srid)
}

func dropOrdinates(flat []float64, stride int) []float64 {
	out := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, flat[i], flat[i+1])
	}
	return out
}

func rescaleEnds(ends []int, stride int) []int {
	out := make([]int, len(ends))
	for i, e := range ends {
		out[i] = e / stride * 2
	}
	return out
}
