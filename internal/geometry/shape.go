package geometry

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// FromShape converts a shapefile shape to an untagged 2D geometry. Polygon
// parts are grouped by ring orientation: clockwise rings start a new polygon
// and counter-clockwise rings are holes of the polygon before them. A single
// outer ring yields a Polygon, several yield a MultiPolygon. Null shapes
// return nil, nil. Multipoint shapes yield their first point, or nil when
// they hold none.
func FromShape(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return flatPoint(s.X, s.Y), nil
	case *shp.PointZ:
		return flatPoint(s.X, s.Y), nil
	case *shp.PointM:
		return flatPoint(s.X, s.Y), nil
	case *shp.MultiPoint:
		return firstPoint(s.Points), nil
	case *shp.MultiPointZ:
		return firstPoint(s.Points), nil
	case *shp.MultiPointM:
		return firstPoint(s.Points), nil
	case *shp.Polygon:
		return polygonFromParts(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygonFromParts(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygonFromParts(s.Parts, s.Points)
	default:
		return nil, model.InvalidGeometry("unsupported shape type %T", shape)
	}
}

func flatPoint(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

func firstPoint(points []shp.Point) geom.T {
	if len(points) == 0 {
		return nil
	}
	return flatPoint(points[0].X, points[0].Y)
}

func polygonFromParts(parts []int32, points []shp.Point) (geom.T, error) {
	if len(parts) == 0 || len(points) == 0 {
		return nil, model.InvalidGeometry("empty polygon shape")
	}

	var polys [][][]geom.Coord
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if start < 0 || start >= end || end > len(points) {
			return nil, model.InvalidGeometry("malformed polygon part %d", i)
		}

		ring := make([]geom.Coord, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}

		if len(polys) == 0 || signedArea(ring) <= 0 {
			polys = append(polys, [][]geom.Coord{ring})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}

	if len(polys) == 1 {
		p, err := geom.NewPolygon(geom.XY).SetCoords(polys[0])
		if err != nil {
			return nil, model.NewGeometryError(eris.Wrap(err, "build polygon"))
		}
		return p, nil
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "build multipolygon"))
	}
	return mp, nil
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
