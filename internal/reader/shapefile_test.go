package reader

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
)

func writePolygonShapefile(t *testing.T, path string, names []string, shapes []shp.Shape) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("DISTRICT", 10),
		shp.StringField("NAME", 40),
	}))
	for i, s := range shapes {
		row := int(w.Write(s))
		require.NoError(t, w.WriteAttribute(row, 0, names[i]))
		require.NoError(t, w.WriteAttribute(row, 1, "District "+names[i]))
	}
	closeShapefile(t, w, path)
}

func square(x, y, size float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + size}, {X: x + size, Y: y + size}, {X: x + size, Y: y}, {X: x, Y: y}}
}

func polygon(rings ...[]shp.Point) *shp.Polygon {
	p := shp.Polygon(*shp.NewPolyLine(rings))
	return &p
}

func TestShapefile_PolygonsBecomeMultiPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polling_districts.shp")
	writePolygonShapefile(t, path, []string{"AA", "AB"}, []shp.Shape{
		polygon(square(0, 0, 10)),
		polygon(square(20, 0, 10), square(40, 0, 10)),
	})

	r, err := Open(FormatShapefile, path, Options{})
	require.NoError(t, err)
	recs, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "AA", recs[0].Attrs["DISTRICT"])
	assert.Equal(t, "District AA", recs[0].Attrs["NAME"])

	var probe struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(recs[0].Geometry, &probe))
	assert.Equal(t, "Polygon", probe.Type)
	require.NoError(t, json.Unmarshal(recs[1].Geometry, &probe))
	assert.Equal(t, "MultiPolygon", probe.Type)

	for _, rec := range recs {
		mp, err := geometry.NormalizeArea(rec.Geometry, 27700)
		require.NoError(t, err)
		assert.Equal(t, 27700, mp.SRID())
	}
}

func TestShapefile_Points(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polling_places.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("CODE", 10)}))
	row := int(w.Write(&shp.Point{X: 615000, Y: 157000}))
	require.NoError(t, w.WriteAttribute(row, 0, "S1"))
	closeShapefile(t, w, path)

	r, err := Open(FormatShapefile, path, Options{})
	require.NoError(t, err)
	recs, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "S1", recs[0].Attrs["CODE"])

	pt, err := geometry.NormalizeLocation(recs[0].Geometry, 27700)
	require.NoError(t, err)
	assert.Equal(t, []float64{615000, 157000}, pt.FlatCoords())
}

func TestShapefile_MultiPointStations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polling_places.shp")
	w, err := shp.Create(path, shp.MULTIPOINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("CODE", 10)}))
	pts := []shp.Point{{X: 615000, Y: 157000}, {X: 615500, Y: 157500}}
	row := int(w.Write(&shp.MultiPoint{NumPoints: int32(len(pts)), Points: pts}))
	require.NoError(t, w.WriteAttribute(row, 0, "S1"))
	closeShapefile(t, w, path)

	r, err := Open(FormatShapefile, path, Options{})
	require.NoError(t, err)
	recs, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "S1", recs[0].Attrs["CODE"])

	pt, err := geometry.NormalizeLocation(recs[0].Geometry, 27700)
	require.NoError(t, err)
	assert.Equal(t, []float64{615000, 157000}, pt.FlatCoords())
}

func TestShapefile_MissingFile(t *testing.T) {
	_, err := Open(FormatShapefile, filepath.Join(t.TempDir(), "nope.shp"), Options{})
	assert.Error(t, err)
}
