package geometry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

const square = `[[0,0],[0,10],[10,10],[10,0],[0,0]]`

func TestNormalizeArea_PromotesPolygon(t *testing.T) {
	raw := json.RawMessage(`{"type":"Polygon","coordinates":[` + square + `]}`)

	mp, err := NormalizeArea(raw, 27700)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 27700, mp.SRID())
	assert.Equal(t, geom.XY, mp.Layout())
	assert.Equal(t, 5, mp.Polygon(0).LinearRing(0).NumCoords())
}

func TestNormalizeArea_MultiPolygonPassesThrough(t *testing.T) {
	raw := json.RawMessage(`{"type":"MultiPolygon","coordinates":[[` + square + `],[[[20,20],[20,30],[30,30],[20,20]]]]}`)

	mp, err := NormalizeArea(raw, 4326)
	require.NoError(t, err)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())
}

func TestNormalizeArea_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"null", `null`},
		{"not json", `{"type":`},
		{"point", `{"type":"Point","coordinates":[1,2]}`},
		{"short ring", `{"type":"Polygon","coordinates":[[[0,0],[1,1],[0,0]]]}`},
		{"open ring", `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0]]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeArea(json.RawMessage(tt.raw), 27700)
			require.Error(t, err)
			assert.True(t, model.IsGeometry(err), "want GeometryError, got %v", err)
		})
	}
}

func TestNormalizeLocation(t *testing.T) {
	pt, err := NormalizeLocation(json.RawMessage(`{"type":"Point","coordinates":[1.08,51.28]}`), 4326)
	require.NoError(t, err)
	assert.Equal(t, 4326, pt.SRID())
	assert.InDelta(t, 1.08, pt.X(), 1e-9)
	assert.InDelta(t, 51.28, pt.Y(), 1e-9)

	_, err = NormalizeLocation(json.RawMessage(`{"type":"Polygon","coordinates":[`+square+`]}`), 4326)
	assert.True(t, model.IsGeometry(err))
}

func TestNormalize_DispatchesOnKind(t *testing.T) {
	g, err := Normalize(json.RawMessage(`{"type":"Polygon","coordinates":[`+square+`]}`), 27700, Area)
	require.NoError(t, err)
	assert.IsType(t, &geom.MultiPolygon{}, g)

	g, err = Normalize(json.RawMessage(`{"type":"Point","coordinates":[1,2]}`), 27700, Location)
	require.NoError(t, err)
	assert.IsType(t, &geom.Point{}, g)

	g, err = Normalize(json.RawMessage(`{"type":"Point","coordinates":[1,2]}`), 27700, Area)
	assert.Nil(t, g)
	assert.True(t, model.IsGeometry(err))

	_, err = Normalize(json.RawMessage(`{"type":"Point","coordinates":[1,2]}`), 27700, Kind(99))
	assert.True(t, model.IsGeometry(err))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "area", Area.String())
	assert.Equal(t, "location", Location.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestEncode_RoundTripsThroughNormalize(t *testing.T) {
	p, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}})
	require.NoError(t, err)

	raw, err := Encode(p)
	require.NoError(t, err)

	mp, err := NormalizeArea(raw, 27700)
	require.NoError(t, err)
	assert.Equal(t, p.FlatCoords(), mp.FlatCoords())
}
