package reader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"csv":       FormatCSV,
		"SHP":       FormatShapefile,
		"shapefile": FormatShapefile,
		"geojson":   FormatGeoJSON,
		"json":      FormatGeoJSON,
		"kml":       FormatKML,
		"kmz":       FormatKML,
		" xlsx ":    FormatXLSX,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("gpkg")
	assert.Error(t, err)
}

func TestResolve_TriesConventionalExtensions(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "polling_districts.kmz", "")

	path, err := Resolve(dir, "polling_districts", FormatKML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "polling_districts.kmz"), path)
}

func TestResolve_PrefersEarlierExtension(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "polling_districts.kml", "")
	writeTestFile(t, dir, "polling_districts.kmz", "")

	path, err := Resolve(dir, "polling_districts", FormatKML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "polling_districts.kml"), path)
}

func TestResolve_ExplicitName(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "stations.tsv", "")

	path, err := Resolve(dir, "stations.tsv", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stations.tsv"), path)

	_, err = Resolve(dir, "missing.csv", FormatCSV)
	assert.True(t, model.IsNotFound(err))
}

func TestResolve_Missing(t *testing.T) {
	_, err := Resolve(t.TempDir(), "polling_places", FormatCSV)
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
	assert.Contains(t, err.Error(), ".csv, .tsv, .txt")
}

func TestRecord_Lookup(t *testing.T) {
	rec := Record{Index: 3, Source: "x.csv", Attrs: map[string]string{"POLLING_DI": " AA ", "Name": "Hall"}}

	assert.Equal(t, "AA", rec.Get("POLLING_DI"))
	assert.Equal(t, "AA", rec.Get("polling_di"))
	assert.Equal(t, "", rec.Get("absent"))

	v, err := rec.Require("name")
	require.NoError(t, err)
	assert.Equal(t, "Hall", v)

	_, err = rec.Require("ADDRESS")
	require.Error(t, err)
	assert.True(t, model.IsFormat(err))
	assert.Contains(t, err.Error(), "x.csv record 3")
}

func TestRecord_HasGeometry(t *testing.T) {
	assert.False(t, Record{}.HasGeometry())
	assert.False(t, Record{Geometry: []byte("null")}.HasGeometry())
	assert.True(t, Record{Geometry: []byte(`{"type":"Point","coordinates":[1,2]}`)}.HasGeometry())
}

func TestOpen_UnknownFormat(t *testing.T) {
	_, err := Open(Format("gpkg"), "x", Options{})
	assert.Error(t, err)
}
