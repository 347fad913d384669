package council

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

var testDefaults = Defaults{
	SRID:          27700,
	KMLSRID:       4326,
	DistrictsName: "polling_districts",
	StationsName:  "polling_places",
	Delimiter:     ',',
}

const councilsYAML = `
councils:
  E07000061:
    mapper: fields
    districts:
      format: shp
      name: Polling_Districts
    stations:
      delimiter: tab
    fields:
      district_id: DISTRICT
      district_name: NAME
      station_id: id
      address: address
      easting: easting
      northing: northing
  E06000001:
    mapper: kml
    fields:
      station_id: id
      address: address
      postcode_in_address: true
  E08000017:
    mapper: doncaster
    srid: 27700
    districts: {format: geojson}
    stations: {format: geojson}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "councils.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsBuiltins(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "councils.yaml"), testDefaults)
	require.NoError(t, err)

	ids := []string{}
	for _, d := range r.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"E07000106", "E08000017"}, ids)

	d, err := r.Get("E07000106")
	require.NoError(t, err)
	assert.IsType(t, CanterburyMapper{}, d.Mapper)
	assert.Equal(t, "polling_districts", d.Districts.Name)
	assert.Equal(t, "polling_places", d.Stations.Name)
	assert.Equal(t, 4326, d.DistrictsSRID())
	assert.Equal(t, 4326, d.StationsSRID())
}

func TestLoad_FileDefinitions(t *testing.T) {
	r, err := Load(writeConfig(t, councilsYAML), testDefaults)
	require.NoError(t, err)
	assert.Len(t, r.All(), 4)

	d, err := r.Get("E07000061")
	require.NoError(t, err)
	assert.Equal(t, 27700, d.SRID)
	assert.Equal(t, Source{Format: reader.FormatShapefile, Name: "Polling_Districts"}, d.Districts)
	assert.Equal(t, Source{Format: reader.FormatCSV, Name: "polling_places", Delimiter: '\t'}, d.Stations)
	assert.IsType(t, &FieldMapper{}, d.Mapper)

	kml, err := r.Get("E06000001")
	require.NoError(t, err)
	assert.Equal(t, reader.FormatKML, kml.Districts.Format)
	assert.Equal(t, 4326, kml.DistrictsSRID())
	assert.Equal(t, 27700, kml.StationsSRID())
	assert.Equal(t, ',', kml.Stations.Delimiter)
	assert.IsType(t, &KMLMapper{}, kml.Mapper)

	doncaster, err := r.Get("E08000017")
	require.NoError(t, err)
	assert.Equal(t, 27700, doncaster.SRID, "file entry replaces the built-in")
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "councils: [",
		"unknown mapper": "councils:\n  X:\n    mapper: nope\n",
		"missing fields": "councils:\n  X:\n    mapper: fields\n",
		"bad format":     "councils:\n  X:\n    mapper: doncaster\n    districts: {format: gpkg}\n",
		"bad delimiter":  "councils:\n  X:\n    mapper: doncaster\n    stations: {delimiter: ';;'}\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content), testDefaults)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("E00000000")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestRegistry_RegisterReplacesInPlace(t *testing.T) {
	r := NewRegistry()
	r.Register(&Definition{ID: "A", SRID: 1})
	r.Register(&Definition{ID: "B"})
	r.Register(&Definition{ID: "A", SRID: 2})

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, 2, all[0].SRID)
}

func TestNewMapper(t *testing.T) {
	assert.Equal(t, []string{"canterbury", "doncaster", "fields", "kml"}, MapperNames())

	m, err := NewMapper("canterbury", Fields{})
	require.NoError(t, err)
	_, ok := m.(Reconciler)
	assert.True(t, ok)

	m, err = NewMapper("doncaster", Fields{})
	require.NoError(t, err)
	_, ok = m.(Reconciler)
	assert.False(t, ok)

	m, err = NewMapper("fields", Fields{})
	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ",": ',', ";": ';', "tab": '\t', `\t`: '\t', "|": '|'} {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDelimiter("ab")
	assert.Error(t, err)
}
