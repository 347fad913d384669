package council

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// Fields names the source attributes read by FieldMapper.
type Fields struct {
	DistrictID      string `yaml:"district_id"`
	DistrictName    string `yaml:"district_name"`
	DistrictStation string `yaml:"district_station"`
	StationID       string `yaml:"station_id"`
	Address         string `yaml:"address"`
	Postcode        string `yaml:"postcode"`
	Easting         string `yaml:"easting"`
	Northing        string `yaml:"northing"`
	// PostcodeInAddress splits the postcode off the last comma-separated
	// part of Address instead of reading Postcode.
	PostcodeInAddress bool `yaml:"postcode_in_address"`
}

// FieldMapper maps records by configured attribute names. It serves the
// common case of a shapefile or document of districts plus a table of
// stations.
type FieldMapper struct {
	fields Fields
}

// NewFieldMapper validates f and returns a mapper for it.
func NewFieldMapper(f Fields) (*FieldMapper, error) {
	if f.StationID == "" {
		return nil, eris.New("council: fields mapper requires station_id")
	}
	if (f.Easting == "") != (f.Northing == "") {
		return nil, eris.New("council: easting and northing must be configured together")
	}
	return &FieldMapper{fields: f}, nil
}

func (m *FieldMapper) MapDistrict(env *Env, rec reader.Record) (*model.District, error) {
	var id string
	if m.fields.DistrictID != "" {
		v, err := rec.Require(m.fields.DistrictID)
		if err != nil {
			return nil, err
		}
		id = v
	}

	name := id
	if m.fields.DistrictName != "" {
		if v := rec.Get(m.fields.DistrictName); v != "" {
			name = v
		}
	}

	area, err := districtArea(env, rec)
	if err != nil {
		return nil, err
	}

	d := &model.District{
		InternalCouncilID: id,
		Name:              CleanText(name),
		Area:              area,
	}
	if m.fields.DistrictStation != "" {
		d.PollingStationID = rec.Get(m.fields.DistrictStation)
	}
	return d, nil
}

func (m *FieldMapper) MapStation(env *Env, rec reader.Record) (*model.Station, error) {
	id, err := rec.Require(m.fields.StationID)
	if err != nil {
		return nil, err
	}
	address := rec.Get(m.fields.Address)
	if id == "" && address == "" {
		return nil, nil
	}

	postcode := rec.Get(m.fields.Postcode)
	if m.fields.PostcodeInAddress {
		postcode = PostcodeFromAddress(address)
		address = NewlineAddress(address)
	}

	location, err := m.location(env, rec)
	if err != nil {
		return nil, err
	}

	return &model.Station{
		InternalCouncilID: id,
		Address:           CleanText(address),
		Postcode:          postcode,
		Location:          location,
	}, nil
}

// location prefers the record geometry and falls back to easting/northing
// attributes.
func (m *FieldMapper) location(env *Env, rec reader.Record) (*geom.Point, error) {
	if rec.HasGeometry() {
		return stationLocation(env, rec)
	}
	if m.fields.Easting == "" {
		return nil, nil
	}

	e, n := rec.Get(m.fields.Easting), rec.Get(m.fields.Northing)
	if e == "" || n == "" {
		return nil, nil
	}
	x, err := strconv.ParseFloat(e, 64)
	if err != nil {
		return nil, model.Malformed("%s record %d: bad easting %q", rec.Source, rec.Index, e)
	}
	y, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return nil, model.Malformed("%s record %d: bad northing %q", rec.Source, rec.Index, n)
	}
	return geometry.PointXY(x, y, env.StationsSRID), nil
}

func districtArea(env *Env, rec reader.Record) (*geom.MultiPolygon, error) {
	if !rec.HasGeometry() {
		return nil, model.InvalidGeometry("%s record %d: district has no geometry", rec.Source, rec.Index)
	}
	area, err := geometry.NormalizeArea(rec.Geometry, env.DistrictsSRID)
	if err != nil {
		return nil, wrapRecord(err, rec)
	}
	return area, nil
}

// stationLocation normalizes the record geometry, accepting a MultiPoint
// that holds a single point. Records without geometry have no location.
func stationLocation(env *Env, rec reader.Record) (*geom.Point, error) {
	if !rec.HasGeometry() {
		return nil, nil
	}
	raw, err := geometry.CollapseMultiPoint(rec.Geometry)
	if err != nil {
		return nil, wrapRecord(err, rec)
	}
	pt, err := geometry.NormalizeLocation(raw, env.StationsSRID)
	if err != nil {
		return nil, wrapRecord(err, rec)
	}
	return pt, nil
}

func wrapRecord(err error, rec reader.Record) error {
	return eris.Wrapf(err, "%s record %d", rec.Source, rec.Index)
}
