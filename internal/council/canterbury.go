package council

import (
	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// CanterburyMapper joins two feeds: station addresses are published on the
// district records (POLLING_PL) while the station feed carries only the
// district code (Polling_di) and a point. Addresses wait in Env.Pending
// until a station record claims them; any left over become stations
// without a location.
type CanterburyMapper struct{}

func (CanterburyMapper) MapDistrict(env *Env, rec reader.Record) (*model.District, error) {
	code, err := rec.Require("ID")
	if err != nil {
		return nil, err
	}
	name, err := rec.Require("NAME")
	if err != nil {
		return nil, err
	}
	address, err := rec.Require("POLLING_PL")
	if err != nil {
		return nil, err
	}

	area, err := districtArea(env, rec)
	if err != nil {
		return nil, err
	}
	if err := env.Pending.Put(code, address); err != nil {
		return nil, wrapRecord(err, rec)
	}

	return &model.District{
		InternalCouncilID: code,
		Name:              name + " - " + code,
		Area:              area,
		PollingStationID:  code,
	}, nil
}

func (CanterburyMapper) MapStation(env *Env, rec reader.Record) (*model.Station, error) {
	code, err := rec.Require("Polling_di")
	if err != nil {
		return nil, err
	}
	address, ok := env.Pending.Take(code)
	if !ok {
		return nil, model.Malformed("%s record %d: no district publishes an address for station code %q", rec.Source, rec.Index, code)
	}
	location, err := stationLocation(env, rec)
	if err != nil {
		return nil, err
	}
	return &model.Station{
		InternalCouncilID: code,
		Address:           address,
		Location:          location,
	}, nil
}

// Reconcile emits a location-less station for every address no station
// record claimed.
func (CanterburyMapper) Reconcile(env *Env) ([]*model.Station, error) {
	left := env.Pending.Drain()
	stations := make([]*model.Station, 0, len(left))
	for _, p := range left {
		stations = append(stations, &model.Station{
			Council:           env.Council,
			InternalCouncilID: p.Code,
			Address:           p.Address,
		})
	}
	return stations, nil
}
