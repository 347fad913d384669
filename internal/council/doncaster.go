package council

import (
	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// DoncasterMapper reads feature documents where districts carry CODE and
// stations carry POLLING_DI and ADDRESS.
type DoncasterMapper struct{}

func (DoncasterMapper) MapDistrict(env *Env, rec reader.Record) (*model.District, error) {
	code, err := rec.Require("CODE")
	if err != nil {
		return nil, err
	}
	area, err := districtArea(env, rec)
	if err != nil {
		return nil, err
	}
	return &model.District{
		InternalCouncilID: code,
		Name:              code,
		Area:              area,
		PollingStationID:  code,
	}, nil
}

func (DoncasterMapper) MapStation(env *Env, rec reader.Record) (*model.Station, error) {
	code, err := rec.Require("POLLING_DI")
	if err != nil {
		return nil, err
	}
	address, err := rec.Require("ADDRESS")
	if err != nil {
		return nil, err
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
