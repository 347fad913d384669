package council

import (
	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// KMLMapper reads districts from KML placemarks, using the placemark name as
// both id and name. Stations are mapped by the embedded FieldMapper.
type KMLMapper struct {
	*FieldMapper
}

// NewKMLMapper returns a KML district mapper with field-mapped stations.
func NewKMLMapper(f Fields) (*KMLMapper, error) {
	fm, err := NewFieldMapper(f)
	if err != nil {
		return nil, err
	}
	return &KMLMapper{FieldMapper: fm}, nil
}

func (m *KMLMapper) MapDistrict(env *Env, rec reader.Record) (*model.District, error) {
	name, err := rec.Require("Name")
	if err != nil {
		return nil, err
	}
	area, err := districtArea(env, rec)
	if err != nil {
		return nil, err
	}
	return &model.District{
		InternalCouncilID: name,
		Name:              name,
		Area:              area,
	}, nil
}
