// Package council describes how each council's published datasets map onto
// polling districts and stations. A Definition pairs the source files for
// each entity kind with the Mapper that interprets their records.
package council

import (
	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// Source locates one dataset inside a council's data directory.
type Source struct {
	Format reader.Format
	// Name is the file name, with or without extension.
	Name string
	// SRID overrides the council SRID for this source when non-zero.
	SRID      int
	Delimiter rune
	Sheet     string
}

// Definition is the import recipe for one council.
type Definition struct {
	ID        string
	SRID      int
	Districts Source
	Stations  Source
	Mapper    Mapper
}

// DistrictsSRID is the SRID attached to district areas.
func (d *Definition) DistrictsSRID() int {
	if d.Districts.SRID != 0 {
		return d.Districts.SRID
	}
	return d.SRID
}

// StationsSRID is the SRID attached to station locations.
func (d *Definition) StationsSRID() int {
	if d.Stations.SRID != 0 {
		return d.Stations.SRID
	}
	return d.SRID
}

// Env is the per-run scope shared by a council's mapper calls.
type Env struct {
	Council       string
	DistrictsSRID int
	StationsSRID  int
	Pending       *Pending
}

// NewEnv returns a fresh scope for one import run of def.
func NewEnv(def *Definition) *Env {
	return &Env{
		Council:       def.ID,
		DistrictsSRID: def.DistrictsSRID(),
		StationsSRID:  def.StationsSRID(),
		Pending:       NewPending(),
	}
}

// Mapper converts raw records into entities. A nil entity with a nil error
// means the record is skipped.
type Mapper interface {
	MapDistrict(env *Env, rec reader.Record) (*model.District, error)
	MapStation(env *Env, rec reader.Record) (*model.Station, error)
}

// Reconciler is implemented by mappers that emit extra stations once both
// datasets have been read.
type Reconciler interface {
	Reconcile(env *Env) ([]*model.Station, error)
}
