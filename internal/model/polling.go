package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// DefaultInternalID is stored when a source record carries no identifier.
const DefaultInternalID = "none"

// District is a named polling district boundary within a council.
type District struct {
	Council           string             `json:"council"`
	InternalCouncilID string             `json:"internal_council_id"`
	Name              string             `json:"name"`
	Area              *geom.MultiPolygon `json:"-"`
	PollingStationID  string             `json:"polling_station_id,omitempty"`
}

// Station is an addressed polling place. Location is nil when the source
// carries no usable coordinate.
type Station struct {
	Council           string      `json:"council"`
	InternalCouncilID string      `json:"internal_council_id"`
	Address           string      `json:"address"`
	Postcode          string      `json:"postcode"`
	Location          *geom.Point `json:"-"`
}

// RunStatus represents the state of a council import run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ImportRun is one entry of the import log.
type ImportRun struct {
	ID          string     `json:"id"`
	Council     string     `json:"council"`
	Status      RunStatus  `json:"status"`
	Districts   int64      `json:"districts"`
	Stations    int64      `json:"stations"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
