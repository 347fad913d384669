// Package store persists polling districts, stations and the import log.
package store

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// RunFilter specifies criteria for listing import runs.
type RunFilter struct {
	Council string          `json:"council,omitempty"`
	Status  model.RunStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Writer creates or replaces entities keyed by (council, internal_council_id).
type Writer interface {
	UpsertDistrict(ctx context.Context, d *model.District) error
	UpsertStation(ctx context.Context, s *model.Station) error
}

// Store defines the persistence interface for council imports.
type Store interface {
	Writer

	// Bulk delete, returning the number of rows removed.
	DeleteDistricts(ctx context.Context, council string) (int64, error)
	DeleteStations(ctx context.Context, council string) (int64, error)

	// InTx runs fn with a Writer bound to one transaction, committing when fn
	// returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(w Writer) error) error

	ListDistricts(ctx context.Context, council string) ([]model.District, error)
	ListStations(ctx context.Context, council string) ([]model.Station, error)

	// Import log
	StartRun(ctx context.Context, council string) (*model.ImportRun, error)
	CompleteRun(ctx context.Context, runID string, districts, stations int64) error
	FailRun(ctx context.Context, runID string, cause error) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultRunLimit = 100

func encodeArea(d *model.District) ([]byte, error) {
	if d.Area == nil {
		return nil, eris.Errorf("store: district %s/%s has no area", d.Council, d.InternalCouncilID)
	}
	return geometry.EncodeEWKB(d.Area)
}

func encodeLocation(pt *geom.Point) ([]byte, error) {
	if pt == nil {
		return nil, nil
	}
	return geometry.EncodeEWKB(pt)
}

func errorText(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}
