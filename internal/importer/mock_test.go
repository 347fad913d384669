package importer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertDistrict(ctx context.Context, d *model.District) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockStore) UpsertStation(ctx context.Context, s *model.Station) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockStore) DeleteDistricts(ctx context.Context, council string) (int64, error) {
	args := m.Called(ctx, council)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteStations(ctx context.Context, council string) (int64, error) {
	args := m.Called(ctx, council)
	return args.Get(0).(int64), args.Error(1)
}

// InTx runs fn against the mock itself so upserts stay observable.
func (m *mockStore) InTx(ctx context.Context, fn func(w store.Writer) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *mockStore) ListDistricts(ctx context.Context, council string) ([]model.District, error) {
	args := m.Called(ctx, council)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.District), args.Error(1)
}

func (m *mockStore) ListStations(ctx context.Context, council string) ([]model.Station, error) {
	args := m.Called(ctx, council)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Station), args.Error(1)
}

func (m *mockStore) StartRun(ctx context.Context, council string) (*model.ImportRun, error) {
	args := m.Called(ctx, council)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImportRun), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, districts, stations int64) error {
	args := m.Called(ctx, runID, districts, stations)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, cause error) error {
	args := m.Called(ctx, runID, cause)
	return args.Error(0)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.ImportRun, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImportRun), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
