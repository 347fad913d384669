package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/store"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) ListDistricts(ctx context.Context, council string) ([]model.District, error) {
	args := m.Called(ctx, council)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.District), args.Error(1)
}

func (m *mockReader) ListStations(ctx context.Context, council string) ([]model.Station, error) {
	args := m.Called(ctx, council)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Station), args.Error(1)
}

func (m *mockReader) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.ImportRun, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImportRun), args.Error(1)
}

func (m *mockReader) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type featureJSON struct {
	ID         string         `json:"id"`
	Geometry   *geometryJSON  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type featureCollection struct {
	Type     string        `json:"type"`
	Features []featureJSON `json:"features"`
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	m := &mockReader{}
	m.On("Ping", mock.Anything).Return(nil).Once()
	m.On("Ping", mock.Anything).Return(assert.AnError).Once()
	h := NewRouter(m, Options{})

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDistricts_FeatureCollection(t *testing.T) {
	area := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{{1, 51}, {1.1, 51}, {1.1, 51.1}, {1, 51}}}}).SetSRID(4326)

	m := &mockReader{}
	m.On("ListDistricts", mock.Anything, "E07000106").Return([]model.District{
		{Council: "E07000106", InternalCouncilID: "A", Name: "Adisham - A", Area: area, PollingStationID: "A"},
	}, nil)

	rec := get(t, NewRouter(m, Options{}), "/councils/E07000106/districts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "A", fc.Features[0].ID)
	require.NotNil(t, fc.Features[0].Geometry)
	assert.Equal(t, "MultiPolygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Adisham - A", fc.Features[0].Properties["name"])
}

func TestStations_NullGeometry(t *testing.T) {
	m := &mockReader{}
	m.On("ListStations", mock.Anything, "E07000106").Return([]model.Station{
		{
			Council: "E07000106", InternalCouncilID: "A", Address: "Village Hall",
			Location: geom.NewPointFlat(geom.XY, []float64{1.15, 51.25}).SetSRID(4326),
		},
		{Council: "E07000106", InternalCouncilID: "B", Address: "Church Hall"},
	}, nil)

	rec := get(t, NewRouter(m, Options{}), "/councils/E07000106/stations")
	require.Equal(t, http.StatusOK, rec.Code)

	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 2)
	require.NotNil(t, fc.Features[0].Geometry)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.JSONEq(t, `[1.15,51.25]`, string(fc.Features[0].Geometry.Coordinates))
	assert.Nil(t, fc.Features[1].Geometry)
	assert.Equal(t, "Church Hall", fc.Features[1].Properties["address"])
}

func TestStations_EmptyCouncil(t *testing.T) {
	m := &mockReader{}
	m.On("ListStations", mock.Anything, "E08000017").Return(nil, nil)

	rec := get(t, NewRouter(m, Options{}), "/councils/E08000017/stations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String())
}

func TestDistricts_StoreError(t *testing.T) {
	m := &mockReader{}
	m.On("ListDistricts", mock.Anything, "E07000106").Return(nil, assert.AnError)

	rec := get(t, NewRouter(m, Options{}), "/councils/E07000106/districts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRuns_Filters(t *testing.T) {
	started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m := &mockReader{}
	m.On("ListRuns", mock.Anything, store.RunFilter{
		Council: "E07000106",
		Status:  model.RunStatusFailed,
		Limit:   5,
	}).Return([]model.ImportRun{
		{ID: "run-1", Council: "E07000106", Status: model.RunStatusFailed, Error: "conflict", StartedAt: started},
	}, nil)

	rec := get(t, NewRouter(m, Options{}), "/councils/E07000106/runs?status=failed&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []model.ImportRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "conflict", runs[0].Error)
	m.AssertExpectations(t)
}

func TestRuns_AllCouncilsEmpty(t *testing.T) {
	m := &mockReader{}
	m.On("ListRuns", mock.Anything, store.RunFilter{}).Return(nil, nil)

	rec := get(t, NewRouter(m, Options{}), "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRuns_BadLimit(t *testing.T) {
	m := &mockReader{}
	rec := get(t, NewRouter(m, Options{}), "/runs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.AssertNotCalled(t, "ListRuns", mock.Anything, mock.Anything)
}

func TestCORS_Preflight(t *testing.T) {
	h := NewRouter(&mockReader{}, Options{AllowedOrigins: []string{"https://wheredoivote.co.uk"}})

	req := httptest.NewRequest(http.MethodOptions, "/councils/E07000106/stations", nil)
	req.Header.Set("Origin", "https://wheredoivote.co.uk")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://wheredoivote.co.uk", rec.Header().Get("Access-Control-Allow-Origin"))
}
