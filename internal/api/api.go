// Package api serves imported districts, stations and the import log over
// HTTP as JSON and GeoJSON.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/store"
)

// Reader is the read side of the store used by the API.
type Reader interface {
	ListDistricts(ctx context.Context, council string) ([]model.District, error)
	ListStations(ctx context.Context, council string) ([]model.Station, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.ImportRun, error)
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	// AllowedOrigins for CORS. Defaults to any origin.
	AllowedOrigins []string
}

type server struct {
	store Reader
	log   *zap.Logger
}

// NewRouter returns the API handler.
func NewRouter(st Reader, opts Options) http.Handler {
	s := &server{
		store: st,
		log:   zap.L().With(zap.String("component", "api")),
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/councils/{council}", func(r chi.Router) {
		r.Get("/districts", s.districts)
		r.Get("/stations", s.stations)
		r.Get("/runs", s.councilRuns)
	})
	r.Get("/runs", s.runs)
	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) districts(w http.ResponseWriter, r *http.Request) {
	council := chi.URLParam(r, "council")
	districts, err := s.store.ListDistricts(r.Context(), council)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(districts))}
	for _, d := range districts {
		f := &geojson.Feature{
			ID: d.InternalCouncilID,
			Properties: map[string]any{
				"council":             d.Council,
				"internal_council_id": d.InternalCouncilID,
				"name":                d.Name,
				"polling_station_id":  d.PollingStationID,
			},
		}
		if d.Area != nil {
			f.Geometry = d.Area
		}
		fc.Features = append(fc.Features, f)
	}
	writeGeoJSON(w, fc)
}

func (s *server) stations(w http.ResponseWriter, r *http.Request) {
	council := chi.URLParam(r, "council")
	stations, err := s.store.ListStations(r.Context(), council)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(stations))}
	for _, st := range stations {
		f := &geojson.Feature{
			ID: st.InternalCouncilID,
			Properties: map[string]any{
				"council":             st.Council,
				"internal_council_id": st.InternalCouncilID,
				"address":             st.Address,
				"postcode":            st.Postcode,
			},
		}
		// Unlocated stations encode with a null geometry.
		if st.Location != nil {
			f.Geometry = st.Location
		}
		fc.Features = append(fc.Features, f)
	}
	writeGeoJSON(w, fc)
}

func (s *server) councilRuns(w http.ResponseWriter, r *http.Request) {
	s.listRuns(w, r, chi.URLParam(r, "council"))
}

func (s *server) runs(w http.ResponseWriter, r *http.Request) {
	s.listRuns(w, r, r.URL.Query().Get("council"))
}

func (s *server) listRuns(w http.ResponseWriter, r *http.Request, council string) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Council: council,
		Status:  model.RunStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.ImportRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if model.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("api: request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fc) //nolint:errcheck
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
