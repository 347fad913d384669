package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/db"
	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// PostgresStore implements Store on PostGIS using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying pool for bulk loaders.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// pgWriter upserts through either the pool or a transaction.
type pgWriter struct {
	q pgExecer
}

const pgUpsertDistrict = `INSERT INTO polling.districts (council_id, internal_council_id, name, area, polling_station_id, updated_at)
VALUES ($1, $2, $3, ST_GeomFromEWKB($4), $5, now())
ON CONFLICT (council_id, internal_council_id) DO UPDATE SET
	name = EXCLUDED.name,
	area = EXCLUDED.area,
	polling_station_id = EXCLUDED.polling_station_id,
	updated_at = now()`

const pgUpsertStation = `INSERT INTO polling.stations (council_id, internal_council_id, address, postcode, location, updated_at)
VALUES ($1, $2, $3, $4, ST_GeomFromEWKB($5), now())
ON CONFLICT (council_id, internal_council_id) DO UPDATE SET
	address = EXCLUDED.address,
	postcode = EXCLUDED.postcode,
	location = EXCLUDED.location,
	updated_at = now()`

func (w pgWriter) UpsertDistrict(ctx context.Context, d *model.District) error {
	area, err := encodeArea(d)
	if err != nil {
		return err
	}
	_, err = w.q.Exec(ctx, pgUpsertDistrict, d.Council, d.InternalCouncilID, d.Name, area, d.PollingStationID)
	return eris.Wrapf(err, "postgres: upsert district %s/%s", d.Council, d.InternalCouncilID)
}

func (w pgWriter) UpsertStation(ctx context.Context, st *model.Station) error {
	location, err := encodeLocation(st.Location)
	if err != nil {
		return err
	}
	_, err = w.q.Exec(ctx, pgUpsertStation, st.Council, st.InternalCouncilID, st.Address, st.Postcode, location)
	return eris.Wrapf(err, "postgres: upsert station %s/%s", st.Council, st.InternalCouncilID)
}

func (s *PostgresStore) UpsertDistrict(ctx context.Context, d *model.District) error {
	return pgWriter{q: s.pool}.UpsertDistrict(ctx, d)
}

func (s *PostgresStore) UpsertStation(ctx context.Context, st *model.Station) error {
	return pgWriter{q: s.pool}.UpsertStation(ctx, st)
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(pgWriter{q: tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

func (s *PostgresStore) DeleteDistricts(ctx context.Context, council string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM polling.districts WHERE council_id = $1`, council)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete districts for %s", council)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteStations(ctx context.Context, council string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM polling.stations WHERE council_id = $1`, council)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete stations for %s", council)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListDistricts(ctx context.Context, council string) ([]model.District, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT internal_council_id, name, ST_AsEWKB(area), polling_station_id
		FROM polling.districts WHERE council_id = $1 ORDER BY internal_council_id`, council)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list districts")
	}
	defer rows.Close()

	var out []model.District
	for rows.Next() {
		d := model.District{Council: council}
		var area []byte
		if err := rows.Scan(&d.InternalCouncilID, &d.Name, &area, &d.PollingStationID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan district")
		}
		if d.Area, err = geometry.DecodeArea(area); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list districts iterate")
}

func (s *PostgresStore) ListStations(ctx context.Context, council string) ([]model.Station, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT internal_council_id, address, postcode, ST_AsEWKB(location)
		FROM polling.stations WHERE council_id = $1 ORDER BY internal_council_id`, council)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stations")
	}
	defer rows.Close()

	var out []model.Station
	for rows.Next() {
		st := model.Station{Council: council}
		var location []byte
		if err := rows.Scan(&st.InternalCouncilID, &st.Address, &st.Postcode, &location); err != nil {
			return nil, eris.Wrap(err, "postgres: scan station")
		}
		if st.Location, err = geometry.DecodeLocation(location); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list stations iterate")
}

func (s *PostgresStore) StartRun(ctx context.Context, council string) (*model.ImportRun, error) {
	run := &model.ImportRun{
		ID:        uuid.New().String(),
		Council:   council,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO polling.import_runs (id, council_id, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Council, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: start run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, districts, stations int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE polling.import_runs SET status = $1, districts = $2, stations = $3, completed_at = $4 WHERE id = $5`,
		string(model.RunStatusComplete), districts, stations, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: complete run")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE polling.import_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errorText(cause), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: fail run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, council_id, status, districts, stations, error, started_at, completed_at FROM polling.import_runs WHERE 1=1`
	var args []any

	if filter.Council != "" {
		args = append(args, filter.Council)
		query += ` AND council_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.ImportRun, error) {
	var (
		r       model.ImportRun
		status  string
		errText *string
	)
	if err := row.Scan(&r.ID, &r.Council, &status, &r.Districts, &r.Stations, &errText, &r.StartedAt, &r.CompletedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}
