package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Geometries are
// stored as EWKB blobs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS districts (
	council_id          TEXT NOT NULL,
	internal_council_id TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	area                BLOB NOT NULL,
	polling_station_id  TEXT NOT NULL DEFAULT '',
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (council_id, internal_council_id)
);

CREATE TABLE IF NOT EXISTS stations (
	council_id          TEXT NOT NULL,
	internal_council_id TEXT NOT NULL,
	address             TEXT NOT NULL DEFAULT '',
	postcode            TEXT NOT NULL DEFAULT '',
	location            BLOB,
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (council_id, internal_council_id)
);

CREATE TABLE IF NOT EXISTS import_runs (
	id           TEXT PRIMARY KEY,
	council_id   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	districts    INTEGER NOT NULL DEFAULT 0,
	stations     INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_import_runs_council ON import_runs(council_id);
CREATE INDEX IF NOT EXISTS idx_import_runs_status ON import_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqlWriter upserts through either the database handle or a transaction.
type sqlWriter struct {
	q sqlExecer
}

const sqliteUpsertDistrict = `INSERT INTO districts (council_id, internal_council_id, name, area, polling_station_id, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(council_id, internal_council_id) DO UPDATE SET
	name = excluded.name,
	area = excluded.area,
	polling_station_id = excluded.polling_station_id,
	updated_at = excluded.updated_at`

const sqliteUpsertStation = `INSERT INTO stations (council_id, internal_council_id, address, postcode, location, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(council_id, internal_council_id) DO UPDATE SET
	address = excluded.address,
	postcode = excluded.postcode,
	location = excluded.location,
	updated_at = excluded.updated_at`

func (w sqlWriter) UpsertDistrict(ctx context.Context, d *model.District) error {
	area, err := encodeArea(d)
	if err != nil {
		return err
	}
	_, err = w.q.ExecContext(ctx, sqliteUpsertDistrict,
		d.Council, d.InternalCouncilID, d.Name, area, d.PollingStationID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert district %s/%s", d.Council, d.InternalCouncilID)
}

func (w sqlWriter) UpsertStation(ctx context.Context, st *model.Station) error {
	location, err := encodeLocation(st.Location)
	if err != nil {
		return err
	}
	_, err = w.q.ExecContext(ctx, sqliteUpsertStation,
		st.Council, st.InternalCouncilID, st.Address, st.Postcode, location, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert station %s/%s", st.Council, st.InternalCouncilID)
}

func (s *SQLiteStore) UpsertDistrict(ctx context.Context, d *model.District) error {
	return sqlWriter{q: s.db}.UpsertDistrict(ctx, d)
}

func (s *SQLiteStore) UpsertStation(ctx context.Context, st *model.Station) error {
	return sqlWriter{q: s.db}.UpsertStation(ctx, st)
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(sqlWriter{q: tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) DeleteDistricts(ctx context.Context, council string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM districts WHERE council_id = ?`, council)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete districts for %s", council)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) DeleteStations(ctx context.Context, council string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stations WHERE council_id = ?`, council)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete stations for %s", council)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ListDistricts(ctx context.Context, council string) ([]model.District, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT internal_council_id, name, area, polling_station_id
		FROM districts WHERE council_id = ? ORDER BY internal_council_id`, council)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list districts")
	}
	defer rows.Close()

	var out []model.District
	for rows.Next() {
		d := model.District{Council: council}
		var area []byte
		if err := rows.Scan(&d.InternalCouncilID, &d.Name, &area, &d.PollingStationID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan district")
		}
		if d.Area, err = geometry.DecodeArea(area); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list districts iterate")
}

func (s *SQLiteStore) ListStations(ctx context.Context, council string) ([]model.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT internal_council_id, address, postcode, location
		FROM stations WHERE council_id = ? ORDER BY internal_council_id`, council)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stations")
	}
	defer rows.Close()

	var out []model.Station
	for rows.Next() {
		st := model.Station{Council: council}
		var location []byte
		if err := rows.Scan(&st.InternalCouncilID, &st.Address, &st.Postcode, &location); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan station")
		}
		if st.Location, err = geometry.DecodeLocation(location); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list stations iterate")
}

func (s *SQLiteStore) StartRun(ctx context.Context, council string) (*model.ImportRun, error) {
	run := &model.ImportRun{
		ID:        uuid.New().String(),
		Council:   council,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, council_id, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Council, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: start run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, districts, stations int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = ?, districts = ?, stations = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), districts, stations, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errorText(cause), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, council_id, status, districts, stations, error, started_at, completed_at FROM import_runs WHERE 1=1`
	var args []any

	if filter.Council != "" {
		query += ` AND council_id = ?`
		args = append(args, filter.Council)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return model.NotFound("%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.ImportRun, error) {
	var (
		r         model.ImportRun
		status    string
		errText   sql.NullString
		completed sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Council, &status, &r.Districts, &r.Stations, &errText, &r.StartedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	r.Error = errText.String
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
