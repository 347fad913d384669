package store

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID keys the advisory lock held while migrating.
const migrationLockID = 27700106

const (
	pgMigrationTable = `CREATE SCHEMA IF NOT EXISTS polling;
CREATE TABLE IF NOT EXISTS polling.schema_migrations (
	filename   TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	pgAppliedMigrations = `SELECT filename FROM polling.schema_migrations`
	pgRecordMigration   = `INSERT INTO polling.schema_migrations (filename) VALUES ($1)`
)

type migration struct {
	name string
	sql  string
}

// loadMigrations returns the embedded scripts ordered by file name.
func loadMigrations() ([]migration, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list migrations")
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: read migration %s", name)
		}
		out = append(out, migration{name: path.Base(name), sql: string(data)})
	}
	return out, nil
}

// migrate applies every embedded script not yet listed in
// polling.schema_migrations. Each script and its bookkeeping row commit
// together. Concurrent migrators serialize on an advisory lock.
func migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "store.migrate"))

	all, err := loadMigrations()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			log.Warn("release migration lock", zap.Error(err))
		}
	}()

	if _, err := pool.Exec(ctx, pgMigrationTable); err != nil {
		return eris.Wrap(err, "postgres: create migration table")
	}

	done, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range all {
		if done[m.name] {
			continue
		}
		log.Info("applying migration", zap.String("file", m.name))
		if err := applyMigration(ctx, pool, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool db.Pool, m migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin migration %s", m.name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return eris.Wrapf(err, "postgres: apply migration %s", m.name)
	}
	if _, err := tx.Exec(ctx, pgRecordMigration, m.name); err != nil {
		return eris.Wrapf(err, "postgres: record migration %s", m.name)
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit migration %s", m.name)
}

func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, pgAppliedMigrations)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list applied migrations")
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration")
		}
		done[name] = true
	}
	return done, eris.Wrap(rows.Err(), "postgres: list applied migrations")
}
