// Package importer replaces one council's polling districts and stations
// with the contents of its published datasets.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/council"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
	"github.com/generalelection/UK-Polling-Stations/internal/store"
)

// Options configures where datasets are found.
type Options struct {
	// DataDir holds one directory per council named "{council_id}-*".
	DataDir string
	// TempDir receives extracted KMZ documents.
	TempDir string
}

// Result summarizes one council import.
type Result struct {
	RunID            string        `json:"run_id"`
	Council          string        `json:"council"`
	Dir              string        `json:"dir"`
	DistrictsDeleted int64         `json:"districts_deleted"`
	StationsDeleted  int64         `json:"stations_deleted"`
	Districts        int64         `json:"districts"`
	Stations         int64         `json:"stations"`
	Reconciled       int64         `json:"reconciled"`
	Duration         time.Duration `json:"duration"`
}

// Importer runs council imports against a store.
type Importer struct {
	store    store.Store
	registry *council.Registry
	opts     Options
}

// New creates an Importer.
func New(st store.Store, reg *council.Registry, opts Options) *Importer {
	return &Importer{store: st, registry: reg, opts: opts}
}

// Run imports the council with the given id. Existing districts and
// stations are purged first; the new entities are written in a single
// transaction, so a failed run leaves the council empty rather than
// partially imported. The outcome is recorded in the import log.
func (i *Importer) Run(ctx context.Context, councilID string) (*Result, error) {
	log := zap.L().With(zap.String("component", "importer"), zap.String("council", councilID))

	def, err := i.registry.Get(councilID)
	if err != nil {
		return nil, err
	}

	run, err := i.store.StartRun(ctx, councilID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: start run")
	}

	start := time.Now()
	result := &Result{RunID: run.ID, Council: councilID}
	if err := i.run(ctx, log, def, result); err != nil {
		if failErr := i.store.FailRun(ctx, run.ID, err); failErr != nil {
			log.Warn("importer: failed to record run failure", zap.Error(failErr))
		}
		log.Error("importer: run failed", zap.String("run_id", run.ID), zap.Error(err))
		return nil, err
	}
	result.Duration = time.Since(start)

	if err := i.store.CompleteRun(ctx, run.ID, result.Districts, result.Stations); err != nil {
		return nil, eris.Wrap(err, "importer: complete run")
	}

	log.Info("importer: run complete",
		zap.String("run_id", run.ID),
		zap.Int64("districts", result.Districts),
		zap.Int64("stations", result.Stations),
		zap.Int64("reconciled", result.Reconciled),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (i *Importer) run(ctx context.Context, log *zap.Logger, def *council.Definition, result *Result) error {
	dir, err := ResolveDir(i.opts.DataDir, def.ID)
	if err != nil {
		return err
	}
	result.Dir = dir
	log.Info("importer: resolved data directory", zap.String("dir", dir))

	if result.StationsDeleted, err = i.store.DeleteStations(ctx, def.ID); err != nil {
		return eris.Wrap(err, "importer: purge stations")
	}
	if result.DistrictsDeleted, err = i.store.DeleteDistricts(ctx, def.ID); err != nil {
		return eris.Wrap(err, "importer: purge districts")
	}
	log.Debug("importer: purged council",
		zap.Int64("districts", result.DistrictsDeleted),
		zap.Int64("stations", result.StationsDeleted),
	)

	env := council.NewEnv(def)
	stations := make(idSet)
	return i.store.InTx(ctx, func(w store.Writer) error {
		districts, err := i.importDistricts(ctx, log, w, def, env, dir)
		if err != nil {
			return err
		}
		result.Districts = districts.count()

		if err := i.importStations(ctx, log, w, def, env, dir, stations); err != nil {
			return err
		}

		if rec, ok := def.Mapper.(council.Reconciler); ok {
			if result.Reconciled, err = reconcile(ctx, w, rec, env, stations); err != nil {
				return err
			}
		}
		result.Stations = stations.count()
		return nil
	})
}

// idSet collects internal council ids. Sources may repeat an id across
// records; later records replace earlier ones, so entity counts are the
// number of distinct ids.
type idSet map[string]struct{}

func (s idSet) add(id string) { s[id] = struct{}{} }
func (s idSet) count() int64  { return int64(len(s)) }

func (i *Importer) importDistricts(ctx context.Context, log *zap.Logger, w store.Writer, def *council.Definition, env *council.Env, dir string) (idSet, error) {
	seen := make(idSet)
	err := i.each(log, def.Districts, dir, func(rec reader.Record) error {
		d, err := def.Mapper.MapDistrict(env, rec)
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		d.Council = def.ID
		if d.InternalCouncilID == "" {
			d.InternalCouncilID = model.DefaultInternalID
		}
		if err := w.UpsertDistrict(ctx, d); err != nil {
			return err
		}
		seen.add(d.InternalCouncilID)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "importer: districts")
	}
	return seen, nil
}

func (i *Importer) importStations(ctx context.Context, log *zap.Logger, w store.Writer, def *council.Definition, env *council.Env, dir string, seen idSet) error {
	err := i.each(log, def.Stations, dir, func(rec reader.Record) error {
		st, err := def.Mapper.MapStation(env, rec)
		if err != nil {
			return err
		}
		if st == nil {
			return nil
		}
		st.Council = def.ID
		if st.InternalCouncilID == "" {
			st.InternalCouncilID = model.DefaultInternalID
		}
		if err := w.UpsertStation(ctx, st); err != nil {
			return err
		}
		seen.add(st.InternalCouncilID)
		return nil
	})
	return eris.Wrap(err, "importer: stations")
}

func reconcile(ctx context.Context, w store.Writer, rec council.Reconciler, env *council.Env, seen idSet) (int64, error) {
	stations, err := rec.Reconcile(env)
	if err != nil {
		return 0, eris.Wrap(err, "importer: reconcile")
	}
	for _, st := range stations {
		if st.Council == "" {
			st.Council = env.Council
		}
		if st.InternalCouncilID == "" {
			st.InternalCouncilID = model.DefaultInternalID
		}
		if err := w.UpsertStation(ctx, st); err != nil {
			return 0, eris.Wrap(err, "importer: reconcile")
		}
		seen.add(st.InternalCouncilID)
	}
	return int64(len(stations)), nil
}

// each opens the source inside dir and calls fn for every record.
func (i *Importer) each(log *zap.Logger, src council.Source, dir string, fn func(reader.Record) error) error {
	path, err := reader.Resolve(dir, src.Name, src.Format)
	if err != nil {
		return err
	}
	rr, err := reader.Open(src.Format, path, reader.Options{
		Delimiter: src.Delimiter,
		Sheet:     src.Sheet,
		TempDir:   i.opts.TempDir,
	})
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer func() {
		if cerr := rr.Close(); cerr != nil {
			log.Warn("importer: close source", zap.String("path", path), zap.Error(cerr))
		}
	}()

	log.Debug("importer: reading source", zap.String("path", path), zap.String("format", string(src.Format)))
	for rr.Next() {
		if err := fn(rr.Record()); err != nil {
			return err
		}
	}
	return eris.Wrapf(rr.Err(), "read %s", path)
}

// ResolveDir returns the council's dataset directory: the first directory
// under dataDir, in lexical order, whose name starts with "{councilID}-".
func ResolveDir(dataDir, councilID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, councilID+"-*"))
	if err != nil {
		return "", eris.Wrapf(err, "importer: glob data directory for %s", councilID)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			return m, nil
		}
	}
	return "", model.NotFound("no data directory matching %s", filepath.Join(dataDir, councilID+"-*"))
}
