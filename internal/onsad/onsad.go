// Package onsad bulk loads the ONS Address Directory reference table.
package onsad

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/db"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// Columns is the fixed column order of every ONSAD file.
var Columns = []string{
	"uprn", "cty", "lad", "ward", "hlthau", "ctry",
	"rgn", "pcon", "eer", "ttwa", "nuts", "park", "oa11", "lsoa11", "msoa11", "parish",
	"wz11", "ccg", "bua11", "buasd11", "ruc11", "oac11", "lep1", "lep2", "pfa", "imd",
}

const (
	DefaultTable     = "addressbase_onsad"
	DefaultPattern   = "onsad_*.csv"
	defaultBatchSize = 50000
)

// Options configures a Loader.
type Options struct {
	Table     string
	Pattern   string
	BatchSize int
	// OnBatch is called after each COPY batch with the file being loaded
	// and the rows it added.
	OnBatch func(path string, rows int64)
}

// Result summarizes a load.
type Result struct {
	Files []string `json:"files"`
	Rows  int64    `json:"rows"`
}

// Loader replaces the ONSAD table with the CSV files found in a directory.
type Loader struct {
	pool db.Pool
	opts Options
}

// NewLoader creates a Loader, filling unset options with defaults.
func NewLoader(pool db.Pool, opts Options) *Loader {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Loader{pool: pool, opts: opts}
}

// Files lists the files in dir matching the loader pattern, sorted.
func (l *Loader) Files(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, l.opts.Pattern))
	if err != nil {
		return nil, eris.Wrapf(err, "onsad: glob %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// Load truncates the table and copies every matching file in dir into it.
// The table is left untouched when dir holds no matching files.
func (l *Loader) Load(ctx context.Context, dir string) (*Result, error) {
	log := zap.L().With(zap.String("component", "onsad"), zap.String("table", l.opts.Table))

	files, err := l.Files(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, model.NotFound("onsad: no files matching %s", filepath.Join(dir, l.opts.Pattern))
	}

	log.Info("onsad: clearing existing data")
	if err := db.Truncate(ctx, l.pool, l.opts.Table); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, path := range files {
		n, err := l.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
		res.Rows += n
		log.Info("onsad: loaded file", zap.String("path", path), zap.Int64("rows", n))
	}
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "onsad: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, model.NewFormatError(eris.Wrapf(err, "onsad: %s header", path))
	}

	var (
		total int64
		batch = make([][]any, 0, l.opts.BatchSize)
	)
	flush := func() error {
		n, err := db.CopyFrom(ctx, l.pool, l.opts.Table, Columns, batch)
		if err != nil {
			return eris.Wrapf(err, "onsad: load %s", path)
		}
		total += n
		if l.opts.OnBatch != nil {
			l.opts.OnBatch(path, n)
		}
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, model.NewFormatError(eris.Wrapf(err, "onsad: read %s", path))
		}
		line, _ := r.FieldPos(0)
		row, err := toRow(rec)
		if err != nil {
			return total, model.Malformed("onsad: %s line %d: %v", path, line, err)
		}
		batch = append(batch, row)
		if len(batch) >= l.opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}

// toRow converts one CSV record to COPY values. Empty fields load as NULL.
func toRow(rec []string) ([]any, error) {
	if len(rec) != len(Columns) {
		return nil, eris.Errorf("expected %d columns, got %d", len(Columns), len(rec))
	}
	row := make([]any, len(rec))
	for i, v := range rec {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		row[i] = v
	}
	return row, nil
}
