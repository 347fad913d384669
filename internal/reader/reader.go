// Package reader turns council source files into a one-pass sequence of raw
// records. Every format yields the same Record shape: string attributes plus
// an optional GeoJSON geometry payload.
package reader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// Format identifies a source file format.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatShapefile Format = "shp"
	FormatGeoJSON   Format = "geojson"
	FormatKML       Format = "kml"
	FormatXLSX      Format = "xlsx"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatShapefile, FormatGeoJSON, FormatKML, FormatXLSX:
		return f, nil
	case "shapefile":
		return FormatShapefile, nil
	case "json":
		return FormatGeoJSON, nil
	case "kmz":
		return FormatKML, nil
	default:
		return "", eris.Errorf("reader: unknown format %q", s)
	}
}

// Extensions lists the file extensions tried when a source name has none,
// in preference order.
func (f Format) Extensions() []string {
	switch f {
	case FormatCSV:
		return []string{".csv", ".tsv", ".txt"}
	case FormatShapefile:
		return []string{".shp"}
	case FormatGeoJSON:
		return []string{".geojson", ".json"}
	case FormatKML:
		return []string{".kml", ".kmz"}
	case FormatXLSX:
		return []string{".xlsx"}
	default:
		return nil
	}
}

// Record is one raw source row.
type Record struct {
	Index    int
	Source   string
	Attrs    map[string]string
	Geometry json.RawMessage
}

// Lookup returns the named attribute. An exact key match wins; otherwise
// the first case-insensitive match is used.
func (r Record) Lookup(name string) (string, bool) {
	if v, ok := r.Attrs[name]; ok {
		return v, true
	}
	for k, v := range r.Attrs {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Get returns the trimmed attribute value, or "" when absent.
func (r Record) Get(name string) string {
	v, _ := r.Lookup(name)
	return strings.TrimSpace(v)
}

// Require returns the trimmed attribute value or a FormatError naming the
// record when the attribute is missing.
func (r Record) Require(name string) (string, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return "", model.Malformed("%s record %d: missing attribute %q", r.Source, r.Index, name)
	}
	return strings.TrimSpace(v), nil
}

// HasGeometry reports whether the record carries a geometry payload.
func (r Record) HasGeometry() bool {
	return len(r.Geometry) > 0 && string(r.Geometry) != "null"
}

// RecordReader is a synchronous cursor over a source file. It is consumed
// once; reopen the file to read it again.
type RecordReader interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Options tunes format readers.
type Options struct {
	// Delimiter for delimited text. Defaults to ','.
	Delimiter rune
	// Sheet selects a workbook sheet by name. Defaults to the first sheet.
	Sheet string
	// TempDir receives extracted KMZ documents. Defaults to os.TempDir().
	TempDir string
}

// Open returns a reader for path in the given format.
func Open(format Format, path string, opts Options) (RecordReader, error) {
	switch format {
	case FormatCSV:
		return openCSV(path, opts)
	case FormatShapefile:
		return openShapefile(path)
	case FormatGeoJSON:
		return openGeoJSON(path)
	case FormatKML:
		if strings.EqualFold(filepath.Ext(path), ".kmz") {
			return openKMZ(path, opts)
		}
		return openKML(path)
	case FormatXLSX:
		return openXLSX(path, opts)
	default:
		return nil, eris.Errorf("reader: unknown format %q", format)
	}
}

// Resolve locates a source file named name inside dir. When name has no
// extension the format's conventional extensions are tried in order.
func Resolve(dir, name string, format Format) (string, error) {
	if filepath.Ext(name) != "" {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, nil
		}
		return "", model.NotFound("source file %s", path)
	}
	for _, ext := range format.Extensions() {
		path := filepath.Join(dir, name+ext)
		if fileExists(path) {
			return path, nil
		}
	}
	return "", model.NotFound("source file %s (tried %s)", filepath.Join(dir, name), strings.Join(format.Extensions(), ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
