package reader

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

type featureDocument struct {
	Features *[]feature `json:"features"`
}

type feature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// geojsonReader walks the features array of an in-memory document.
type geojsonReader struct {
	path     string
	features []feature
	rec      Record
	n        int
}

func openGeoJSON(path string) (*geojsonReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: read %s", path)
	}

	var doc featureDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.NewFormatError(eris.Wrapf(err, "geojson: decode %s", path))
	}
	if doc.Features == nil {
		return nil, model.Malformed("geojson: %s has no features array", path)
	}
	return &geojsonReader{path: path, features: *doc.Features}, nil
}

func (g *geojsonReader) Next() bool {
	if g.n >= len(g.features) {
		return false
	}
	f := g.features[g.n]
	attrs := make(map[string]string, len(f.Properties))
	for k, v := range f.Properties {
		attrs[k] = stringify(v)
	}
	var raw json.RawMessage
	if len(f.Geometry) > 0 && string(f.Geometry) != "null" {
		raw = f.Geometry
	}
	g.rec = Record{Index: g.n, Source: g.path, Attrs: attrs, Geometry: raw}
	g.n++
	return true
}

func (g *geojsonReader) Record() Record { return g.rec }
func (g *geojsonReader) Err() error     { return nil }
func (g *geojsonReader) Close() error   { return nil }

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
