package reader

import (
	"encoding/json"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

type shapefileReader struct {
	path   string
	r      *shp.Reader
	fields []string
	rec    Record
	n      int
	err    error
}

func openShapefile(path string) (*shapefileReader, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}
	return &shapefileReader{path: path, r: r, fields: names}, nil
}

func (s *shapefileReader) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.r.Next() {
		if err := s.r.Err(); err != nil {
			s.err = model.NewFormatError(eris.Wrapf(err, "shapefile: read %s", s.path))
		}
		return false
	}

	_, shape := s.r.Shape()
	attrs := make(map[string]string, len(s.fields))
	for i, name := range s.fields {
		attrs[name] = strings.TrimSpace(strings.TrimRight(s.r.Attribute(i), "\x00"))
	}

	var raw json.RawMessage
	g, err := geometry.FromShape(shape)
	if err != nil {
		s.err = eris.Wrapf(err, "shapefile: %s record %d", s.path, s.n)
		return false
	}
	if g != nil {
		raw, err = geometry.Encode(g)
		if err != nil {
			s.err = eris.Wrapf(err, "shapefile: %s record %d", s.path, s.n)
			return false
		}
	}

	s.rec = Record{Index: s.n, Source: s.path, Attrs: attrs, Geometry: raw}
	s.n++
	return true
}

func (s *shapefileReader) Record() Record { return s.rec }
func (s *shapefileReader) Err() error     { return s.err }
func (s *shapefileReader) Close() error   { return s.r.Close() }
