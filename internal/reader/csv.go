package reader

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

type csvReader struct {
	path   string
	f      *os.File
	r      *csv.Reader
	header []string
	rec    Record
	n      int
	err    error
}

func openCSV(path string, opts Options) (*csvReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}

	r := csv.NewReader(bufio.NewReader(f))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		f.Close() //nolint:errcheck
		return nil, model.Malformed("csv: %s has no header row", path)
	}
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, model.NewFormatError(eris.Wrapf(err, "csv: read header of %s", path))
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return &csvReader{path: path, f: f, r: r, header: header}, nil
}

func (c *csvReader) Next() bool {
	if c.err != nil {
		return false
	}
	row, err := c.r.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		c.err = model.NewFormatError(eris.Wrapf(err, "csv: read %s", c.path))
		return false
	}

	attrs := make(map[string]string, len(c.header))
	for i, h := range c.header {
		if i < len(row) {
			attrs[h] = row[i]
		} else {
			attrs[h] = ""
		}
	}
	c.rec = Record{Index: c.n, Source: c.path, Attrs: attrs}
	c.n++
	return true
}

func (c *csvReader) Record() Record { return c.rec }
func (c *csvReader) Err() error     { return c.err }
func (c *csvReader) Close() error   { return c.f.Close() }
