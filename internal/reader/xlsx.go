package reader

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

// xlsxReader walks the rows of one worksheet. The first row is the header.
type xlsxReader struct {
	path   string
	rows   []*xlsx.Row
	header []string
	rec    Record
	pos    int
	n      int
}

func openXLSX(path string, opts Options) (*xlsxReader, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, model.Malformed("xlsx: %s sheet %q has no header row", path, sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &xlsxReader{path: path, rows: sheet.Rows[1:], header: header}, nil
}

func (x *xlsxReader) Next() bool {
	for x.pos < len(x.rows) {
		cells := rowToStrings(x.rows[x.pos])
		x.pos++
		if blank(cells) {
			continue
		}

		attrs := make(map[string]string, len(x.header))
		for i, h := range x.header {
			if h == "" {
				continue
			}
			if i < len(cells) {
				attrs[h] = cells[i]
			} else {
				attrs[h] = ""
			}
		}
		x.rec = Record{Index: x.n, Source: x.path, Attrs: attrs}
		x.n++
		return true
	}
	return false
}

func (x *xlsxReader) Record() Record { return x.rec }
func (x *xlsxReader) Err() error     { return nil }
func (x *xlsxReader) Close() error   { return nil }

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, model.NotFound("xlsx: sheet %q", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, model.Malformed("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// blank reports whether every cell is empty; workbooks often carry
// formatted but empty trailing rows.
func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
