package reader

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/generalelection/UK-Polling-Stations/internal/geometry"
	"github.com/generalelection/UK-Polling-Stations/internal/model"
)

type kmlPlacemark struct {
	Name         string            `xml:"name"`
	Description  string            `xml:"description"`
	ExtendedData kmlExtendedData   `xml:"ExtendedData"`
	Point        *kmlPoint         `xml:"Point"`
	Polygon      *kmlPolygon       `xml:"Polygon"`
	Multi        *kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlExtendedData struct {
	Data       []kmlData       `xml:"Data"`
	SchemaData []kmlSchemaData `xml:"SchemaData"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSchemaData struct {
	SimpleData []kmlSimpleData `xml:"SimpleData"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer string   `xml:"outerBoundaryIs>LinearRing>coordinates"`
	Inner []string `xml:"innerBoundaryIs>LinearRing>coordinates"`
}

type kmlMultiGeometry struct {
	Polygons []kmlPolygon `xml:"Polygon"`
	Points   []kmlPoint   `xml:"Point"`
}

// kmlReader streams Placemark elements from a KML document.
type kmlReader struct {
	path    string
	f       *os.File
	dec     *xml.Decoder
	rec     Record
	n       int
	err     error
	cleanup func() error
}

func openKML(path string) (*kmlReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kml: open %s", path)
	}

	dec := xml.NewDecoder(f)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "kml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return &kmlReader{path: path, f: f, dec: dec}, nil
}

func (k *kmlReader) Next() bool {
	if k.err != nil {
		return false
	}
	for {
		tok, err := k.dec.Token()
		if err == io.EOF {
			return false
		}
		if err != nil {
			k.err = model.NewFormatError(eris.Wrapf(err, "kml: read %s", k.path))
			return false
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}

		var pm kmlPlacemark
		if err := k.dec.DecodeElement(&pm, &se); err != nil {
			k.err = model.NewFormatError(eris.Wrapf(err, "kml: decode placemark %d in %s", k.n, k.path))
			return false
		}

		raw, err := pm.geometry()
		if err != nil {
			k.err = eris.Wrapf(err, "kml: placemark %d in %s", k.n, k.path)
			return false
		}

		k.rec = Record{Index: k.n, Source: k.path, Attrs: pm.attributes(), Geometry: raw}
		k.n++
		return true
	}
}

func (k *kmlReader) Record() Record { return k.rec }
func (k *kmlReader) Err() error     { return k.err }

func (k *kmlReader) Close() error {
	err := k.f.Close()
	if k.cleanup != nil {
		if cerr := k.cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (pm *kmlPlacemark) attributes() map[string]string {
	attrs := map[string]string{
		"Name":        strings.TrimSpace(pm.Name),
		"Description": strings.TrimSpace(pm.Description),
	}
	for _, d := range pm.ExtendedData.Data {
		attrs[d.Name] = strings.TrimSpace(d.Value)
	}
	for _, sd := range pm.ExtendedData.SchemaData {
		for _, d := range sd.SimpleData {
			attrs[d.Name] = strings.TrimSpace(d.Value)
		}
	}
	return attrs
}

// geometry builds the placemark geometry with elevation dropped and a
// single-member MultiGeometry unwrapped.
func (pm *kmlPlacemark) geometry() (json.RawMessage, error) {
	var (
		g   geom.T
		err error
	)
	switch {
	case pm.Polygon != nil:
		g, err = buildMultiPolygon([]kmlPolygon{*pm.Polygon})
	case pm.Multi != nil && len(pm.Multi.Polygons) > 0:
		g, err = buildMultiPolygon(pm.Multi.Polygons)
	case pm.Multi != nil && len(pm.Multi.Points) > 0:
		g, err = buildMultiPoint(pm.Multi.Points)
	case pm.Point != nil:
		g, err = buildMultiPoint([]kmlPoint{*pm.Point})
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	g, err = geometry.StripZ(g)
	if err != nil {
		return nil, err
	}
	return geometry.Encode(geometry.CollapseSingle(g))
}

func buildMultiPolygon(polys []kmlPolygon) (geom.T, error) {
	var all [][][]geom.Coord
	for _, p := range polys {
		outer, err := parseCoordinates(p.Outer)
		if err != nil {
			return nil, err
		}
		rings := [][]geom.Coord{outer}
		for _, inner := range p.Inner {
			ring, err := parseCoordinates(inner)
			if err != nil {
				return nil, err
			}
			rings = append(rings, ring)
		}
		all = append(all, rings)
	}

	layout := geom.XY
	if anyZ(all) {
		layout = geom.XYZ
		padZ(all)
	}
	mp, err := geom.NewMultiPolygon(layout).SetCoords(all)
	if err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "kml: build polygon"))
	}
	return mp, nil
}

func buildMultiPoint(points []kmlPoint) (geom.T, error) {
	var coords []geom.Coord
	for _, p := range points {
		cs, err := parseCoordinates(p.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(cs) != 1 {
			return nil, model.InvalidGeometry("kml: point has %d coordinates", len(cs))
		}
		coords = append(coords, cs[0])
	}

	layout := geom.XY
	wrapped := [][][]geom.Coord{{coords}}
	if anyZ(wrapped) {
		layout = geom.XYZ
		padZ(wrapped)
	}
	mp, err := geom.NewMultiPoint(layout).SetCoords(wrapped[0][0])
	if err != nil {
		return nil, model.NewGeometryError(eris.Wrap(err, "kml: build point"))
	}
	return mp, nil
}

// parseCoordinates parses a KML coordinates string ("lon,lat[,alt] ...").
func parseCoordinates(s string) ([]geom.Coord, error) {
	tuples := strings.Fields(s)
	if len(tuples) == 0 {
		return nil, model.InvalidGeometry("kml: empty coordinates")
	}
	coords := make([]geom.Coord, 0, len(tuples))
	for _, tuple := range tuples {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, model.InvalidGeometry("kml: bad coordinate tuple %q", tuple)
		}
		c := make(geom.Coord, 0, 3)
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, model.InvalidGeometry("kml: bad coordinate tuple %q", tuple)
			}
			c = append(c, v)
		}
		coords = append(coords, c)
	}
	return coords, nil
}

func anyZ(polys [][][]geom.Coord) bool {
	for _, rings := range polys {
		for _, ring := range rings {
			for _, c := range ring {
				if len(c) == 3 {
					return true
				}
			}
		}
	}
	return false
}

func padZ(polys [][][]geom.Coord) {
	for _, rings := range polys {
		for _, ring := range rings {
			for i, c := range ring {
				if len(c) == 2 {
					ring[i] = append(c, 0)
				}
			}
		}
	}
}
