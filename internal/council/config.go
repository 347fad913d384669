package council

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// Defaults fill unset definition fields.
type Defaults struct {
	SRID          int
	KMLSRID       int
	DistrictsName string
	StationsName  string
	Delimiter     rune
}

// Apply fills the zero-valued fields of d.
func (df Defaults) Apply(d *Definition) {
	if d.SRID == 0 {
		d.SRID = df.SRID
	}
	applySource(&d.Districts, df.DistrictsName, df)
	applySource(&d.Stations, df.StationsName, df)
}

func applySource(s *Source, name string, df Defaults) {
	if s.Name == "" {
		s.Name = name
	}
	if s.Format == reader.FormatKML && s.SRID == 0 {
		s.SRID = df.KMLSRID
	}
	if s.Format == reader.FormatCSV && s.Delimiter == 0 {
		s.Delimiter = df.Delimiter
	}
}

type fileConfig struct {
	Councils map[string]definitionConfig `yaml:"councils"`
}

type definitionConfig struct {
	SRID      int          `yaml:"srid"`
	Mapper    string       `yaml:"mapper"`
	Districts sourceConfig `yaml:"districts"`
	Stations  sourceConfig `yaml:"stations"`
	Fields    Fields       `yaml:"fields"`
}

type sourceConfig struct {
	Format    string `yaml:"format"`
	Name      string `yaml:"name"`
	SRID      int    `yaml:"srid"`
	Delimiter string `yaml:"delimiter"`
	Sheet     string `yaml:"sheet"`
}

// Load returns the built-in registry extended with the councils defined in
// the YAML file at path. A missing file yields the built-ins alone; file
// entries replace built-ins with the same id.
func Load(path string, defaults Defaults) (*Registry, error) {
	r := Builtin(defaults)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "council: read config %s", path)
	}

	defs, err := parseDefinitions(data, defaults)
	if err != nil {
		return nil, eris.Wrapf(err, "council: parse config %s", path)
	}
	for _, d := range defs {
		r.Register(d)
	}
	return r, nil
}

func parseDefinitions(data []byte, defaults Defaults) ([]*Definition, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrap(err, "council: decode yaml")
	}

	ids := make([]string, 0, len(cfg.Councils))
	for id := range cfg.Councils {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	defs := make([]*Definition, 0, len(ids))
	for _, id := range ids {
		d, err := cfg.Councils[id].definition(id)
		if err != nil {
			return nil, err
		}
		defaults.Apply(d)
		defs = append(defs, d)
	}
	return defs, nil
}

func (c definitionConfig) definition(id string) (*Definition, error) {
	mapperName := c.Mapper
	if mapperName == "" {
		mapperName = "fields"
	}
	mapper, err := NewMapper(mapperName, c.Fields)
	if err != nil {
		return nil, eris.Wrapf(err, "council %s", id)
	}

	districtsFormat := reader.FormatShapefile
	if mapperName == "kml" {
		districtsFormat = reader.FormatKML
	}
	districts, err := c.Districts.source(districtsFormat)
	if err != nil {
		return nil, eris.Wrapf(err, "council %s districts", id)
	}
	stations, err := c.Stations.source(reader.FormatCSV)
	if err != nil {
		return nil, eris.Wrapf(err, "council %s stations", id)
	}

	return &Definition{
		ID:        id,
		SRID:      c.SRID,
		Districts: districts,
		Stations:  stations,
		Mapper:    mapper,
	}, nil
}

func (s sourceConfig) source(fallback reader.Format) (Source, error) {
	format := fallback
	if s.Format != "" {
		f, err := reader.ParseFormat(s.Format)
		if err != nil {
			return Source{}, err
		}
		format = f
	}
	delim, err := ParseDelimiter(s.Delimiter)
	if err != nil {
		return Source{}, err
	}
	return Source{
		Format:    format,
		Name:      s.Name,
		SRID:      s.SRID,
		Delimiter: delim,
		Sheet:     s.Sheet,
	}, nil
}

// ParseDelimiter accepts a single character or the word "tab".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, eris.Errorf("council: delimiter %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
