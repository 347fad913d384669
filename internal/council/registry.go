package council

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/generalelection/UK-Polling-Stations/internal/model"
	"github.com/generalelection/UK-Polling-Stations/internal/reader"
)

// Factory builds a mapper from configured field names.
type Factory func(f Fields) (Mapper, error)

var factories = map[string]Factory{
	"fields": func(f Fields) (Mapper, error) {
		m, err := NewFieldMapper(f)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
	"kml": func(f Fields) (Mapper, error) {
		m, err := NewKMLMapper(f)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
	"doncaster":  func(Fields) (Mapper, error) { return DoncasterMapper{}, nil },
	"canterbury": func(Fields) (Mapper, error) { return CanterburyMapper{}, nil },
}

// NewMapper builds the named mapper.
func NewMapper(name string, f Fields) (Mapper, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, eris.Errorf("council: unknown mapper %q", name)
	}
	return factory(f)
}

// MapperNames lists the registered mapper names in sorted order.
func MapperNames() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry maps council ids to their definitions.
type Registry struct {
	defs  map[string]*Definition
	order []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*Definition),
	}
}

// Register adds or replaces a definition.
func (r *Registry) Register(d *Definition) {
	if _, ok := r.defs[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.defs[d.ID] = d
}

// Get returns a definition by council id.
func (r *Registry) Get(id string) (*Definition, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, model.NotFound("council: no definition for %q", id)
	}
	return d, nil
}

// All returns all definitions in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// Builtin returns a registry holding the councils whose mapping needs code
// rather than configuration.
func Builtin(defaults Defaults) *Registry {
	r := NewRegistry()
	for _, d := range []*Definition{
		{
			ID:        "E07000106", // Canterbury
			SRID:      4326,
			Districts: Source{Format: reader.FormatGeoJSON},
			Stations:  Source{Format: reader.FormatGeoJSON},
			Mapper:    CanterburyMapper{},
		},
		{
			ID:        "E08000017", // Doncaster
			SRID:      4326,
			Districts: Source{Format: reader.FormatGeoJSON},
			Stations:  Source{Format: reader.FormatGeoJSON},
			Mapper:    DoncasterMapper{},
		},
	} {
		defaults.Apply(d)
		r.Register(d)
	}
	return r
}
