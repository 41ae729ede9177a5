package filterfield

import (
	"fmt"
	"slices"
	"sync"

	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
)

// Definition describes a plugin and how to instantiate it.
type Definition struct {
	ID         string
	Weight     int
	FieldTypes []string
	New        func(def Definition, b Binding) Plugin
}

// Registry holds plugin definitions. It is filled at start-up and read-only afterwards.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// DefaultRegistry holds the built-in plugins.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []Definition{
		GenericDefinition(),
		BooleanDefinition(),
		EntityReferenceDefinition(),
		LinkDefinition(),
	} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a definition. Ids are unique.
func (r *Registry) Register(def Definition) error {
	if def.ID == "" || def.New == nil {
		return fmt.Errorf("filter field definition needs an id and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.defs[def.ID]; dup {
		return fmt.Errorf("filter field plugin %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns a definition by id.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// ForFieldType returns the highest-weight definition handling fieldType. Ties
// go to the lowest id.
func (r *Registry) ForFieldType(fieldType string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Definition
	found := false
	for _, def := range r.defs {
		if !slices.Contains(def.FieldTypes, fieldType) {
			continue
		}
		if !found || def.Weight > best.Weight || (def.Weight == best.Weight && def.ID < best.ID) {
			best = def
			found = true
		}
	}
	return best, found
}

// Create instantiates plugin id over b.
func (r *Registry) Create(id string, b Binding) (Plugin, error) {
	def, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown filter field plugin %q", id)
	}
	return def.New(def, b), nil
}

// Dependencies are the services plugins may need.
type Dependencies struct {
	Storage    entity.Storage
	Processors *facet.Processors
}

// ForFacet returns the plugin for a facet of src: the facet's widget override
// when set, otherwise the plugin of its field type, falling back to generic.
// When the facet's field does not resolve on the source bundle the returned
// plugin is unresolved and the error wraps ErrFieldUnresolved.
func (r *Registry) ForFacet(src *listsource.ListSource, facetID string, deps Dependencies) (Plugin, error) {
	f, field, resolveErr := src.ResolveFacet(facetID)
	if resolveErr != nil {
		if known, ok := src.Index().Facet(facetID); ok {
			f = known
		} else {
			f.ID = facetID
		}
	}

	b := Binding{
		Facet:      f,
		Field:      field,
		Resolved:   resolveErr == nil,
		Storage:    deps.Storage,
		Processors: deps.Processors,
	}

	id := GenericID
	if f.Widget != "" {
		id = f.Widget
	} else if def, ok := r.ForFieldType(field.Type); ok {
		id = def.ID
	}

	plugin, err := r.Create(id, b)
	if err != nil {
		return nil, err
	}
	return plugin, resolveErr
}
