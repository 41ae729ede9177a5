package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

// Registry holds the current generation of index definitions. Readers get
// immutable snapshots; Reload swaps in a new generation atomically.
type Registry struct {
	path       string
	log        logger.Logger
	facetHooks *hooks.Chain[Facet]
	onReload   func(error)

	mu         sync.RWMutex
	defs       *Definitions
	generation uint64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFacetHooks sets the chain run over every facet when definitions are loaded.
func WithFacetHooks(chain *hooks.Chain[Facet]) RegistryOption {
	return func(r *Registry) { r.facetHooks = chain }
}

// WithReloadObserver sets a callback told about every watched reload.
func WithReloadObserver(fn func(error)) RegistryOption {
	return func(r *Registry) { r.onReload = fn }
}

// WithLogger sets the registry logger.
func WithLogger(log logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates a registry for the sources file at path. Nothing is read
// until Reload is called.
func NewRegistry(path string, opts ...RegistryOption) *Registry {
	r := &Registry{
		path: path,
		log:  logger.NewNop(),
		defs: &Definitions{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewStaticRegistry creates a registry holding defs. Used by tests and by
// callers that build definitions in code.
func NewStaticRegistry(defs *Definitions, opts ...RegistryOption) *Registry {
	r := NewRegistry("", opts...)
	r.Replace(context.Background(), defs)
	return r
}

// Path returns the sources file path.
func (r *Registry) Path() string { return r.path }

// Reload reads the sources file and swaps it in. On error the current
// generation stays in place.
func (r *Registry) Reload(ctx context.Context) error {
	if r.path == "" {
		return fmt.Errorf("registry has no sources file")
	}
	defs, err := LoadFile(r.path)
	if err != nil {
		return err
	}
	gen := r.Replace(ctx, defs)
	r.log.Info("Sources loaded",
		logger.String("path", r.path),
		logger.Int("indexes", len(defs.Indexes)),
		logger.Int64("generation", int64(gen)),
	)
	return nil
}

// Replace installs defs as the new generation and returns its number.
func (r *Registry) Replace(ctx context.Context, defs *Definitions) uint64 {
	if defs == nil {
		defs = &Definitions{}
	}
	for _, idx := range defs.Indexes {
		for i, f := range idx.Facets {
			idx.Facets[i] = r.facetHooks.Run(ctx, f)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = defs
	r.generation++
	return r.generation
}

// Generation returns the number of the current generation. It changes on every swap.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *Registry) current() (*Definitions, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs, r.generation
}

// Indexes returns every configured index, enabled or not.
func (r *Registry) Indexes() []*Index {
	defs, _ := r.current()
	out := make([]*Index, len(defs.Indexes))
	copy(out, defs.Indexes)
	return out
}

// Index returns an index by id.
func (r *Registry) Index(id string) (*Index, bool) {
	defs, _ := r.current()
	for _, idx := range defs.Indexes {
		if idx.ID == id {
			return idx, true
		}
	}
	return nil, false
}

// IndexFor returns the first enabled index whose datasource for entityType
// includes bundle.
func (r *Registry) IndexFor(entityType, bundle string) (*Index, bool) {
	defs, _ := r.current()
	for _, idx := range defs.Indexes {
		if idx.Enabled && idx.Serves(entityType, bundle) {
			return idx, true
		}
	}
	return nil, false
}

// IndexForEntityType returns the first enabled index with a datasource for entityType.
func (r *Registry) IndexForEntityType(entityType string) (*Index, bool) {
	defs, _ := r.current()
	for _, idx := range defs.Indexes {
		if _, ok := idx.Datasource(entityType); ok && idx.Enabled {
			return idx, true
		}
	}
	return nil, false
}

// EntityTypes returns the declared entity types.
func (r *Registry) EntityTypes() []EntityType {
	defs, _ := r.current()
	out := make([]EntityType, len(defs.EntityTypes))
	copy(out, defs.EntityTypes)
	return out
}

// Bundles returns the declared bundles of entityType.
func (r *Registry) Bundles(entityType string) []Bundle {
	defs, _ := r.current()
	for _, et := range defs.EntityTypes {
		if et.ID == entityType {
			out := make([]Bundle, len(et.Bundles))
			copy(out, et.Bundles)
			return out
		}
	}
	return nil
}
