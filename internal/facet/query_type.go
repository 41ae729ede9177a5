package facet

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// QueryType alters a query for a facet's active values and builds the facet's
// results from the counted buckets.
type QueryType interface {
	ID() string
	// Apply requests the facet counts and, when active is not empty, adds one
	// group tagged with the facet field.
	Apply(q *query.Query, f index.Facet, active []string, now time.Time)
	Build(f index.Facet, buckets []query.Bucket, now time.Time) []Result
}

// Registry maps query type ids to implementations.
type Registry struct {
	mu    sync.RWMutex
	types map[string]QueryType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]QueryType)}
}

// DefaultRegistry holds the built-in query types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(StringQueryType{})
	r.Register(BooleanQueryType{})
	r.Register(DateStatusQueryType{})
	return r
}

// Register adds or replaces a query type.
func (r *Registry) Register(qt QueryType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[qt.ID()] = qt
}

// Get returns a query type by id.
func (r *Registry) Get(id string) (QueryType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	qt, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("unknown facet query type %q", id)
	}
	return qt, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func facetRequest(q *query.Query, f index.Facet) query.FacetRequest {
	return query.FacetRequest{
		ID:     f.ID,
		Field:  f.FieldIdentifier,
		Size:   f.Settings.Size,
		Format: q.FieldFormat(f.FieldIdentifier),
	}
}
