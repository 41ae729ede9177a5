package listsource

import (
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// IndexResolver finds the enabled index serving an entity type and bundle.
type IndexResolver interface {
	IndexFor(entityType, bundle string) (*index.Index, bool)
	Generation() uint64
}

type sourceKey struct {
	entityType string
	bundle     string
}

// Factory resolves list sources. Results are memoised per registry generation.
type Factory struct {
	indexes      IndexResolver
	executor     query.Executor
	availability Availability

	mu         sync.Mutex
	generation uint64
	cache      map[sourceKey]*ListSource
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithAvailability makes Query verify that the index exists before use.
func WithAvailability(a Availability) FactoryOption {
	return func(f *Factory) { f.availability = a }
}

// NewFactory creates a factory over indexes. Queries built by its sources run
// through executor.
func NewFactory(indexes IndexResolver, executor query.Executor, opts ...FactoryOption) *Factory {
	f := &Factory{
		indexes:  indexes,
		executor: executor,
		cache:    make(map[sourceKey]*ListSource),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns the list source for entityType and bundle, or nil when no enabled
// index has a datasource for the entity type whose bundle selection includes
// the bundle.
func (f *Factory) Get(entityType, bundle string) *ListSource {
	if entityType == "" || bundle == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen := f.indexes.Generation(); gen != f.generation {
		f.generation = gen
		clear(f.cache)
	}

	key := sourceKey{entityType: entityType, bundle: bundle}
	if src, ok := f.cache[key]; ok {
		return src
	}

	var src *ListSource
	if idx, ok := f.indexes.IndexFor(entityType, bundle); ok {
		ds, _ := idx.Datasource(entityType)
		src = &ListSource{
			entityType:   entityType,
			bundle:       bundle,
			idx:          idx,
			datasource:   ds,
			executor:     f.executor,
			availability: f.availability,
		}
	}
	f.cache[key] = src
	return src
}

// GetOrError is Get reporting the missing source as ErrSourceUnavailable.
func (f *Factory) GetOrError(entityType, bundle string) (*ListSource, error) {
	src := f.Get(entityType, bundle)
	if src == nil {
		return nil, fmt.Errorf("%s:%s: %w", entityType, bundle, domain.ErrSourceUnavailable)
	}
	return src, nil
}
