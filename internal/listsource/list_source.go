// Package listsource binds an entity type and bundle to the search index that
// serves them and builds the queries list pages run.
package listsource

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// searchIDPrefix prefixes the search id of every list source.
const searchIDPrefix = "list_facet_source"

// Availability reports whether an index can be searched right now.
type Availability interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// ListSource is the (entity type, bundle) pair a list page draws from. It is
// immutable once built and shares, but does not own, its index.
type ListSource struct {
	entityType   string
	bundle       string
	idx          *index.Index
	datasource   index.Datasource
	executor     query.Executor
	availability Availability
}

// EntityType returns the source entity type.
func (s *ListSource) EntityType() string { return s.entityType }

// Bundle returns the source bundle.
func (s *ListSource) Bundle() string { return s.bundle }

// BundleKey returns the indexed field holding the bundle.
func (s *ListSource) BundleKey() string { return s.datasource.BundleKey }

// Datasource returns the index datasource of the source entity type.
func (s *ListSource) Datasource() index.Datasource { return s.datasource }

// SearchID identifies the source to facet bookkeeping.
func (s *ListSource) SearchID() string {
	return fmt.Sprintf("%s:%s:%s", searchIDPrefix, s.entityType, s.bundle)
}

// Index returns the bound index.
func (s *ListSource) Index() *index.Index { return s.idx }

// AvailableFilters returns facet id -> label for every facet whose field
// exists on the source bundle and can be filtered on.
func (s *ListSource) AvailableFilters() map[string]string {
	out := make(map[string]string)
	for _, f := range s.idx.Facets {
		field, ok := s.idx.Field(f.FieldIdentifier)
		if !ok || !field.AppliesTo(s.entityType, s.bundle) || !index.IsFacetCapable(field.Type) {
			continue
		}
		label := f.Label
		if label == "" {
			label = field.Label
		}
		out[f.ID] = label
	}
	return out
}

// AvailableFilterIDs returns the ids of AvailableFilters in sorted order.
func (s *ListSource) AvailableFilterIDs() []string {
	return slices.Sorted(maps.Keys(s.AvailableFilters()))
}

// ResolveFacet returns a facet and the field backing it. The error wraps
// ErrFieldUnresolved when the facet is unknown or its field does not exist on
// the source bundle.
func (s *ListSource) ResolveFacet(facetID string) (index.Facet, index.FieldDescriptor, error) {
	f, ok := s.idx.Facet(facetID)
	if !ok {
		return index.Facet{}, index.FieldDescriptor{}, fmt.Errorf("facet %q: %w", facetID, domain.ErrFieldUnresolved)
	}
	field, ok := s.idx.Field(f.FieldIdentifier)
	if !ok || !field.AppliesTo(s.entityType, s.bundle) {
		return index.Facet{}, index.FieldDescriptor{}, fmt.Errorf("facet %q field %q on %s: %w",
			facetID, f.FieldIdentifier, s.bundle, domain.ErrFieldUnresolved)
	}
	return f, field, nil
}

// Query returns a fresh query against the bound index restricted to the source
// bundle. The options are passed through untouched.
func (s *ListSource) Query(ctx context.Context, opts query.Options) (*query.Query, error) {
	if !s.idx.Enabled {
		return nil, fmt.Errorf("index %s is disabled: %w", s.idx.ID, domain.ErrSourceUnavailable)
	}
	if s.availability != nil {
		exists, err := s.availability.IndexExists(ctx, s.idx.Name)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w: %w", s.idx.ID, domain.ErrSourceUnavailable, err)
		}
		if !exists {
			return nil, fmt.Errorf("index %s is not searchable: %w", s.idx.ID, domain.ErrSourceUnavailable)
		}
	}

	q := query.New(s.idx.Name,
		query.WithExecutor(s.executor),
		query.WithFieldFormats(s.idx.FieldFormats()),
		query.WithLanguageField(s.idx.LanguageField),
		query.WithOptions(opts),
	)

	bundleGroup := q.CreateConditionGroup(query.And)
	bundleGroup.AddCondition(s.datasource.BundleKey, s.bundle, query.OpEqual)
	q.AddConditionGroup(bundleGroup)

	return q, nil
}
