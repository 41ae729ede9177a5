// Package entity loads content entities (id, bundle, label) from the search index
// that holds their entity type.
package entity

//go:generate mockgen -destination=mocks/storage_mock.go -package=mocks . Storage

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// Storage loads entities. A nil entity with a nil error means not found.
type Storage interface {
	Load(ctx context.Context, entityType, id string) (*domain.Entity, error)
	// LoadMultiple returns the found entities keyed by id.
	LoadMultiple(ctx context.Context, entityType string, ids []string) (map[string]*domain.Entity, error)
}

// DocumentLoader fetches documents by id.
type DocumentLoader interface {
	Mget(ctx context.Context, indexName string, ids []string) ([]elasticsearch.Document, error)
}

// IndexResolver finds the index holding an entity type.
type IndexResolver interface {
	IndexForEntityType(entityType string) (*index.Index, bool)
}

// IndexStorage reads entities from the Elasticsearch index of their entity type.
type IndexStorage struct {
	docs    DocumentLoader
	indexes IndexResolver
}

// NewIndexStorage creates an index backed entity storage.
func NewIndexStorage(docs DocumentLoader, indexes IndexResolver) *IndexStorage {
	return &IndexStorage{docs: docs, indexes: indexes}
}

// Load loads one entity.
func (s *IndexStorage) Load(ctx context.Context, entityType, id string) (*domain.Entity, error) {
	found, err := s.LoadMultiple(ctx, entityType, []string{id})
	if err != nil {
		return nil, err
	}
	return found[id], nil
}

// LoadMultiple loads entities by id. Unknown entity types load nothing.
func (s *IndexStorage) LoadMultiple(ctx context.Context, entityType string, ids []string) (map[string]*domain.Entity, error) {
	out := make(map[string]*domain.Entity, len(ids))

	wanted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return out, nil
	}

	idx, ok := s.indexes.IndexForEntityType(entityType)
	if !ok {
		return out, nil
	}
	ds, _ := idx.Datasource(entityType)

	docs, err := s.docs.Mget(ctx, idx.Name, wanted)
	if err != nil {
		return nil, fmt.Errorf("load %s entities: %w", entityType, err)
	}

	for _, doc := range docs {
		if !doc.Found {
			continue
		}
		out[doc.ID] = FromDocument(entityType, ds, doc.ID, doc.Source)
	}
	return out, nil
}

// FromDocument maps an indexed document to an entity using the datasource's
// bundle key and label field.
func FromDocument(entityType string, ds index.Datasource, id string, source map[string]any) *domain.Entity {
	return &domain.Entity{
		ID:         id,
		EntityType: entityType,
		Bundle:     stringValue(source[ds.BundleKey]),
		Label:      stringValue(source[ds.LabelField]),
		Fields:     source,
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return ""
		}
		return stringValue(val[0])
	default:
		return fmt.Sprint(val)
	}
}
