package entity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/list-pages/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

type fakeLoader struct {
	docs     map[string]map[string]any
	err      error
	gotIndex string
	gotIDs   []string
}

func (f *fakeLoader) Mget(_ context.Context, indexName string, ids []string) ([]elasticsearch.Document, error) {
	f.gotIndex = indexName
	f.gotIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	out := make([]elasticsearch.Document, 0, len(ids))
	for _, id := range ids {
		src, ok := f.docs[id]
		out = append(out, elasticsearch.Document{ID: id, Found: ok, Source: src})
	}
	return out, nil
}

func newRegistry() *index.Registry {
	return index.NewStaticRegistry(&index.Definitions{
		Indexes: []*index.Index{{
			ID:      "content",
			Name:    "list_pages_content",
			Enabled: true,
			Datasources: []index.Datasource{
				{EntityType: "node", BundleKey: "type", LabelField: "title"},
			},
		}},
	})
}

func TestIndexStorage_LoadMultiple(t *testing.T) {
	loader := &fakeLoader{docs: map[string]map[string]any{
		"1": {"title": "One", "type": "foo"},
		"2": {"title": []any{"Two"}, "type": "bar"},
	}}
	storage := entity.NewIndexStorage(loader, newRegistry())

	got, err := storage.LoadMultiple(context.Background(), "node", []string{"1", "", "2", "3"})
	require.NoError(t, err)

	assert.Equal(t, "list_pages_content", loader.gotIndex)
	assert.Equal(t, []string{"1", "2", "3"}, loader.gotIDs, "empty ids are not requested")
	require.Len(t, got, 2)
	assert.Equal(t, "One", got["1"].Label)
	assert.Equal(t, "foo", got["1"].Bundle)
	assert.Equal(t, "Two", got["2"].Label)
	assert.NotContains(t, got, "3")
}

func TestIndexStorage_Load(t *testing.T) {
	loader := &fakeLoader{docs: map[string]map[string]any{"5": {"title": "Foo"}}}
	storage := entity.NewIndexStorage(loader, newRegistry())

	e, err := storage.Load(context.Background(), "node", "5")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Foo", e.Label)
	assert.Equal(t, "node", e.EntityType)

	missing, err := storage.Load(context.Background(), "node", "6")
	require.NoError(t, err)
	assert.Nil(t, missing)

	unknownType, err := storage.Load(context.Background(), "user", "1")
	require.NoError(t, err)
	assert.Nil(t, unknownType)
}

func TestIndexStorage_LoaderError(t *testing.T) {
	boom := errors.New("boom")
	storage := entity.NewIndexStorage(&fakeLoader{err: boom}, newRegistry())

	_, err := storage.Load(context.Background(), "node", "1")
	assert.ErrorIs(t, err, boom)
}
