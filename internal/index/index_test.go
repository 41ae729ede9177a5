package index_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

const sourcesYAML = `
entity_types:
  - id: node
    label: Content
    bundles:
      - id: foo
        label: Foo
      - id: bar
indexes:
  - id: content
    name: list_pages_content
    datasources:
      - entity_type: node
        bundles: [foo, bar]
    fields:
      - id: type
        label: Content type
        type: string
      - id: field_date
        label: Date
        type: date
      - id: field_tags
        label: Tags
        type: entity_reference
        settings:
          target_type: taxonomy_term
          handler: default
          handler_settings:
            target_bundles: [tags]
      - id: field_link
        label: Link
        type: link
        settings:
          link_type: generic
    facets:
      - id: status
        label: Status
        field: field_date
        query_type: date_status
        settings:
          past_label: Archived
      - id: tags
        label: Tags
        field: field_tags
  - id: disabled
    enabled: false
    datasources:
      - entity_type: media
`

func TestParse(t *testing.T) {
	defs, err := index.Parse([]byte(sourcesYAML))
	require.NoError(t, err)
	require.Len(t, defs.Indexes, 2)

	content := defs.Indexes[0]
	assert.True(t, content.Enabled)
	assert.Equal(t, "langcode", content.LanguageField)
	assert.Equal(t, "list_pages_content", content.Name)

	ds, ok := content.Datasource("node")
	require.True(t, ok)
	assert.Equal(t, "type", ds.BundleKey)
	assert.Equal(t, "title", ds.LabelField)

	tags, ok := content.Field("field_tags")
	require.True(t, ok)
	assert.Equal(t, "taxonomy_term", tags.Settings.TargetType)
	assert.Equal(t, "default", tags.Settings.Handler)
	assert.Contains(t, tags.Settings.HandlerSettings, "target_bundles")

	status, ok := content.Facet("status")
	require.True(t, ok)
	assert.Equal(t, "date_status", status.QueryType)
	assert.Equal(t, "Archived", status.Settings.PastLabel)

	tagsFacet, _ := content.Facet("tags")
	assert.Equal(t, "string", tagsFacet.QueryType, "query type defaults to string")

	assert.Equal(t, map[string]string{"field_date": "epoch_second"}, content.FieldFormats())
	assert.False(t, defs.Indexes[1].Enabled)
	assert.Equal(t, "disabled", defs.Indexes[1].Name)

	require.Len(t, defs.EntityTypes, 1)
	assert.Equal(t, "bar", defs.EntityTypes[0].Bundles[1].Label, "bundle label defaults to id")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown setting",
			yaml: `
indexes:
  - id: a
    datasources: [{entity_type: node}]
    fields:
      - {id: f, type: string, settings: {colour: red}}
`,
		},
		{
			name: "invalid link type",
			yaml: `
indexes:
  - id: a
    datasources: [{entity_type: node}]
    fields:
      - {id: f, type: link, settings: {link_type: ftp}}
`,
		},
		{
			name: "facet on unknown field",
			yaml: `
indexes:
  - id: a
    datasources: [{entity_type: node}]
    facets:
      - {id: x, field: missing}
`,
		},
		{
			name: "duplicate index",
			yaml: `
indexes:
  - {id: a, datasources: [{entity_type: node}]}
  - {id: a, datasources: [{entity_type: node}]}
`,
		},
		{
			name: "no datasource",
			yaml: `
indexes:
  - {id: a}
`,
		},
		{
			name: "bundle served by two indexes",
			yaml: `
indexes:
  - {id: a, datasources: [{entity_type: node, bundles: [foo, bar]}]}
  - {id: b, datasources: [{entity_type: node, bundles: [bar]}]}
`,
		},
		{
			name: "all bundles overlap a selection",
			yaml: `
indexes:
  - {id: a, datasources: [{entity_type: node}]}
  - {id: b, datasources: [{entity_type: node, bundles: [foo]}]}
`,
		},
		{
			name: "entity type twice in one index",
			yaml: `
indexes:
  - id: a
    datasources:
      - {entity_type: node, bundles: [foo]}
      - {entity_type: node, bundles: [foo]}
`,
		},
		{
			name: "reference without target type",
			yaml: `
indexes:
  - id: a
    datasources: [{entity_type: node}]
    fields:
      - {id: f, type: entity_reference}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := index.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_DisjointSources(t *testing.T) {
	defs, err := index.Parse([]byte(`
indexes:
  - {id: a, datasources: [{entity_type: node, bundles: [foo]}]}
  - {id: b, datasources: [{entity_type: node, bundles: [bar]}]}
  - {id: c, enabled: false, datasources: [{entity_type: node}]}
`))
	require.NoError(t, err)

	reg := index.NewStaticRegistry(defs)
	idx, ok := reg.IndexFor("node", "bar")
	require.True(t, ok)
	assert.Equal(t, "b", idx.ID)
}

func TestRegistry_IndexFor(t *testing.T) {
	defs, err := index.Parse([]byte(sourcesYAML))
	require.NoError(t, err)
	reg := index.NewStaticRegistry(defs)

	idx, ok := reg.IndexFor("node", "foo")
	require.True(t, ok)
	assert.Equal(t, "content", idx.ID)

	_, ok = reg.IndexFor("node", "baz")
	assert.False(t, ok, "bundle outside the datasource selection")

	_, ok = reg.IndexFor("media", "image")
	assert.False(t, ok, "disabled index")

	assert.Len(t, reg.Bundles("node"), 2)
	assert.Empty(t, reg.Bundles("user"))
	assert.Equal(t, uint64(1), reg.Generation())
}

func TestRegistry_FacetHooks(t *testing.T) {
	defs, err := index.Parse([]byte(sourcesYAML))
	require.NoError(t, err)

	chain := hooks.NewChain[index.Facet]()
	chain.Register("hide-empty", func(_ context.Context, f index.Facet) index.Facet {
		if f.EmptyBehavior.Behavior == "" {
			f.EmptyBehavior.Behavior = "none"
		}
		return f
	})
	reg := index.NewStaticRegistry(defs, index.WithFacetHooks(chain))

	idx, _ := reg.Index("content")
	for _, f := range idx.Facets {
		assert.Equal(t, "none", f.EmptyBehavior.Behavior, f.ID)
	}
}

func TestRegistry_ReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(sourcesYAML), 0o600))

	reg := index.NewRegistry(path)
	require.NoError(t, reg.Reload(context.Background()))
	require.Equal(t, uint64(1), reg.Generation())

	require.NoError(t, os.WriteFile(path, []byte("indexes: [{id: broken}]"), 0o600))
	require.Error(t, reg.Reload(context.Background()))

	assert.Equal(t, uint64(1), reg.Generation())
	_, ok := reg.IndexFor("node", "foo")
	assert.True(t, ok)
}

func TestRegistry_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(sourcesYAML), 0o600))

	reg := index.NewRegistry(path)
	require.NoError(t, reg.Reload(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, reg.Watch(ctx))

	updated := sourcesYAML + `
  - id: media
    datasources:
      - entity_type: media
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		_, ok := reg.IndexFor("media", "image")
		return ok
	}, 5*time.Second, 50*time.Millisecond)
}
