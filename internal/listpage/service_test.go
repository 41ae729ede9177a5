package listpage_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/events"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listpage"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query/querytest"
)

const indexName = "content"

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type memoryRepo struct {
	mu      sync.Mutex
	configs map[string]*domain.ListPageConfiguration
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{configs: make(map[string]*domain.ListPageConfiguration)}
}

func (r *memoryRepo) Get(_ context.Context, ownerID string) (*domain.ListPageConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[ownerID]
	if !ok {
		return nil, fmt.Errorf("owner %s: %w", ownerID, domain.ErrConfigurationNotFound)
	}
	return cfg, nil
}

func (r *memoryRepo) Save(_ context.Context, cfg *domain.ListPageConfiguration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.configs[cfg.OwnerID]
	r.configs[cfg.OwnerID] = cfg
	return !exists, nil
}

func (r *memoryRepo) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[ownerID]; !ok {
		return domain.ErrConfigurationNotFound
	}
	delete(r.configs, ownerID)
	return nil
}

type recordingPublisher struct {
	events []events.ListPageEvent
}

func (p *recordingPublisher) PublishAsync(e events.ListPageEvent) {
	p.events = append(p.events, e)
}

type termStorage map[string]string

func (s termStorage) Load(ctx context.Context, entityType, id string) (*domain.Entity, error) {
	found, _ := s.LoadMultiple(ctx, entityType, []string{id})
	return found[id], nil
}

func (s termStorage) LoadMultiple(_ context.Context, entityType string, ids []string) (map[string]*domain.Entity, error) {
	out := make(map[string]*domain.Entity)
	for _, id := range ids {
		if label, ok := s[id]; ok {
			out[id] = &domain.Entity{ID: id, EntityType: entityType, Label: label}
		}
	}
	return out, nil
}

func definitions() *index.Definitions {
	return &index.Definitions{
		EntityTypes: []index.EntityType{
			{ID: "node", Label: "Content", Bundles: []index.Bundle{{ID: "foo", Label: "Foo"}, {ID: "bar", Label: "Bar"}, {ID: "baz", Label: "Baz"}}},
			{ID: "user", Label: "User"},
		},
		Indexes: []*index.Index{{
			ID:            indexName,
			Name:          indexName,
			Enabled:       true,
			LanguageField: "langcode",
			Datasources: []index.Datasource{{
				EntityType: "node",
				BundleKey:  "type",
				LabelField: "title",
				URLPattern: "/{entity_type}/{id}",
				Bundles:    []string{"foo", "bar"},
			}},
			Fields: map[string]index.FieldDescriptor{
				"type":       {ID: "type", Label: "Type", Type: index.FieldTypeString},
				"status":     {ID: "status", Label: "Published", Type: index.FieldTypeBoolean},
				"field_date": {ID: "field_date", Label: "Date", Type: index.FieldTypeDate},
				"field_tags": {ID: "field_tags", Label: "Tags", Type: index.FieldTypeEntityReference, Bundles: []string{"foo"},
					Settings: index.FieldSettings{TargetType: "taxonomy_term"}},
			},
			Facets: []index.Facet{
				{ID: "status", FieldIdentifier: "status", QueryType: facet.BooleanQueryTypeID,
					Processors: []index.ProcessorConfig{{ID: facet.BooleanLabelsID}}},
				{ID: "date", Label: "When", FieldIdentifier: "field_date", QueryType: facet.DateStatusQueryTypeID},
				{ID: "tags", FieldIdentifier: "field_tags", QueryType: facet.StringQueryTypeID,
					Processors: []index.ProcessorConfig{{ID: facet.TransformLabelID}}},
			},
		}},
	}
}

// seed adds 5 foo and 5 bar nodes, interleaved. Odd foo nodes are published
// and tagged 1, foo dates run from two days ago to two days ahead.
func seed(exec *querytest.MemoryExecutor) {
	for i := 1; i <= 5; i++ {
		exec.Add(indexName,
			querytest.Document{ID: fmt.Sprintf("foo-%d", i), Source: map[string]any{
				"type":       "foo",
				"title":      fmt.Sprintf("Foo %d", i),
				"langcode":   "en",
				"status":     i%2 == 1,
				"field_date": now.AddDate(0, 0, i-3).Unix(),
				"field_tags": []any{fmt.Sprint(1 + i%2)},
			}},
			querytest.Document{ID: fmt.Sprintf("bar-%d", i), Source: map[string]any{
				"type":     "bar",
				"title":    fmt.Sprintf("Bar %d", i),
				"langcode": "fr",
				"status":   true,
			}},
		)
	}
}

type fixture struct {
	svc       *listpage.Service
	exec      *querytest.MemoryExecutor
	repo      *memoryRepo
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts ...listpage.Option) fixture {
	t.Helper()

	registry := index.NewStaticRegistry(definitions())
	exec := querytest.NewMemoryExecutor()
	seed(exec)

	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	storage := termStorage{"1": "Red", "2": "Green"}

	base := []listpage.Option{
		listpage.WithRepository(repo),
		listpage.WithPublisher(pub),
		listpage.WithStorage(storage),
		listpage.WithClock(facet.FixedClock(now)),
		listpage.WithDefaults(listpage.Defaults{EntityType: "node", Limit: 10, MaxLimit: 50, LinkBaseURL: "https://example.com/"}),
		listpage.WithMetrics(metrics.New()),
	}
	svc := listpage.NewService(registry, listsource.NewFactory(registry, exec), append(base, opts...)...)
	return fixture{svc: svc, exec: exec, repo: repo, publisher: pub}
}

func fooConfig() *domain.ListPageConfiguration {
	return &domain.ListPageConfiguration{OwnerID: "page-1", SourceEntityType: "node", SourceBundle: "foo"}
}

func TestGetLinks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	links, err := fx.svc.GetLinks(ctx, fooConfig(), 0)
	require.NoError(t, err)
	require.Len(t, links, 5)
	for i, link := range links {
		assert.Equal(t, fmt.Sprintf("foo-%d", i+1), link.ID)
		assert.Equal(t, fmt.Sprintf("Foo %d", i+1), link.Label)
		assert.Equal(t, "foo", link.Bundle)
		assert.Equal(t, "node", link.EntityType)
	}
	assert.Equal(t, "https://example.com/node/foo-1", links[0].URL)

	links, err = fx.svc.GetLinks(ctx, fooConfig(), 2)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "foo-1", links[0].ID)
	assert.Equal(t, "foo-2", links[1].ID)
}

func TestGetLinks_NoSource(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for name, cfg := range map[string]*domain.ListPageConfiguration{
		"unconfigured":   {OwnerID: "x"},
		"no bundle":      {OwnerID: "x", SourceEntityType: "node"},
		"unserved":       {OwnerID: "x", SourceEntityType: "node", SourceBundle: "baz"},
		"unknown entity": {OwnerID: "x", SourceEntityType: "media", SourceBundle: "image"},
	} {
		t.Run(name, func(t *testing.T) {
			links, err := fx.svc.GetLinks(ctx, cfg, 0)
			require.NoError(t, err)
			assert.NotNil(t, links)
			assert.Empty(t, links)
		})
	}
}

func TestGetLinks_PresetFilters(t *testing.T) {
	fx := newFixture(t)
	cfg := fooConfig()
	cfg.PresetFilters = map[string]domain.PresetFilter{
		"status":  domain.NewPresetFilter("status", domain.OperatorOr, []string{"1"}),
		"missing": domain.NewPresetFilter("missing", domain.OperatorOr, []string{"x"}),
	}

	links, err := fx.svc.GetLinks(context.Background(), cfg, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"foo-1", "foo-3", "foo-5"}, ids)
}

func TestSearch_Facets(t *testing.T) {
	fx := newFixture(t)
	cfg := fooConfig()
	cfg.ExposedFilters = []string{"date", "status", "tags"}

	res, err := fx.svc.Search(context.Background(), cfg, listpage.Request{
		Active: map[string][]string{"date": {facet.StatusPast}},
	})
	require.NoError(t, err)

	// foo-1..foo-3 are at or before now, newest first.
	assert.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "foo-3", res.Items[0].ID)
	assert.Equal(t, "foo-1", res.Items[2].ID)

	require.Len(t, res.Facets, 3)
	byID := make(map[string]listpage.FacetView)
	for _, f := range res.Facets {
		byID[f.ID] = f
	}

	date := byID["date"]
	assert.Equal(t, "When", date.Label)
	require.Len(t, date.Results, 2)
	assert.Equal(t, facet.StatusPast, date.Results[0].RawValue)
	assert.EqualValues(t, 3, date.Results[0].Count, "own selection does not narrow own counts")
	assert.EqualValues(t, 2, date.Results[1].Count)
	assert.True(t, date.Results[0].Active)
	assert.False(t, date.Results[1].Active)

	status := byID["status"]
	assert.Equal(t, "Published", status.Label)
	require.Len(t, status.Results, 2)
	assert.Equal(t, "Yes", status.Results[0].DisplayValue)
	assert.EqualValues(t, 2, status.Results[0].Count)
	assert.EqualValues(t, 1, status.Results[1].Count)

	tags := byID["tags"]
	labels := make(map[string]string)
	for _, r := range tags.Results {
		labels[r.RawValue] = r.DisplayValue
	}
	assert.Equal(t, map[string]string{"1": "Red", "2": "Green"}, labels)
}

func TestSearch_Degrades(t *testing.T) {
	fx := newFixture(t)

	res, err := fx.svc.Search(context.Background(), &domain.ListPageConfiguration{SourceEntityType: "node", SourceBundle: "baz"}, listpage.Request{Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 50, res.Limit, "limit is capped")
}

func TestSearch_Languages(t *testing.T) {
	fx := newFixture(t)
	cfg := &domain.ListPageConfiguration{SourceEntityType: "node", SourceBundle: "bar"}

	res, err := fx.svc.Search(context.Background(), cfg, listpage.Request{Languages: []string{"en"}})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = fx.svc.Search(context.Background(), cfg, listpage.Request{Languages: []string{"fr"}, Offset: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Total)
	assert.Len(t, res.Items, 2)
}

func TestSearch_PagesByEffectiveLimit(t *testing.T) {
	fx := newFixture(t)
	for i := 6; i <= 120; i++ {
		fx.exec.Add(indexName, querytest.Document{ID: fmt.Sprintf("foo-%d", i), Source: map[string]any{
			"type":  "foo",
			"title": fmt.Sprintf("Foo %d", i),
		}})
	}
	ctx := context.Background()

	// size 100 is capped at 50, so page 2 starts at item 51.
	res, err := fx.svc.Search(ctx, fooConfig(), listpage.Request{Page: 2, Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 120, res.Total)
	assert.Equal(t, 50, res.Limit)
	assert.Equal(t, 50, res.Offset)
	require.Len(t, res.Items, 50)
	assert.Equal(t, "foo-51", res.Items[0].ID)

	res, err = fx.svc.Search(ctx, fooConfig(), listpage.Request{Page: 3, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Offset)
	require.Len(t, res.Items, 20)
	assert.Equal(t, "foo-101", res.Items[0].ID)
}

func TestSearch_BeyondResultWindow(t *testing.T) {
	fx := newFixture(t, listpage.WithDefaults(listpage.Defaults{EntityType: "node", Limit: 10, MaxLimit: 50, MaxResultWindow: 100}))
	ctx := context.Background()

	_, err := fx.svc.Search(ctx, fooConfig(), listpage.Request{Page: 2, Limit: 50})
	require.NoError(t, err)

	_, err = fx.svc.Search(ctx, fooConfig(), listpage.Request{Page: 3, Limit: 50})
	require.ErrorIs(t, err, domain.ErrInvalidSubmittedValue)
	assert.Len(t, fx.exec.Queries, 1, "out of window pages never reach the index")
}

func TestSourceMisses_BoundedLabels(t *testing.T) {
	m := metrics.New()
	fx := newFixture(t, listpage.WithMetrics(m))
	ctx := context.Background()

	for i := range 3 {
		_, err := fx.svc.AvailableFilters(ctx, fmt.Sprintf("made-up-%d", i), "x")
		require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	}
	_, err := fx.svc.AvailableFilters(ctx, "node", "baz")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	assert.Equal(t, 2, testutil.CollectAndCount(m.SourceMisses))
	assert.InDelta(t, 3, testutil.ToFloat64(m.SourceMisses.WithLabelValues(metrics.UnknownEntityType)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourceMisses.WithLabelValues("node")), 0)
}

func TestOptions_Hooks(t *testing.T) {
	entityHooks := hooks.NewChain[[]domain.Option]()
	entityHooks.Register("rename", func(_ context.Context, in []domain.Option) []domain.Option {
		for i := range in {
			in[i].Label += "!"
		}
		return in
	})
	bundleHooks := hooks.NewChain[listpage.BundleOptions]()
	bundleHooks.Register("drop-bar", func(_ context.Context, in listpage.BundleOptions) listpage.BundleOptions {
		kept := in.Options[:0]
		for _, o := range in.Options {
			if o.Value != "bar" {
				kept = append(kept, o)
			}
		}
		in.Options = kept
		return in
	})

	fx := newFixture(t, listpage.WithEntityTypeHooks(entityHooks), listpage.WithBundleHooks(bundleHooks))
	ctx := context.Background()

	assert.Equal(t, []domain.Option{{Value: "node", Label: "Content!"}}, fx.svc.EntityTypeOptions(ctx))
	assert.Equal(t, []domain.Option{{Value: "foo", Label: "Foo"}}, fx.svc.BundleOptions(ctx, "node"))
	assert.Empty(t, fx.svc.BundleOptions(ctx, "user"))
}

func TestConfigurationLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cfg, err := fx.svc.Get(ctx, "page-9")
	require.NoError(t, err)
	assert.Equal(t, "node", cfg.SourceEntityType)
	assert.Equal(t, "foo", cfg.SourceBundle, "first bundle is the default")

	incomplete := &domain.ListPageConfiguration{OwnerID: "page-9", SourceEntityType: "node"}
	_, err = fx.svc.Save(ctx, incomplete)
	require.ErrorIs(t, err, domain.ErrConfigurationIncomplete)
	assert.Empty(t, fx.repo.configs)

	cfg.ExposedFilters = []string{"status", "nope"}
	_, err = fx.svc.Save(ctx, cfg)
	require.ErrorIs(t, err, listpage.ErrFilterNotAvailable)

	cfg.ExposedFilters = []string{"status", "date", "status"}
	cfg.PresetFilters = map[string]domain.PresetFilter{
		"tags": {Operator: domain.OperatorAnd, Values: []string{"Red (1)", "Green (2)"}},
	}
	result, err := fx.svc.Save(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Empty(t, result.Rejected)
	assert.Equal(t, []string{"date", "status"}, cfg.ExposedFilters)
	assert.Equal(t, []string{"1", "2"}, cfg.PresetFilters["tags"].Values)

	result, err = fx.svc.Save(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, result.Created)

	stored, err := fx.svc.Get(ctx, "page-9")
	require.NoError(t, err)
	assert.Equal(t, "tags", stored.PresetFilters["tags"].FacetID)

	require.NoError(t, fx.svc.Delete(ctx, "page-9"))
	require.ErrorIs(t, fx.svc.Delete(ctx, "page-9"), domain.ErrConfigurationNotFound)

	require.Len(t, fx.publisher.events, 3)
	assert.Equal(t, events.ListPageCreated, fx.publisher.events[0].EventType)
	assert.Equal(t, events.ListPageUpdated, fx.publisher.events[1].EventType)
	assert.Equal(t, events.ListPageDeleted, fx.publisher.events[2].EventType)
}

func TestSave_InvalidPresetValue(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	cfg := fooConfig()
	cfg.PresetFilters = map[string]domain.PresetFilter{
		"status": {Values: []string{"maybe"}},
		"tags":   {Values: []string{"Red (1)", "bad value"}},
	}

	result, err := fx.svc.Save(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, result.Rejected, 2)
	assert.Contains(t, result.Rejected[0], "preset filter status")
	assert.Contains(t, result.Rejected[1], `"bad value"`)

	stored, err := fx.repo.Get(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, stored.PresetFilters["tags"].Values)
	assert.NotContains(t, stored.PresetFilters, "status", "a filter left without values is dropped")
}

func TestSave_InvalidOperator(t *testing.T) {
	fx := newFixture(t)
	cfg := fooConfig()
	cfg.PresetFilters = map[string]domain.PresetFilter{
		"tags": {Operator: "xor", Values: []string{"1"}},
	}

	result, err := fx.svc.Save(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0], "preset filter tags")
	assert.Empty(t, cfg.PresetFilters)
}

func TestFilterHelpers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	filters, err := fx.svc.AvailableFilters(ctx, "node", "foo")
	require.NoError(t, err)
	assert.Equal(t, []domain.Option{
		{Value: "date", Label: "When"},
		{Value: "status", Label: "Published"},
		{Value: "tags", Label: "Tags"},
	}, filters)

	_, err = fx.svc.AvailableFilters(ctx, "node", "baz")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	cfg := fooConfig()
	cfg.PresetFilters = map[string]domain.PresetFilter{
		"tags":   domain.NewPresetFilter("tags", domain.OperatorOr, []string{"1", "3", "2"}),
		"status": domain.NewPresetFilter("status", domain.OperatorOr, []string{"0"}),
	}

	descriptions, err := fx.svc.DescribePresetFilters(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, descriptions, 2)
	assert.Equal(t, "No", descriptions[0].Description)
	assert.Equal(t, "Red, Green", descriptions[1].Description)

	values, err := fx.svc.NormalizeFilterValues(ctx, cfg, "tags", []string{"Red (1)", "bad value"})
	assert.ErrorIs(t, err, domain.ErrInvalidSubmittedValue)
	assert.Equal(t, []string{"1"}, values)

	el, err := fx.svc.DefaultValueInput(ctx, cfg, "tags")
	require.NoError(t, err)
	assert.Equal(t, "entity_autocomplete", el.Type)
	assert.Equal(t, []string{"Red (1)", "Green (2)"}, el.DefaultValue)

	barCfg := &domain.ListPageConfiguration{SourceEntityType: "node", SourceBundle: "bar"}
	_, err = fx.svc.DefaultValueInput(ctx, barCfg, "tags")
	assert.ErrorIs(t, err, domain.ErrFieldUnresolved)
}
