package preset_test

import (
	"errors"
	"testing"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/preset"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query/querytest"
)

var topicsFacet = index.Facet{ID: "topics", FieldIdentifier: "field_topics"}

func TestApply_Semantics(t *testing.T) {
	docs := map[string][]string{
		"none":  {},
		"a":     {"a"},
		"b":     {"b"},
		"ab":    {"a", "b"},
		"abc":   {"a", "b", "c"},
		"other": {"z"},
	}

	tests := []struct {
		name  string
		op    domain.Operator
		match []string
	}{
		{name: "or matches any value", op: domain.OperatorOr, match: []string{"a", "b", "ab", "abc"}},
		{name: "and requires every value", op: domain.OperatorAnd, match: []string{"ab", "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query.New("content")
			preset.Apply(q, topicsFacet, domain.NewPresetFilter("topics", tt.op, []string{"a", "b"}))

			groups := q.ConditionGroup().Groups()
			if len(groups) != 1 {
				t.Fatalf("groups = %d, want 1", len(groups))
			}
			if len(groups[0].Tags()) != 0 {
				t.Errorf("preset group tags = %v, want untagged", groups[0].Tags())
			}

			want := make(map[string]bool, len(tt.match))
			for _, id := range tt.match {
				want[id] = true
			}
			for id, vals := range docs {
				got := querytest.MatchGroup(map[string]any{"field_topics": vals}, groups[0])
				if got != want[id] {
					t.Errorf("doc %s matched = %v, want %v", id, got, want[id])
				}
			}
		})
	}
}

func TestApply_EmptyFilterAddsNothing(t *testing.T) {
	q := query.New("content")
	preset.Apply(q, topicsFacet, domain.NewPresetFilter("topics", domain.OperatorOr, []string{""}))
	if n := len(q.ConditionGroup().Groups()); n != 0 {
		t.Errorf("groups = %d, want 0", n)
	}
}

func TestApplyAll(t *testing.T) {
	registry := index.NewStaticRegistry(&index.Definitions{Indexes: []*index.Index{{
		ID:          "content",
		Name:        "content",
		Enabled:     true,
		Datasources: []index.Datasource{{EntityType: "node", BundleKey: "type"}},
		Fields: map[string]index.FieldDescriptor{
			"field_topics": {ID: "field_topics", Type: index.FieldTypeString},
			"status":       {ID: "status", Type: index.FieldTypeBoolean},
			"field_other":  {ID: "field_other", Type: index.FieldTypeString, Bundles: []string{"page"}},
		},
		Facets: []index.Facet{
			topicsFacet,
			{ID: "published", FieldIdentifier: "status"},
			{ID: "other", FieldIdentifier: "field_other"},
		},
	}}})
	src := listsource.NewFactory(registry, nil).Get("node", "article")

	cfg := &domain.ListPageConfiguration{
		PresetFilters: map[string]domain.PresetFilter{
			"topics":    domain.NewPresetFilter("topics", domain.OperatorAnd, []string{"a", "b"}),
			"published": domain.NewPresetFilter("published", domain.OperatorOr, []string{"1"}),
			"other":     domain.NewPresetFilter("other", domain.OperatorOr, []string{"x"}),
			"gone":      domain.NewPresetFilter("gone", domain.OperatorOr, []string{"x"}),
		},
	}

	q := query.New("content")
	err := preset.ApplyAll(q, src, cfg, logger.NewNop())
	if !errors.Is(err, domain.ErrFieldUnresolved) {
		t.Errorf("ApplyAll() error = %v, want ErrFieldUnresolved for skipped filters", err)
	}

	groups := q.ConditionGroup().Groups()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want published + topics", len(groups))
	}
	published := groups[0].Conditions()[0]
	if published.Field != "status" || published.Value != true {
		t.Errorf("published condition = %v, want status = true", published)
	}
	if groups[1].Conjunction() != query.And || len(groups[1].Conditions()) != 2 {
		t.Errorf("topics group = %s with %d conditions", groups[1].Conjunction(), len(groups[1].Conditions()))
	}
}

func TestApplyAll_NilConfiguration(t *testing.T) {
	if err := preset.ApplyAll(query.New("content"), nil, nil, logger.NewNop()); err != nil {
		t.Errorf("ApplyAll(nil) error = %v", err)
	}
}
