package facet_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/entity/mocks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

func TestStringQueryType(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		want     query.Conjunction
	}{
		{name: "default or", want: query.Or},
		{name: "and", operator: "and", want: query.And},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := index.Facet{ID: "type", FieldIdentifier: "type"}
			f.Settings.Operator = tt.operator
			q := query.New("content")

			facet.StringQueryType{}.Apply(q, f, []string{"foo", "", "bar"}, now)

			group := q.GroupByTag(query.FacetTag("type"))
			if group == nil {
				t.Fatal("no facet group")
			}
			if group.Conjunction() != tt.want {
				t.Errorf("conjunction = %s, want %s", group.Conjunction(), tt.want)
			}
			if n := len(group.Conditions()); n != 2 {
				t.Errorf("conditions = %d, want 2", n)
			}
		})
	}

	results := facet.StringQueryType{}.Build(index.Facet{}, []query.Bucket{{Value: "foo", Count: 5}}, now)
	if len(results) != 1 || results[0].RawValue != "foo" || results[0].DisplayValue != "foo" || results[0].Count != 5 {
		t.Errorf("Build() = %+v", results)
	}
}

func TestBooleanQueryType(t *testing.T) {
	f := index.Facet{ID: "published", FieldIdentifier: "status"}
	q := query.New("content")

	facet.BooleanQueryType{}.Apply(q, f, []string{"1", "maybe"}, now)

	group := q.GroupByTag(query.FacetTag("status"))
	if group == nil || len(group.Conditions()) != 1 || group.Conditions()[0].Value != true {
		t.Fatalf("group = %+v", group)
	}

	results := facet.BooleanQueryType{}.Build(f, []query.Bucket{{Value: "true", Count: 4}}, now)
	if len(results) != 2 {
		t.Fatalf("Build() = %+v, want two entries", results)
	}
	if results[0].RawValue != "1" || results[0].Count != 4 || results[1].RawValue != "0" || results[1].Count != 0 {
		t.Errorf("Build() = %+v", results)
	}
}

func TestRegistry(t *testing.T) {
	r := facet.DefaultRegistry()
	for _, id := range []string{"string", "boolean", "date_status"} {
		if _, err := r.Get(id); err != nil {
			t.Errorf("Get(%q) error = %v", id, err)
		}
	}
	if _, err := r.Get("range"); err == nil {
		t.Error("Get(range) error = nil")
	}
}

func TestMarkActive(t *testing.T) {
	results := facet.MarkActive([]facet.Result{{RawValue: "a"}, {RawValue: "b"}}, []string{"b"})
	if results[0].Active || !results[1].Active {
		t.Errorf("MarkActive() = %+v", results)
	}
}

func TestProcessors_TransformLabel(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().
		LoadMultiple(gomock.Any(), "taxonomy_term", []string{"1", "2"}).
		Return(map[string]*domain.Entity{"1": {ID: "1", Label: "News"}}, nil)

	f := index.Facet{
		ID:         "tags",
		Processors: []index.ProcessorConfig{{ID: facet.TransformLabelID}},
	}
	field := index.FieldDescriptor{ID: "field_tags", Settings: index.FieldSettings{TargetType: "taxonomy_term"}}

	results, err := facet.DefaultProcessors(storage).Run(context.Background(), f, field, []facet.Result{
		{RawValue: "1", DisplayValue: "1", Count: 3},
		{RawValue: "2", DisplayValue: "2", Count: 1},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 || results[0].DisplayValue != "News" || results[0].Count != 3 {
		t.Errorf("Run() = %+v, want the loadable entity only", results)
	}
}

func TestProcessors_TransformLabelWithoutStorage(t *testing.T) {
	f := index.Facet{ID: "tags", Processors: []index.ProcessorConfig{{ID: facet.TransformLabelID}}}
	field := index.FieldDescriptor{Settings: index.FieldSettings{TargetType: "taxonomy_term"}}
	in := []facet.Result{{RawValue: "1", DisplayValue: "1", Count: 2}}

	results, err := facet.DefaultProcessors(nil).Run(context.Background(), f, field, in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 || results[0].DisplayValue != "1" {
		t.Errorf("Run() = %+v, want results unchanged", results)
	}
}

func TestProcessors_StorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	boom := errors.New("boom")
	storage.EXPECT().LoadMultiple(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)

	f := index.Facet{ID: "tags", Processors: []index.ProcessorConfig{{ID: facet.TransformLabelID}}}
	field := index.FieldDescriptor{Settings: index.FieldSettings{TargetType: "taxonomy_term"}}

	_, err := facet.DefaultProcessors(storage).Run(context.Background(), f, field, []facet.Result{{RawValue: "1"}})
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
}

func TestProcessors_BooleanLabelsAndOrder(t *testing.T) {
	f := index.Facet{
		ID: "published",
		Processors: []index.ProcessorConfig{
			{ID: facet.BooleanLabelsID},
		},
	}
	f.Settings.OnLabel = "Published"

	results, err := facet.DefaultProcessors(nil).Run(context.Background(), f, index.FieldDescriptor{},
		facet.BooleanQueryType{}.Build(f, nil, now))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].DisplayValue != "Published" || results[1].DisplayValue != "No" {
		t.Errorf("Run() = %+v", results)
	}

	f.Processors = append(f.Processors, index.ProcessorConfig{ID: "nope"})
	if _, err := facet.DefaultProcessors(nil).Run(context.Background(), f, index.FieldDescriptor{}, results); err == nil {
		t.Error("Run() with unknown processor error = nil")
	}
}
