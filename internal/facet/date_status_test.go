package facet_test

import (
	"math/rand/v2"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func statusFacet() index.Facet {
	return index.Facet{ID: "status", FieldIdentifier: "field_date", QueryType: facet.DateStatusQueryTypeID}
}

func TestDateStatus_Apply(t *testing.T) {
	tests := []struct {
		name     string
		active   []string
		strict   bool
		wantOps  []query.Operator
		wantSort []query.Direction
	}{
		{name: "past", active: []string{"past"}, wantOps: []query.Operator{query.OpLessEqual}, wantSort: []query.Direction{query.Desc}},
		{name: "coming", active: []string{"coming"}, wantOps: []query.Operator{query.OpGreater}, wantSort: []query.Direction{query.Asc}},
		{
			name:     "both",
			active:   []string{"past", "coming"},
			wantOps:  []query.Operator{query.OpLessEqual, query.OpGreater},
			wantSort: []query.Direction{query.Desc, query.Asc},
		},
		{name: "other value is upcoming", active: []string{"whatever"}, wantOps: []query.Operator{query.OpGreater}, wantSort: []query.Direction{query.Asc}},
		{name: "strict skips other value", active: []string{"whatever"}, strict: true},
		{name: "no active values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := statusFacet()
			f.Settings.StrictStatus = tt.strict
			q := query.New("content", query.WithFieldFormats(map[string]string{"field_date": "epoch_second"}))

			facet.DateStatusQueryType{}.Apply(q, f, tt.active, now)

			reqs := q.FacetRequests()
			if len(reqs) != 1 || reqs[0].Field != "field_date" || reqs[0].Format != "epoch_second" {
				t.Fatalf("FacetRequests() = %+v", reqs)
			}
			split := strconv.FormatInt(now.Unix()+1, 10)
			wantRanges := []query.Range{{Key: "past", To: split}, {Key: "coming", From: split}}
			if !reflect.DeepEqual(reqs[0].Ranges, wantRanges) {
				t.Errorf("Ranges = %+v, want %+v", reqs[0].Ranges, wantRanges)
			}

			group := q.GroupByTag(query.FacetTag("field_date"))
			if len(tt.wantOps) == 0 {
				if group != nil {
					t.Fatalf("group added with no conditions: %+v", group.Conditions())
				}
				return
			}
			if group == nil {
				t.Fatal("no facet group added")
			}
			if group.Conjunction() != query.Or {
				t.Errorf("conjunction = %s, want OR", group.Conjunction())
			}
			conds := group.Conditions()
			if len(conds) != len(tt.wantOps) {
				t.Fatalf("conditions = %v, want %v", conds, tt.wantOps)
			}
			for i, c := range conds {
				if c.Operator != tt.wantOps[i] || c.Value != now.Unix() {
					t.Errorf("condition %d = %v", i, c)
				}
			}
			sorts := q.Sorts()
			for i, dir := range tt.wantSort {
				if sorts[i].Field != "field_date" || sorts[i].Direction != dir {
					t.Errorf("sort %d = %+v, want %s", i, sorts[i], dir)
				}
			}
		})
	}
}

func TestDateStatus_Build(t *testing.T) {
	f := statusFacet()
	f.Settings.PastLabel = "Archived"

	buckets := []query.Bucket{
		{Value: strconv.FormatInt(now.Add(-time.Hour).Unix(), 10), Count: 3},
		{Value: strconv.FormatInt(now.Unix(), 10), Count: 1},
		{Value: strconv.FormatInt(now.Add(time.Hour).Unix(), 10), Count: 2},
		{Value: "2030-01-01", Count: 4},
		{Value: "2001-02-03T04:05:06Z", Count: 5},
		{Value: "not a date", Count: 9},
		{Value: "1", Count: -2},
	}

	results := facet.DateStatusQueryType{}.Build(f, buckets, now)
	if len(results) != 2 {
		t.Fatalf("Build() = %d results, want 2", len(results))
	}
	// an unreadable date counts as past
	if results[0].RawValue != "past" || results[0].DisplayValue != "Archived" || results[0].Count != 18 {
		t.Errorf("past = %+v", results[0])
	}
	if results[1].RawValue != "coming" || results[1].DisplayValue != "Upcoming" || results[1].Count != 6 {
		t.Errorf("coming = %+v", results[1])
	}
}

func TestDateStatus_BuildRangeBuckets(t *testing.T) {
	buckets := []query.Bucket{
		{Value: "past", Count: 250},
		{Value: "coming", Count: 120},
	}

	results := facet.DateStatusQueryType{}.Build(statusFacet(), buckets, now)
	if results[0].Count != 250 || results[1].Count != 120 {
		t.Errorf("Build() = %+v", results)
	}
}

func TestDateStatus_BuildEmpty(t *testing.T) {
	results := facet.DateStatusQueryType{}.Build(statusFacet(), nil, now)
	if len(results) != 2 || results[0].Count != 0 || results[1].Count != 0 {
		t.Errorf("Build(nil) = %+v", results)
	}
	if results[0].DisplayValue != "Past" {
		t.Errorf("default past label = %q", results[0].DisplayValue)
	}
}

func TestDateStatus_BuildCountsAddUp(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		n := rng.IntN(20)
		buckets := make([]query.Bucket, 0, n)
		var total int64
		for range n {
			offset := time.Duration(rng.IntN(48)-24) * time.Hour
			count := int64(rng.IntN(10))
			total += count
			value := strconv.FormatInt(now.Add(offset).Unix(), 10)
			if rng.IntN(5) == 0 {
				value = "n/a"
			}
			buckets = append(buckets, query.Bucket{Value: value, Count: count})
		}

		results := facet.DateStatusQueryType{}.Build(statusFacet(), buckets, now)
		if len(results) != 2 {
			t.Fatalf("Build() = %d results, want 2", len(results))
		}
		for _, r := range results {
			if r.Count < 0 {
				t.Fatalf("negative count %+v", r)
			}
		}
		if got := results[0].Count + results[1].Count; got != total {
			t.Fatalf("sum of counts = %d, want %d", got, total)
		}
	}
}
