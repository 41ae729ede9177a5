package facet

import (
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// StringQueryTypeID is the id of the terms query type.
const StringQueryTypeID = "string"

// StringQueryType filters on exact values and counts every distinct value.
type StringQueryType struct{}

// ID implements QueryType.
func (StringQueryType) ID() string { return StringQueryTypeID }

// Apply adds one condition per active value, joined by the facet operator.
func (StringQueryType) Apply(q *query.Query, f index.Facet, active []string, _ time.Time) {
	q.RequestFacet(facetRequest(q, f))
	applyEquals(q, f, active, func(v string) any { return v })
}

// Build maps buckets to results one to one.
func (StringQueryType) Build(_ index.Facet, buckets []query.Bucket, _ time.Time) []Result {
	results := make([]Result, 0, len(buckets))
	for _, b := range buckets {
		results = append(results, Result{RawValue: b.Value, DisplayValue: b.Value, Count: b.Count})
	}
	return results
}

func applyEquals(q *query.Query, f index.Facet, active []string, convert func(string) any) {
	conjunction := query.Or
	if strings.EqualFold(f.Settings.Operator, string(query.And)) {
		conjunction = query.And
	}

	group := q.CreateConditionGroup(conjunction, query.FacetTag(f.FieldIdentifier))
	for _, v := range active {
		if v == "" {
			continue
		}
		group.AddCondition(f.FieldIdentifier, convert(v), query.OpEqual)
	}
	if !group.IsEmpty() {
		q.AddConditionGroup(group)
	}
}
