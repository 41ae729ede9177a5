package facet

import (
	"time"

	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// BooleanQueryTypeID is the id of the boolean query type.
const BooleanQueryTypeID = "boolean"

// Canonical boolean facet values.
const (
	BooleanOn  = "1"
	BooleanOff = "0"
)

// BooleanQueryType filters boolean fields. Its results always hold the two
// entries "1" and "0", counted or not.
type BooleanQueryType struct{}

// ID implements QueryType.
func (BooleanQueryType) ID() string { return BooleanQueryTypeID }

// Apply matches the field against true for "1" and false for "0".
func (BooleanQueryType) Apply(q *query.Query, f index.Facet, active []string, _ time.Time) {
	q.RequestFacet(facetRequest(q, f))

	values := make([]string, 0, len(active))
	for _, v := range active {
		if canonical, ok := CanonicalBoolean(v); ok {
			values = append(values, canonical)
		}
	}
	applyEquals(q, f, values, func(v string) any { return v == BooleanOn })
}

// Build returns [1, 0] with the counts of the matching buckets.
func (BooleanQueryType) Build(_ index.Facet, buckets []query.Bucket, _ time.Time) []Result {
	counts := map[string]int64{BooleanOn: 0, BooleanOff: 0}
	for _, b := range buckets {
		if v, ok := CanonicalBoolean(b.Value); ok && b.Count > 0 {
			counts[v] += b.Count
		}
	}
	return []Result{
		{RawValue: BooleanOn, DisplayValue: BooleanOn, Count: counts[BooleanOn]},
		{RawValue: BooleanOff, DisplayValue: BooleanOff, Count: counts[BooleanOff]},
	}
}

// CanonicalBoolean maps 1/0/true/false to "1" or "0".
func CanonicalBoolean(v string) (string, bool) {
	switch v {
	case "1", "true", "TRUE", "True":
		return BooleanOn, true
	case "0", "false", "FALSE", "False":
		return BooleanOff, true
	default:
		return "", false
	}
}
