package query

import (
	"reflect"
	"strings"
)

// defaultFacetSize is the bucket count requested when a facet does not set one.
const defaultFacetSize = 100

// facetValuesAgg is the sub-aggregation holding the buckets of a facet.
const facetValuesAgg = "values"

// Compile builds the Elasticsearch request body for the query.
//
// Untagged groups filter the hits and the counts. Facet-tagged groups go to
// post_filter, and every facet aggregation applies all facet groups except its
// own, so a facet's own selection never narrows its own counts.
func (q *Query) Compile() map[string]any {
	body := map[string]any{
		"query":            q.buildMainQuery(),
		"track_total_hits": true,
	}

	if q.options.Offset > 0 {
		body["from"] = q.options.Offset
	}
	if q.options.Limit > 0 {
		body["size"] = q.options.Limit
	}

	if sorts := q.buildSort(); len(sorts) > 0 {
		body["sort"] = sorts
	}

	if postFilter := q.buildFacetFilter(""); postFilter != nil {
		body["post_filter"] = postFilter
	}

	if aggs := q.buildAggregations(); len(aggs) > 0 {
		body["aggs"] = aggs
	}

	return body
}

func (q *Query) buildMainQuery() map[string]any {
	filters := make([]any, 0, len(q.root.conditions)+len(q.root.groups)+1)

	for _, c := range q.root.conditions {
		filters = append(filters, q.compileCondition(c))
	}
	for _, g := range q.root.groups {
		if _, tagged := g.FacetField(); tagged {
			continue
		}
		if clause := q.compileGroup(g); clause != nil {
			filters = append(filters, clause)
		}
	}
	if len(q.options.Languages) > 0 && q.languageField != "" {
		filters = append(filters, map[string]any{
			"terms": map[string]any{q.languageField: q.options.Languages},
		})
	}

	if len(filters) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

// buildFacetFilter combines every facet-tagged group except the one of excludeField.
func (q *Query) buildFacetFilter(excludeField string) map[string]any {
	var filters []any
	for _, g := range q.root.groups {
		field, tagged := g.FacetField()
		if !tagged || (excludeField != "" && field == excludeField) {
			continue
		}
		if clause := q.compileGroup(g); clause != nil {
			filters = append(filters, clause)
		}
	}
	if len(filters) == 0 {
		return nil
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

func (q *Query) buildAggregations() map[string]any {
	aggs := make(map[string]any, len(q.facets))
	for _, req := range q.facets {
		filter := q.buildFacetFilter(req.Field)
		if filter == nil {
			filter = map[string]any{"match_all": map[string]any{}}
		}

		aggs[req.ID] = map[string]any{
			"filter": filter,
			"aggs": map[string]any{
				facetValuesAgg: valuesAggregation(req),
			},
		}
	}
	return aggs
}

// valuesAggregation counts per value with terms, or per range when the
// request has ranges. Date fields (those with a format) use date_range so the
// bounds are read in that format.
func valuesAggregation(req FacetRequest) map[string]any {
	if len(req.Ranges) > 0 {
		ranges := make([]any, 0, len(req.Ranges))
		for _, r := range req.Ranges {
			bucket := map[string]any{"key": r.Key}
			if r.From != nil {
				bucket["from"] = r.From
			}
			if r.To != nil {
				bucket["to"] = r.To
			}
			ranges = append(ranges, bucket)
		}
		body := map[string]any{"field": req.Field, "ranges": ranges}
		kind := "range"
		if req.Format != "" {
			body["format"] = req.Format
			kind = "date_range"
		}
		return map[string]any{kind: body}
	}

	size := req.Size
	if size <= 0 {
		size = defaultFacetSize
	}
	terms := map[string]any{
		"field": req.Field,
		"size":  size,
	}
	if req.Format != "" {
		terms["format"] = req.Format
	}
	return map[string]any{"terms": terms}
}

func (q *Query) buildSort() []any {
	sorts := q.Sorts()
	out := make([]any, 0, len(sorts))
	for _, s := range sorts {
		out = append(out, map[string]any{
			s.Field: map[string]any{
				"order":   strings.ToLower(string(s.Direction)),
				"missing": "_last",
			},
		})
	}
	return out
}

func (q *Query) compileGroup(g *ConditionGroup) map[string]any {
	clauses := make([]any, 0, len(g.conditions)+len(g.groups))
	for _, c := range g.conditions {
		clauses = append(clauses, q.compileCondition(c))
	}
	for _, child := range g.groups {
		if clause := q.compileGroup(child); clause != nil {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return nil
	}

	if g.conjunction == Or {
		return map[string]any{"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": 1,
		}}
	}
	return map[string]any{"bool": map[string]any{"filter": clauses}}
}

func (q *Query) compileCondition(c Condition) map[string]any {
	switch c.Operator {
	case OpNotEqual:
		if c.Value == nil {
			return exists(c.Field)
		}
		return mustNot(term(c.Field, c.Value))
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return q.rangeClause(c)
	case OpIn:
		return map[string]any{"terms": map[string]any{c.Field: toSlice(c.Value)}}
	case OpNotIn:
		return mustNot(map[string]any{"terms": map[string]any{c.Field: toSlice(c.Value)}})
	default:
		if c.Value == nil {
			return mustNot(exists(c.Field))
		}
		if isSlice(c.Value) {
			return map[string]any{"terms": map[string]any{c.Field: toSlice(c.Value)}}
		}
		return term(c.Field, c.Value)
	}
}

func (q *Query) rangeClause(c Condition) map[string]any {
	key := map[Operator]string{
		OpLess:         "lt",
		OpLessEqual:    "lte",
		OpGreater:      "gt",
		OpGreaterEqual: "gte",
	}[c.Operator]

	bounds := map[string]any{key: c.Value}
	if format, ok := q.fieldFormats[c.Field]; ok && format != "" {
		bounds["format"] = format
	}
	return map[string]any{"range": map[string]any{c.Field: bounds}}
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func exists(field string) map[string]any {
	return map[string]any{"exists": map[string]any{"field": field}}
}

func mustNot(clause map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{"must_not": []any{clause}}}
}

func isSlice(v any) bool {
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func toSlice(v any) []any {
	if v == nil {
		return []any{}
	}
	if !isSlice(v) {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
