// Package querytest provides an in-memory query executor for tests. It
// evaluates condition groups, facet scoping, sorts and pagination the way the
// compiled Elasticsearch request does.
package querytest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// defaultSize mirrors the Elasticsearch default page size.
const defaultSize = 10

// Document is one indexed document.
type Document struct {
	ID     string
	Source map[string]any
}

// MemoryExecutor runs queries over documents held in memory, per index name.
type MemoryExecutor struct {
	mu      sync.Mutex
	indexes map[string][]Document
	// Queries records every executed query.
	Queries []*query.Query
}

// NewMemoryExecutor creates an empty executor.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{indexes: make(map[string][]Document)}
}

// Add appends documents to an index, in index order.
func (m *MemoryExecutor) Add(indexName string, docs ...Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[indexName] = append(m.indexes[indexName], docs...)
}

// Execute implements query.Executor.
func (m *MemoryExecutor) Execute(_ context.Context, q *query.Query) (*query.ResultSet, error) {
	m.mu.Lock()
	docs := append([]Document(nil), m.indexes[q.Index()]...)
	m.Queries = append(m.Queries, q)
	m.mu.Unlock()

	opts := q.Options()
	root := q.ConditionGroup()

	var base []Document
	for _, d := range docs {
		if matchesBase(d, q, root, opts) {
			base = append(base, d)
		}
	}

	var hits []Document
	for _, d := range base {
		if matchesFacetGroups(d, root, "") {
			hits = append(hits, d)
		}
	}
	sortDocuments(hits, q.Sorts())

	rs := &query.ResultSet{
		Total:  int64(len(hits)),
		Facets: make(map[string][]query.Bucket),
	}

	size := opts.Limit
	if size <= 0 {
		size = defaultSize
	}
	for i := opts.Offset; i < len(hits) && i < opts.Offset+size; i++ {
		rs.Items = append(rs.Items, query.Item{ID: hits[i].ID, Score: 1, Source: hits[i].Source})
	}

	for _, req := range q.FacetRequests() {
		if len(req.Ranges) > 0 {
			rs.Facets[req.ID] = rangeBuckets(base, root, req)
			continue
		}
		counts := make(map[string]int64)
		var order []string
		for _, d := range base {
			if !matchesFacetGroups(d, root, req.Field) {
				continue
			}
			for _, v := range values(d.Source[req.Field]) {
				if _, seen := counts[v]; !seen {
					order = append(order, v)
				}
				counts[v]++
			}
		}
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		buckets := make([]query.Bucket, 0, len(order))
		for _, v := range order {
			buckets = append(buckets, query.Bucket{Value: v, Count: counts[v]})
		}
		rs.Facets[req.ID] = buckets
	}

	return rs, nil
}

// rangeBuckets counts documents with a numeric field value in each range,
// keeping the range order. Empty ranges are kept with a zero count.
func rangeBuckets(base []Document, root *query.ConditionGroup, req query.FacetRequest) []query.Bucket {
	buckets := make([]query.Bucket, len(req.Ranges))
	for i, r := range req.Ranges {
		buckets[i].Value = r.Key
	}
	for _, d := range base {
		if !matchesFacetGroups(d, root, req.Field) {
			continue
		}
		for i, r := range req.Ranges {
			if inRange(values(d.Source[req.Field]), r) {
				buckets[i].Count++
			}
		}
	}
	return buckets
}

func inRange(have []string, r query.Range) bool {
	for _, h := range have {
		n, ok := number(h)
		if !ok {
			continue
		}
		if r.From != nil {
			if from, fok := number(fmt.Sprint(r.From)); !fok || n < from {
				continue
			}
		}
		if r.To != nil {
			if to, tok := number(fmt.Sprint(r.To)); !tok || n >= to {
				continue
			}
		}
		return true
	}
	return false
}

func matchesBase(d Document, q *query.Query, root *query.ConditionGroup, opts query.Options) bool {
	for _, c := range root.Conditions() {
		if !matchCondition(d, c) {
			return false
		}
	}
	for _, g := range root.Groups() {
		if _, tagged := g.FacetField(); tagged {
			continue
		}
		if !matchGroup(d, g) {
			return false
		}
	}
	if len(opts.Languages) > 0 {
		lang := values(d.Source[q.LanguageField()])
		found := false
		for _, want := range opts.Languages {
			for _, have := range lang {
				if want == have {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchesFacetGroups(d Document, root *query.ConditionGroup, excludeField string) bool {
	for _, g := range root.Groups() {
		field, tagged := g.FacetField()
		if !tagged || (excludeField != "" && field == excludeField) {
			continue
		}
		if !matchGroup(d, g) {
			return false
		}
	}
	return true
}

// MatchGroup reports whether a document source satisfies a condition group.
func MatchGroup(source map[string]any, g *query.ConditionGroup) bool {
	return matchGroup(Document{Source: source}, g)
}

func matchGroup(d Document, g *query.ConditionGroup) bool {
	if g.IsEmpty() {
		return true
	}
	or := g.Conjunction() == query.Or
	for _, c := range g.Conditions() {
		ok := matchCondition(d, c)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	for _, child := range g.Groups() {
		if child.IsEmpty() {
			continue
		}
		ok := matchGroup(d, child)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

func matchCondition(d Document, c query.Condition) bool {
	have := values(d.Source[c.Field])

	switch c.Operator {
	case query.OpNotEqual:
		if c.Value == nil {
			return len(have) > 0
		}
		return !containsAny(have, values(c.Value))
	case query.OpIn:
		return containsAny(have, values(c.Value))
	case query.OpNotIn:
		return !containsAny(have, values(c.Value))
	case query.OpLess, query.OpLessEqual, query.OpGreater, query.OpGreaterEqual:
		bound, ok := number(fmt.Sprint(c.Value))
		if !ok {
			return false
		}
		for _, v := range have {
			n, ok := number(v)
			if ok && compare(n, bound, c.Operator) {
				return true
			}
		}
		return false
	default:
		if c.Value == nil {
			return len(have) == 0
		}
		return containsAny(have, values(c.Value))
	}
}

func compare(n, bound float64, op query.Operator) bool {
	switch op {
	case query.OpLess:
		return n < bound
	case query.OpLessEqual:
		return n <= bound
	case query.OpGreater:
		return n > bound
	default:
		return n >= bound
	}
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func values(v any) []string {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, values(rv.Index(i).Interface())...)
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

func number(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	return n, err == nil
}

func sortDocuments(docs []Document, sorts []query.Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			a, aok := first(docs[i].Source[s.Field])
			b, bok := first(docs[j].Source[s.Field])
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			if a == b {
				continue
			}
			less := lessValue(a, b)
			if s.Direction == query.Desc {
				return !less
			}
			return less
		}
		return false
	})
}

func first(v any) (string, bool) {
	vals := values(v)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func lessValue(a, b string) bool {
	an, aok := number(a)
	bn, bok := number(b)
	if aok && bok {
		return an < bn
	}
	return a < b
}
