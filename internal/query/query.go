// Package query is the search-engine independent query object used by list sources,
// facet query types and preset filters. It compiles to an Elasticsearch request body.
package query

import (
	"context"
	"errors"
	"strings"
)

// ErrNoExecutor is returned by Execute on a query that was not bound to an index backend.
var ErrNoExecutor = errors.New("query has no executor")

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort is one sort directive.
type Sort struct {
	Field     string
	Direction Direction
}

// Options are the generic options a caller hands to a list source. They are
// passed through untouched and only interpreted when the query is compiled.
type Options struct {
	Offset    int
	Limit     int
	Languages []string
	Sorts     []Sort
}

// FacetRequest asks the backend to count values of a field.
type FacetRequest struct {
	ID    string
	Field string
	Size  int
	// Format is forwarded to the aggregation, e.g. epoch_second for date fields.
	Format string
	// Ranges, when set, counts documents per range instead of per value.
	// Size is ignored and each bucket's value is the range key.
	Ranges []Range
}

// Range is one bucket of a range facet. From is inclusive, To exclusive; a
// nil bound is open.
type Range struct {
	Key  string
	From any
	To   any
}

// Bucket is one counted raw value of a facet field.
type Bucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Item is one matched document.
type Item struct {
	ID     string
	Score  float64
	Source map[string]any
}

// ResultSet is the outcome of an executed query.
type ResultSet struct {
	Total  int64
	Items  []Item
	Facets map[string][]Bucket
}

// Executor runs a query against a backend.
type Executor interface {
	Execute(ctx context.Context, q *Query) (*ResultSet, error)
}

// Query is a mutable, request-scoped search query. It is owned by the list source
// that built it; collaborators append to it and must not keep a reference.
type Query struct {
	index         string
	root          *ConditionGroup
	sorts         []Sort
	options       Options
	facets        []FacetRequest
	fieldFormats  map[string]string
	languageField string
	executor      Executor
}

// Option configures a new query.
type Option func(*Query)

// WithExecutor binds the backend used by Execute.
func WithExecutor(e Executor) Option {
	return func(q *Query) { q.executor = e }
}

// WithFieldFormats sets per-field value formats (e.g. epoch_second for dates).
func WithFieldFormats(formats map[string]string) Option {
	return func(q *Query) {
		for field, format := range formats {
			q.fieldFormats[field] = format
		}
	}
}

// WithLanguageField names the field used for language conditions.
func WithLanguageField(field string) Option {
	return func(q *Query) { q.languageField = field }
}

// WithOptions sets the generic options.
func WithOptions(opts Options) Option {
	return func(q *Query) { q.options = opts }
}

// New creates an empty query against index.
func New(index string, opts ...Option) *Query {
	q := &Query{
		index:         index,
		root:          NewConditionGroup(And),
		fieldFormats:  make(map[string]string),
		languageField: "langcode",
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Index returns the index name the query targets.
func (q *Query) Index() string { return q.index }

// LanguageField returns the field language conditions apply to.
func (q *Query) LanguageField() string { return q.languageField }

// FieldFormat returns the value format of field, or "".
func (q *Query) FieldFormat(field string) string { return q.fieldFormats[field] }

// CreateConditionGroup returns a new group; it is not added until AddConditionGroup.
func (q *Query) CreateConditionGroup(conjunction Conjunction, tags ...string) *ConditionGroup {
	return NewConditionGroup(conjunction, tags...)
}

// AddCondition adds a condition to the query's top-level AND group.
func (q *Query) AddCondition(field string, value any, op Operator) *Query {
	q.root.AddCondition(field, value, op)
	return q
}

// AddConditionGroup adds a group to the top-level AND group. A facet-tagged group
// replaces an earlier group carrying the same facet tag, so every facet owns at
// most one filter group.
func (q *Query) AddConditionGroup(g *ConditionGroup) *Query {
	if g == nil {
		return q
	}
	if field, ok := g.FacetField(); ok {
		tag := FacetTag(field)
		for i, existing := range q.root.groups {
			if existing.HasTag(tag) {
				q.root.groups[i] = g
				return q
			}
		}
	}
	q.root.AddConditionGroup(g)
	return q
}

// ConditionGroup returns the top-level AND group.
func (q *Query) ConditionGroup() *ConditionGroup { return q.root }

// GroupByTag returns the first top-level group carrying tag.
func (q *Query) GroupByTag(tag string) *ConditionGroup {
	for _, g := range q.root.groups {
		if g.HasTag(tag) {
			return g
		}
	}
	return nil
}

// Sort appends a sort directive.
func (q *Query) Sort(field string, dir Direction) *Query {
	d := Direction(strings.ToUpper(string(dir)))
	if d != Desc {
		d = Asc
	}
	q.sorts = append(q.sorts, Sort{Field: field, Direction: d})
	return q
}

// Sorts returns the sort directives added through Sort followed by the option sorts.
func (q *Query) Sorts() []Sort {
	out := make([]Sort, 0, len(q.sorts)+len(q.options.Sorts))
	out = append(out, q.sorts...)
	return append(out, q.options.Sorts...)
}

// Options returns the generic options.
func (q *Query) Options() Options { return q.options }

// Range sets pagination.
func (q *Query) Range(offset, limit int) *Query {
	q.options.Offset = offset
	q.options.Limit = limit
	return q
}

// RequestFacet asks for bucket counts of a field. Requesting the same id twice keeps the last.
func (q *Query) RequestFacet(req FacetRequest) *Query {
	for i, existing := range q.facets {
		if existing.ID == req.ID {
			q.facets[i] = req
			return q
		}
	}
	q.facets = append(q.facets, req)
	return q
}

// FacetRequests returns the requested facets.
func (q *Query) FacetRequests() []FacetRequest { return q.facets }

// Execute runs the query through its executor.
func (q *Query) Execute(ctx context.Context) (*ResultSet, error) {
	if q.executor == nil {
		return nil, ErrNoExecutor
	}
	return q.executor.Execute(ctx, q)
}
