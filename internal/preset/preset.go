// Package preset applies administrator preset filters to list page queries.
package preset

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// Apply adds one untagged group for filter: its conjunction is the filter
// operator and it holds one equality per value on the facet field. Untagged
// groups filter both hits and facet counts, and several preset filters combine
// with AND.
func Apply(q *query.Query, f index.Facet, filter domain.PresetFilter) {
	apply(q, f, filter, func(v string) any { return v })
}

func apply(q *query.Query, f index.Facet, filter domain.PresetFilter, convert func(string) any) {
	if filter.IsEmpty() {
		return
	}

	conjunction := query.Or
	if filter.Operator == domain.OperatorAnd {
		conjunction = query.And
	}

	group := q.CreateConditionGroup(conjunction)
	for _, v := range filter.Values {
		group.AddCondition(f.FieldIdentifier, convert(v), query.OpEqual)
	}
	q.AddConditionGroup(group)
}

// ApplyAll applies the configuration's preset filters in facet id order.
// Filters whose facet or field does not resolve on the source are skipped and
// logged; the returned error joins those skips for callers that want them.
func ApplyAll(q *query.Query, src *listsource.ListSource, cfg *domain.ListPageConfiguration, log logger.Logger) error {
	if cfg == nil {
		return nil
	}

	var skipped []error
	for _, filter := range cfg.SortedPresetFilters() {
		f, field, err := src.ResolveFacet(filter.FacetID)
		if err != nil {
			log.Warn("Skipping preset filter",
				logger.FacetID(filter.FacetID),
				logger.String("source", src.SearchID()),
				logger.Error(err),
			)
			skipped = append(skipped, fmt.Errorf("preset filter %s: %w", filter.FacetID, err))
			continue
		}
		apply(q, f, filter, converterFor(field))
	}
	return errors.Join(skipped...)
}

// converterFor maps stored filter values to the indexed representation of field.
func converterFor(field index.FieldDescriptor) func(string) any {
	if field.Type == index.FieldTypeBoolean {
		return func(v string) any {
			canonical, _ := facet.CanonicalBoolean(v)
			return canonical == facet.BooleanOn
		}
	}
	return func(v string) any { return v }
}
