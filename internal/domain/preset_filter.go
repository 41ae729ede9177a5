// Package domain holds the list page value objects shared by every layer.
package domain

import (
	"fmt"
	"strings"
)

// Operator combines the values of one filter.
type Operator string

const (
	// OperatorOr matches when the field equals any of the values.
	OperatorOr Operator = "or"
	// OperatorAnd matches when the field equals all of the values.
	OperatorAnd Operator = "and"
)

// ParseOperator accepts "or"/"and" in any case. Empty input defaults to OR.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OperatorOr):
		return OperatorOr, nil
	case string(OperatorAnd):
		return OperatorAnd, nil
	default:
		return "", fmt.Errorf("unknown filter operator %q", s)
	}
}

// PresetFilter is a filter fixed by an administrator for one facet.
type PresetFilter struct {
	FacetID  string   `json:"facet_id"`
	Operator Operator `json:"operator"`
	Values   []string `json:"values"`
}

// NewPresetFilter builds a filter, dropping empty values.
func NewPresetFilter(facetID string, op Operator, values []string) PresetFilter {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	if op == "" {
		op = OperatorOr
	}
	return PresetFilter{FacetID: facetID, Operator: op, Values: kept}
}

// IsEmpty reports whether the filter has no values to apply.
func (f PresetFilter) IsEmpty() bool {
	return len(f.Values) == 0
}

// Validate checks the operator and that there is something to filter on.
func (f PresetFilter) Validate() error {
	if f.FacetID == "" {
		return fmt.Errorf("preset filter: facet id is required: %w", ErrInvalidSubmittedValue)
	}
	if _, err := ParseOperator(string(f.Operator)); err != nil {
		return fmt.Errorf("preset filter %s: %w: %w", f.FacetID, ErrInvalidSubmittedValue, err)
	}
	if f.IsEmpty() {
		return fmt.Errorf("preset filter %s: no values: %w", f.FacetID, ErrInvalidSubmittedValue)
	}
	return nil
}
