package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ListPageConfiguration associates a content entity with its list page settings.
type ListPageConfiguration struct {
	ID               uuid.UUID               `json:"id"`
	OwnerID          string                  `json:"owner_id"`
	SourceEntityType string                  `json:"source_entity_type"`
	SourceBundle     string                  `json:"source_bundle"`
	ExposedFilters   []string                `json:"exposed_filters"`
	PresetFilters    map[string]PresetFilter `json:"preset_filters"`
	Limit            int                     `json:"limit"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// IsConfigured reports whether both the entity type and bundle were selected.
func (c *ListPageConfiguration) IsConfigured() bool {
	return c != nil && c.SourceEntityType != "" && c.SourceBundle != ""
}

// CheckComplete returns ErrConfigurationIncomplete when the source is not fully selected.
func (c *ListPageConfiguration) CheckComplete() error {
	if c == nil || c.SourceEntityType == "" {
		return fmt.Errorf("entity type not selected: %w", ErrConfigurationIncomplete)
	}
	if c.SourceBundle == "" {
		return fmt.Errorf("bundle not selected: %w", ErrConfigurationIncomplete)
	}
	return nil
}

// Normalize sorts and de-duplicates the exposed filters and drops empty preset filters.
// Exposed filters have set semantics.
func (c *ListPageConfiguration) Normalize() {
	filters := make([]string, 0, len(c.ExposedFilters))
	for _, id := range c.ExposedFilters {
		if id != "" {
			filters = append(filters, id)
		}
	}
	slices.Sort(filters)
	c.ExposedFilters = slices.Compact(filters)

	for id, filter := range c.PresetFilters {
		if filter.IsEmpty() {
			delete(c.PresetFilters, id)
			continue
		}
		filter.FacetID = id
		if filter.Operator == "" {
			filter.Operator = OperatorOr
		}
		c.PresetFilters[id] = filter
	}
}

// SortedPresetFilters returns the preset filters ordered by facet id.
func (c *ListPageConfiguration) SortedPresetFilters() []PresetFilter {
	ids := make([]string, 0, len(c.PresetFilters))
	for id := range c.PresetFilters {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]PresetFilter, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.PresetFilters[id])
	}
	return out
}
