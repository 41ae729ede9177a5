package listpage

import (
	"context"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/filterfield"
)

// PresetDescription is the human readable summary of a preset filter.
type PresetDescription struct {
	FacetID     string          `json:"facet_id"`
	Label       string          `json:"label"`
	Operator    domain.Operator `json:"operator"`
	Description string          `json:"description"`
}

// AvailableFilters lists the facets of the source of entityType and bundle,
// ordered by id.
func (s *Service) AvailableFilters(_ context.Context, entityType, bundle string) ([]domain.Option, error) {
	src, err := s.sources.GetOrError(entityType, bundle)
	if err != nil {
		s.recordSourceMiss(entityType)
		return nil, err
	}

	available := src.AvailableFilters()
	ids := src.AvailableFilterIDs()
	options := make([]domain.Option, 0, len(ids))
	for _, id := range ids {
		options = append(options, domain.Option{Value: id, Label: available[id]})
	}
	return options, nil
}

// DescribePresetFilters describes every preset filter of cfg in facet id order.
// Filters whose field no longer resolves are described with an empty text.
func (s *Service) DescribePresetFilters(ctx context.Context, cfg *domain.ListPageConfiguration) ([]PresetDescription, error) {
	src, err := s.sources.GetOrError(cfg.SourceEntityType, cfg.SourceBundle)
	if err != nil {
		return nil, err
	}

	available := src.AvailableFilters()
	out := make([]PresetDescription, 0, len(cfg.PresetFilters))
	for _, filter := range cfg.SortedPresetFilters() {
		desc := PresetDescription{
			FacetID:  filter.FacetID,
			Label:    labelOr(available[filter.FacetID], filter.FacetID),
			Operator: filter.Operator,
		}
		if plugin, pluginErr := s.plugins.ForFacet(src, filter.FacetID, s.pluginDeps()); pluginErr == nil {
			desc.Description = plugin.DescribeDefaultValues(ctx, filter.Values)
		}
		out = append(out, desc)
	}
	return out, nil
}

// NormalizeFilterValues turns submitted values for facetID into stored values.
// Values that do not normalize are dropped and reported through an error
// wrapping ErrInvalidSubmittedValue; the returned values are still usable.
func (s *Service) NormalizeFilterValues(_ context.Context, cfg *domain.ListPageConfiguration, facetID string, raw []string) ([]string, error) {
	plugin, err := s.plugin(cfg, facetID)
	if err != nil {
		return nil, err
	}
	return plugin.NormalizeSubmittedValue(raw)
}

// DefaultValueInput describes the input for the preset value of facetID,
// pre-filled with the stored preset.
func (s *Service) DefaultValueInput(ctx context.Context, cfg *domain.ListPageConfiguration, facetID string) (filterfield.FormElement, error) {
	plugin, err := s.plugin(cfg, facetID)
	if err != nil {
		return filterfield.FormElement{}, err
	}

	var stored *domain.PresetFilter
	if filter, ok := cfg.PresetFilters[facetID]; ok {
		stored = &filter
	}
	return plugin.RenderDefaultValueInput(ctx, stored), nil
}

func (s *Service) plugin(cfg *domain.ListPageConfiguration, facetID string) (filterfield.Plugin, error) {
	if err := cfg.CheckComplete(); err != nil {
		return nil, err
	}
	src, err := s.sources.GetOrError(cfg.SourceEntityType, cfg.SourceBundle)
	if err != nil {
		return nil, err
	}
	return s.plugins.ForFacet(src, facetID, s.pluginDeps())
}
