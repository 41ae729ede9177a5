package listpage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
	"github.com/jonesrussell/north-cloud/list-pages/internal/preset"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// Request is a visitor's search on a list page.
type Request struct {
	// Active holds the selected values per exposed facet id.
	Active map[string][]string
	// Page is 1-based and counted in pages of the effective limit. When set
	// it takes precedence over Offset.
	Page      int
	Offset    int
	Limit     int
	Languages []string
}

// Item is one listed entity.
type Item struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	URL    string         `json:"url"`
	Bundle string         `json:"bundle"`
	Fields map[string]any `json:"fields,omitempty"`
}

// FacetView is a built facet of the search.
type FacetView struct {
	ID            string              `json:"id"`
	Label         string              `json:"label"`
	QueryType     string              `json:"query_type"`
	Results       []facet.Result      `json:"results"`
	EmptyBehavior index.EmptyBehavior `json:"empty_behavior"`
}

// SearchResult is one page of a list page search.
type SearchResult struct {
	Total  int64       `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Items  []Item      `json:"items"`
	Facets []FacetView `json:"facets"`
}

func emptyResult(offset, limit int) *SearchResult {
	return &SearchResult{Offset: offset, Limit: limit, Items: []Item{}, Facets: []FacetView{}}
}

// Search runs a visitor search: preset filters, then the active selections of
// exposed facets, then pagination. A list page without a searchable source
// yields an empty result.
func (s *Service) Search(ctx context.Context, cfg *domain.ListPageConfiguration, req Request) (*SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "listpage.Search")
	defer span.End()

	start := time.Now()
	limit := s.limit(req.Limit, cfg)
	offset := max(req.Offset, 0)
	if req.Page > 0 {
		offset = (req.Page - 1) * limit
	}
	if window := s.defaults.MaxResultWindow; window > 0 && offset+limit > window {
		return nil, fmt.Errorf("offset %d with limit %d is beyond the result window of %d: %w",
			offset, limit, window, domain.ErrInvalidSubmittedValue)
	}

	src := s.source(cfg)
	if src == nil {
		span.SetAttributes(attribute.Bool("list_page.source_available", false))
		return emptyResult(offset, limit), nil
	}
	span.SetAttributes(
		attribute.String("list_page.source", src.SearchID()),
		attribute.Int("list_page.limit", limit),
		attribute.Int("list_page.offset", offset),
	)

	q, err := src.Query(ctx, query.Options{Offset: offset, Limit: limit, Languages: req.Languages})
	if err != nil {
		return s.degrade(src, start, offset, limit, err)
	}

	s.applyPresets(q, src, cfg)

	now := s.clock.Now()
	exposed := s.exposedFacets(src, cfg)
	for _, ef := range exposed {
		ef.queryType.Apply(q, ef.facet, req.Active[ef.facet.ID], now)
	}

	rs, err := q.Execute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.degrade(src, start, offset, limit, err)
	}

	result := &SearchResult{
		Total:  rs.Total,
		Offset: offset,
		Limit:  limit,
		Items:  make([]Item, 0, len(rs.Items)),
		Facets: make([]FacetView, 0, len(exposed)),
	}
	for _, hit := range rs.Items {
		link := s.link(src, hit)
		result.Items = append(result.Items, Item{
			ID:     link.ID,
			Label:  link.Label,
			URL:    link.URL,
			Bundle: link.Bundle,
			Fields: hit.Source,
		})
	}
	for _, ef := range exposed {
		result.Facets = append(result.Facets, s.buildFacet(ctx, ef, rs.Facets[ef.facet.ID], req.Active[ef.facet.ID], now))
	}

	s.metrics.RecordSearch(src.SearchID(), metrics.OutcomeOK, time.Since(start))
	span.SetAttributes(attribute.Int64("list_page.total", rs.Total))
	return result, nil
}

func (s *Service) degrade(src *listsource.ListSource, start time.Time, offset, limit int, err error) (*SearchResult, error) {
	if errors.Is(err, domain.ErrSourceUnavailable) {
		s.log.Warn("List source unavailable",
			logger.String("source", src.SearchID()),
			logger.Error(err),
		)
		s.metrics.RecordSearch(src.SearchID(), metrics.OutcomeUnavailable, time.Since(start))
		return emptyResult(offset, limit), nil
	}
	s.metrics.RecordSearch(src.SearchID(), metrics.OutcomeError, time.Since(start))
	return nil, fmt.Errorf("search %s: %w", src.SearchID(), err)
}

func (s *Service) applyPresets(q *query.Query, src *listsource.ListSource, cfg *domain.ListPageConfiguration) {
	if err := preset.ApplyAll(q, src, cfg, s.log); err != nil {
		n := 1
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			n = len(joined.Unwrap())
		}
		s.metrics.RecordSkippedPresets(src.SearchID(), n)
	}
}

type exposedFacet struct {
	facet     index.Facet
	field     index.FieldDescriptor
	queryType facet.QueryType
}

// exposedFacets resolves the exposed filters of cfg on src. Filters that no
// longer resolve or have an unknown query type are left out.
func (s *Service) exposedFacets(src *listsource.ListSource, cfg *domain.ListPageConfiguration) []exposedFacet {
	out := make([]exposedFacet, 0, len(cfg.ExposedFilters))
	for _, id := range cfg.ExposedFilters {
		f, field, err := src.ResolveFacet(id)
		if err != nil {
			s.log.Debug("Exposed filter not resolved", logger.FacetID(id), logger.Error(err))
			continue
		}
		qt, err := s.queryTypes.Get(f.QueryType)
		if err != nil {
			s.log.Warn("Exposed filter skipped", logger.FacetID(id), logger.Error(err))
			continue
		}
		out = append(out, exposedFacet{facet: f, field: field, queryType: qt})
	}
	return out
}

func (s *Service) buildFacet(ctx context.Context, ef exposedFacet, buckets []query.Bucket, active []string, now time.Time) FacetView {
	results := ef.queryType.Build(ef.facet, buckets, now)
	if processed, err := s.processors.Run(ctx, ef.facet, ef.field, results); err != nil {
		s.log.Warn("Facet processors failed", logger.FacetID(ef.facet.ID), logger.Error(err))
	} else {
		results = processed
	}
	if results == nil {
		results = []facet.Result{}
	}

	return FacetView{
		ID:            ef.facet.ID,
		Label:         labelOr(ef.facet.Label, ef.field.Label),
		QueryType:     ef.queryType.ID(),
		Results:       facet.MarkActive(results, active),
		EmptyBehavior: ef.facet.EmptyBehavior,
	}
}

// GetLinks returns up to limit links of the list page in index order. A zero
// limit means the configured one. An unconfigured list page has no links.
func (s *Service) GetLinks(ctx context.Context, cfg *domain.ListPageConfiguration, limit int) ([]domain.Link, error) {
	ctx, span := s.tracer.Start(ctx, "listpage.GetLinks")
	defer span.End()

	src := s.source(cfg)
	if src == nil {
		return []domain.Link{}, nil
	}

	q, err := src.Query(ctx, query.Options{Limit: s.limit(limit, cfg)})
	if errors.Is(err, domain.ErrSourceUnavailable) {
		return []domain.Link{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.applyPresets(q, src, cfg)

	rs, err := q.Execute(ctx)
	if errors.Is(err, domain.ErrSourceUnavailable) {
		return []domain.Link{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("links %s: %w", src.SearchID(), err)
	}

	links := make([]domain.Link, 0, len(rs.Items))
	for _, hit := range rs.Items {
		links = append(links, s.link(src, hit))
	}
	span.SetAttributes(attribute.Int("list_page.links", len(links)))
	return links, nil
}

func (s *Service) link(src *listsource.ListSource, hit query.Item) domain.Link {
	e := entity.FromDocument(src.EntityType(), src.Datasource(), hit.ID, hit.Source)
	bundle := e.Bundle
	if bundle == "" {
		bundle = src.Bundle()
	}
	return domain.Link{
		ID:         e.ID,
		Label:      e.Label,
		URL:        s.linkURL(src, e.ID, bundle),
		EntityType: src.EntityType(),
		Bundle:     bundle,
	}
}

// linkURL expands the datasource URL pattern. {entity_type}, {bundle} and
// {id} are replaced; the default pattern is /{entity_type}/{id}.
func (s *Service) linkURL(src *listsource.ListSource, id, bundle string) string {
	pattern := src.Datasource().URLPattern
	if pattern == "" {
		pattern = "/{entity_type}/{id}"
	}
	path := strings.NewReplacer(
		"{entity_type}", src.EntityType(),
		"{bundle}", bundle,
		"{id}", id,
	).Replace(pattern)
	return strings.TrimSuffix(s.defaults.LinkBaseURL, "/") + path
}
