// Package listpage ties list page configurations to their list sources: it
// persists configurations, runs filtered searches and link lists, and exposes
// the per-field filter helpers an administration UI needs.
package listpage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/events"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/filterfield"
	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
)

const tracerName = "list-pages"

// ErrFilterNotAvailable is returned by Save for exposed or preset filters the
// list source does not offer.
var ErrFilterNotAvailable = errors.New("filter not available on list source")

// Catalog answers which entity types and bundles are searchable.
type Catalog interface {
	EntityTypes() []index.EntityType
	Bundles(entityType string) []index.Bundle
	IndexFor(entityType, bundle string) (*index.Index, bool)
	IndexForEntityType(entityType string) (*index.Index, bool)
}

// Repository stores configurations, one per owner.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*domain.ListPageConfiguration, error)
	Save(ctx context.Context, cfg *domain.ListPageConfiguration) (created bool, err error)
	Delete(ctx context.Context, ownerID string) error
}

// Publisher announces configuration changes in the background.
type Publisher interface {
	PublishAsync(event events.ListPageEvent)
}

// BundleOptions is what the bundle hook chain alters.
type BundleOptions struct {
	EntityType string
	Options    []domain.Option
}

// DefaultMaxResultWindow matches the Elasticsearch index.max_result_window default.
const DefaultMaxResultWindow = 10000

// Defaults are the configured list page defaults.
type Defaults struct {
	EntityType string
	Limit      int
	MaxLimit   int
	// MaxResultWindow bounds offset+limit of a search. Zero means
	// DefaultMaxResultWindow.
	MaxResultWindow int
	LinkBaseURL     string
}

// Service is the list page entry point used by the HTTP API.
type Service struct {
	catalog    Catalog
	sources    *listsource.Factory
	repo       Repository
	publisher  Publisher
	storage    entity.Storage
	queryTypes *facet.Registry
	processors *facet.Processors
	plugins    *filterfield.Registry

	entityTypeHooks *hooks.Chain[[]domain.Option]
	bundleHooks     *hooks.Chain[BundleOptions]

	clock    facet.Clock
	defaults Defaults
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	log      logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRepository sets the configuration store. Without one, Get returns
// defaults and Save fails.
func WithRepository(repo Repository) Option {
	return func(s *Service) { s.repo = repo }
}

// WithPublisher sets the change event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithStorage sets the entity storage used for labels.
func WithStorage(storage entity.Storage) Option {
	return func(s *Service) { s.storage = storage }
}

// WithQueryTypes replaces the facet query types.
func WithQueryTypes(r *facet.Registry) Option {
	return func(s *Service) { s.queryTypes = r }
}

// WithProcessors replaces the facet processors.
func WithProcessors(p *facet.Processors) Option {
	return func(s *Service) { s.processors = p }
}

// WithPlugins replaces the filter field plugins.
func WithPlugins(r *filterfield.Registry) Option {
	return func(s *Service) { s.plugins = r }
}

// WithEntityTypeHooks sets the chain altering entity type options.
func WithEntityTypeHooks(c *hooks.Chain[[]domain.Option]) Option {
	return func(s *Service) { s.entityTypeHooks = c }
}

// WithBundleHooks sets the chain altering bundle options.
func WithBundleHooks(c *hooks.Chain[BundleOptions]) Option {
	return func(s *Service) { s.bundleHooks = c }
}

// WithClock sets the clock date facets compare against.
func WithClock(c facet.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithDefaults sets the list page defaults.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates the service over catalog and sources.
func NewService(catalog Catalog, sources *listsource.Factory, opts ...Option) *Service {
	s := &Service{
		catalog:  catalog,
		sources:  sources,
		clock:    facet.SystemClock,
		defaults: Defaults{EntityType: "node", Limit: 10, MaxLimit: 100},
		tracer:   otel.Tracer(tracerName),
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaults.MaxResultWindow <= 0 {
		s.defaults.MaxResultWindow = DefaultMaxResultWindow
	}
	if s.queryTypes == nil {
		s.queryTypes = facet.DefaultRegistry()
	}
	if s.processors == nil {
		s.processors = facet.DefaultProcessors(s.storage)
	}
	if s.plugins == nil {
		s.plugins = filterfield.DefaultRegistry()
	}
	return s
}

// EntityTypeOptions lists the entity types some enabled index serves, altered
// by the entity type hooks.
func (s *Service) EntityTypeOptions(ctx context.Context) []domain.Option {
	var options []domain.Option
	for _, et := range s.catalog.EntityTypes() {
		if _, ok := s.catalog.IndexForEntityType(et.ID); !ok {
			continue
		}
		options = append(options, domain.Option{Value: et.ID, Label: labelOr(et.Label, et.ID)})
	}
	return s.entityTypeHooks.Run(ctx, options)
}

// BundleOptions lists the bundles of entityType that an enabled index serves,
// altered by the bundle hooks.
func (s *Service) BundleOptions(ctx context.Context, entityType string) []domain.Option {
	var options []domain.Option
	for _, b := range s.catalog.Bundles(entityType) {
		if _, ok := s.catalog.IndexFor(entityType, b.ID); !ok {
			continue
		}
		options = append(options, domain.Option{Value: b.ID, Label: labelOr(b.Label, b.ID)})
	}
	altered := s.bundleHooks.Run(ctx, BundleOptions{EntityType: entityType, Options: options})
	return altered.Options
}

// DefaultConfiguration returns the configuration a new list page starts with:
// the default entity type and its first bundle.
func (s *Service) DefaultConfiguration(ctx context.Context, ownerID string) *domain.ListPageConfiguration {
	cfg := &domain.ListPageConfiguration{
		OwnerID:          ownerID,
		SourceEntityType: s.defaults.EntityType,
		PresetFilters:    map[string]domain.PresetFilter{},
		ExposedFilters:   []string{},
	}
	if bundles := s.BundleOptions(ctx, cfg.SourceEntityType); len(bundles) > 0 {
		cfg.SourceBundle = bundles[0].Value
	}
	return cfg
}

// Get returns the stored configuration of ownerID, or the defaults when none is stored.
func (s *Service) Get(ctx context.Context, ownerID string) (*domain.ListPageConfiguration, error) {
	if s.repo == nil {
		return s.DefaultConfiguration(ctx, ownerID), nil
	}
	cfg, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, domain.ErrConfigurationNotFound) {
		return s.DefaultConfiguration(ctx, ownerID), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveResult reports what Save stored.
type SaveResult struct {
	Created bool `json:"created"`
	// Rejected describes the preset values that did not normalize and were
	// left out of the stored configuration.
	Rejected []string `json:"rejected,omitempty"`
}

// Save validates and stores cfg. Incomplete configurations are rejected with
// ErrConfigurationIncomplete and not persisted. Preset values are normalized
// through the filter field plugin of their facet; values that do not
// normalize are dropped, reported in the result, and the rest is stored.
func (s *Service) Save(ctx context.Context, cfg *domain.ListPageConfiguration) (SaveResult, error) {
	if s.repo == nil {
		return SaveResult{}, errors.New("no configuration store")
	}
	if cfg.PresetFilters == nil {
		cfg.PresetFilters = map[string]domain.PresetFilter{}
	}
	cfg.Normalize()
	if err := cfg.CheckComplete(); err != nil {
		return SaveResult{}, err
	}
	rejected, err := s.validate(cfg)
	if err != nil {
		return SaveResult{}, err
	}

	created, err := s.repo.Save(ctx, cfg)
	if err != nil {
		return SaveResult{}, err
	}

	eventType := events.ListPageUpdated
	if created {
		eventType = events.ListPageCreated
	}
	s.publish(events.NewEvent(eventType, cfg))
	s.metrics.RecordConfigurationOp(string(eventType))

	if len(rejected) > 0 {
		s.log.Info("Preset values rejected",
			logger.OwnerID(cfg.OwnerID),
			logger.Strings("rejected", rejected),
		)
	}
	return SaveResult{Created: created, Rejected: rejected}, nil
}

// validate checks the filters of cfg against its source and normalizes preset
// values in place. Unknown filters fail the save; malformed preset values are
// dropped and returned as rejections.
func (s *Service) validate(cfg *domain.ListPageConfiguration) ([]string, error) {
	src, err := s.sources.GetOrError(cfg.SourceEntityType, cfg.SourceBundle)
	if err != nil {
		return nil, err
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	if s.defaults.MaxLimit > 0 && cfg.Limit > s.defaults.MaxLimit {
		cfg.Limit = s.defaults.MaxLimit
	}

	available := src.AvailableFilters()
	var unknown []string
	for _, id := range cfg.ExposedFilters {
		if _, ok := available[id]; !ok {
			unknown = append(unknown, id)
		}
	}

	var rejected []string
	for _, id := range slices.Sorted(maps.Keys(cfg.PresetFilters)) {
		filter := cfg.PresetFilters[id]
		filter.FacetID = id
		if _, ok := available[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		plugin, pluginErr := s.plugins.ForFacet(src, id, s.pluginDeps())
		if pluginErr != nil {
			unknown = append(unknown, id)
			continue
		}

		values, normErr := plugin.NormalizeSubmittedValue(filter.Values)
		rejected = append(rejected, rejections(id, normErr)...)
		filter.Values = values
		if filter.IsEmpty() {
			delete(cfg.PresetFilters, id)
			continue
		}
		if validErr := filter.Validate(); validErr != nil {
			rejected = append(rejected, validErr.Error())
			delete(cfg.PresetFilters, id)
			continue
		}
		cfg.PresetFilters[id] = filter
	}

	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("%s on %s: %w", strings.Join(unknown, ", "), src.SearchID(), ErrFilterNotAvailable)
	}
	return rejected, nil
}

// rejections flattens a normalization error into one message per value.
func rejections(facetID string, err error) []string {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, "preset filter "+facetID+": "+e.Error())
	}
	return out
}

// Delete removes the configuration of ownerID.
func (s *Service) Delete(ctx context.Context, ownerID string) error {
	if s.repo == nil {
		return errors.New("no configuration store")
	}
	if err := s.repo.Delete(ctx, ownerID); err != nil {
		return err
	}
	s.publish(events.ListPageEvent{EventType: events.ListPageDeleted, OwnerID: ownerID})
	s.metrics.RecordConfigurationOp(string(events.ListPageDeleted))
	return nil
}

// publish hands event to the publisher without tying it to the request
// context. Publish failures are logged by the publisher.
func (s *Service) publish(event events.ListPageEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishAsync(event)
}

// source returns the list source of cfg, or nil when cfg is incomplete or no
// index serves it.
func (s *Service) source(cfg *domain.ListPageConfiguration) *listsource.ListSource {
	if !cfg.IsConfigured() {
		return nil
	}
	src := s.sources.Get(cfg.SourceEntityType, cfg.SourceBundle)
	if src == nil {
		s.recordSourceMiss(cfg.SourceEntityType)
	}
	return src
}

// recordSourceMiss labels the miss with entityType only when the sources file
// declares it, so request input never creates new series.
func (s *Service) recordSourceMiss(entityType string) {
	label := metrics.UnknownEntityType
	for _, et := range s.catalog.EntityTypes() {
		if et.ID == entityType {
			label = et.ID
			break
		}
	}
	s.metrics.RecordSourceMiss(label)
}

func (s *Service) pluginDeps() filterfield.Dependencies {
	return filterfield.Dependencies{Storage: s.storage, Processors: s.processors}
}

// limit resolves the page size: the requested one, else the configuration's,
// else the default, capped at the maximum.
func (s *Service) limit(requested int, cfg *domain.ListPageConfiguration) int {
	limit := requested
	if limit <= 0 && cfg != nil {
		limit = cfg.Limit
	}
	if limit <= 0 {
		limit = s.defaults.Limit
	}
	if s.defaults.MaxLimit > 0 && limit > s.defaults.MaxLimit {
		limit = s.defaults.MaxLimit
	}
	return limit
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}
