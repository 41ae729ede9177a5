package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/list-pages/internal/config"
	"github.com/jonesrussell/north-cloud/list-pages/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listsource"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
)

// Search bundles the search side of the service.
type Search struct {
	ES         *elasticsearch.Client
	Registry   *index.Registry
	Sources    *listsource.Factory
	Storage    *entity.IndexStorage
	FacetHooks *hooks.Chain[index.Facet]
}

// DefaultEmptyBehavior hides facets without results unless the sources file
// says otherwise.
func DefaultEmptyBehavior(_ context.Context, f index.Facet) index.Facet {
	if f.EmptyBehavior.Behavior == "" {
		f.EmptyBehavior.Behavior = "none"
	}
	return f
}

// SetupSearch connects to Elasticsearch, loads the sources file and, when
// enabled, starts watching it.
func SetupSearch(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log logger.Logger) (*Search, error) {
	log.Info("Connecting to Elasticsearch", logger.String("url", cfg.Elasticsearch.URL))
	esClient, err := elasticsearch.NewClient(ctx, elasticsearch.Config{
		URL:         cfg.Elasticsearch.URL,
		Username:    cfg.Elasticsearch.Username,
		Password:    cfg.Elasticsearch.Password,
		APIKey:      cfg.Elasticsearch.APIKey,
		MaxRetries:  cfg.Elasticsearch.MaxRetries,
		PingTimeout: cfg.Elasticsearch.PingTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	facetHooks := hooks.NewChain[index.Facet]()
	facetHooks.Register("default_empty_behavior", DefaultEmptyBehavior)
	registry := index.NewRegistry(cfg.Sources.Path,
		index.WithLogger(log),
		index.WithFacetHooks(facetHooks),
		index.WithReloadObserver(m.RecordSourcesReload),
	)
	if err = registry.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load sources %s: %w", cfg.Sources.Path, err)
	}
	m.RecordSourcesReload(nil)
	log.Info("Sources loaded",
		logger.String("path", cfg.Sources.Path),
		logger.Int("indexes", len(registry.Indexes())),
		logger.Strings("facet_hooks", facetHooks.Names()),
	)

	if cfg.Sources.Watch {
		if err = registry.Watch(ctx); err != nil {
			return nil, err
		}
		log.Info("Watching sources file for changes", logger.String("path", cfg.Sources.Path))
	}

	return &Search{
		ES:         esClient,
		Registry:   registry,
		Sources:    listsource.NewFactory(registry, esClient, listsource.WithAvailability(esClient)),
		Storage:    entity.NewIndexStorage(esClient, registry),
		FacetHooks: facetHooks,
	}, nil
}
