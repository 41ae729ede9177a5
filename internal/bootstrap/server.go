package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/list-pages/internal/api"
	"github.com/jonesrussell/north-cloud/list-pages/internal/config"
	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listpage"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
	"github.com/jonesrussell/north-cloud/list-pages/internal/server"
)

// SetupService builds the list page service. The clock runs in the
// configured timezone.
func SetupService(cfg *config.Config, search *Search, storage *Storage, m *metrics.Metrics, log logger.Logger) (*listpage.Service, error) {
	loc, err := time.LoadLocation(cfg.ListPages.Timezone)
	if err != nil {
		return nil, err
	}

	opts := []listpage.Option{
		listpage.WithRepository(storage.Repository),
		listpage.WithStorage(search.Storage),
		listpage.WithClock(facet.ClockFunc(func() time.Time { return time.Now().In(loc) })),
		listpage.WithDefaults(listpage.Defaults{
			EntityType:      cfg.ListPages.DefaultEntityType,
			Limit:           cfg.ListPages.DefaultLimit,
			MaxLimit:        cfg.ListPages.MaxLimit,
			MaxResultWindow: cfg.ListPages.MaxResultWindow,
			LinkBaseURL:     cfg.ListPages.LinkBaseURL,
		}),
		listpage.WithEntityTypeHooks(hooks.NewChain[[]domain.Option]()),
		listpage.WithBundleHooks(hooks.NewChain[listpage.BundleOptions]()),
		listpage.WithMetrics(m),
		listpage.WithLogger(log),
	}
	if storage.Publisher != nil {
		opts = append(opts, listpage.WithPublisher(storage.Publisher))
	}
	return listpage.NewService(search.Registry, search.Sources, opts...), nil
}

// SetupHTTPServer builds the HTTP server with health checks, metrics and the API routes.
func SetupHTTPServer(
	cfg *config.Config,
	svc *listpage.Service,
	search *Search,
	storage *Storage,
	m *metrics.Metrics,
	log logger.Logger,
) *server.Server {
	if cfg.Auth.JWTSecret == "" {
		log.Warn("No JWT secret configured, list page writes are rejected")
	}

	builder := server.NewBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORS(server.CORSConfig{
			Enabled:          cfg.CORS.Enabled,
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
		}).
		WithMiddleware(m.Middleware(), queryTimeout(cfg.Service.QueryTimeout)).
		WithHealthCheck("elasticsearch", server.PingChecker(search.ES.HealthCheck, server.HealthStatusUnhealthy)).
		WithHealthCheck("postgres", server.PingChecker(storage.Repository.Ping, server.HealthStatusUnhealthy)).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, api.NewHandler(svc), api.RouteOptions{
				Protect:  server.JWTMiddleware(cfg.Auth.JWTSecret),
				Throttle: server.RateLimitMiddleware(cfg.Service.RateLimitRPS, cfg.Service.RateLimitBurst),
				Metrics:  m.Handler(),
			})
		})

	if storage.Redis != nil {
		builder.WithHealthCheck("redis", server.PingChecker(func(ctx context.Context) error {
			return storage.Redis.Ping(ctx).Err()
		}, server.HealthStatusDegraded))
	}
	return builder.Build()
}

// queryTimeout bounds each request's backend calls.
func queryTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
