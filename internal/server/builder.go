package server

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

// Builder assembles a Server.
type Builder struct {
	config       *Config
	log          logger.Logger
	middleware   []gin.HandlerFunc
	setupRoutes  func(*gin.Engine)
	healthChecks map[string]HealthChecker
}

// NewBuilder starts a builder for serviceName on port.
func NewBuilder(serviceName string, port int) *Builder {
	return &Builder{
		config:       &Config{ServiceName: serviceName, Port: port},
		healthChecks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	b.log = log
	return b
}

// WithDebug toggles gin debug mode.
func (b *Builder) WithDebug(debug bool) *Builder {
	b.config.Debug = debug
	return b
}

// WithVersion sets the version reported by /health.
func (b *Builder) WithVersion(version string) *Builder {
	b.config.ServiceVersion = version
	return b
}

// WithCORS configures CORS.
func (b *Builder) WithCORS(cfg CORSConfig) *Builder {
	b.config.CORS = cfg
	return b
}

// WithMiddleware appends middleware run after the standard chain.
func (b *Builder) WithMiddleware(mw ...gin.HandlerFunc) *Builder {
	b.middleware = append(b.middleware, mw...)
	return b
}

// WithHealthCheck adds a named check to /health and /ready.
func (b *Builder) WithHealthCheck(name string, checker HealthChecker) *Builder {
	b.healthChecks[name] = checker
	return b
}

// WithRoutes sets the service route setup.
func (b *Builder) WithRoutes(setupRoutes func(*gin.Engine)) *Builder {
	b.setupRoutes = setupRoutes
	return b
}

// Build creates the server.
func (b *Builder) Build() *Server {
	if b.log == nil {
		b.log = logger.NewNop()
	}

	setup := func(router *gin.Engine) {
		RegisterHealthRoutes(router, HealthOptions{
			ServiceName:    b.config.ServiceName,
			ServiceVersion: b.config.ServiceVersion,
			Checks:         b.healthChecks,
		})
		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	}
	return New(b.config, b.log, b.middleware, setup)
}
