// Package metrics exports Prometheus metrics for list page queries and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "list_pages"

// Search outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// UnknownEntityType labels source misses for entity types the sources file
// does not declare.
const UnknownEntityType = "unknown"

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	SourceMisses    *prometheus.CounterVec
	SkippedPresets  *prometheus.CounterVec
	SourcesReloads  *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ConfigurationOp *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "List page searches by source and outcome",
		}, []string{"source", "outcome"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time to run a list page search including facet builds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"source"}),
		SourceMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_misses_total",
			Help:      "Lookups of an entity type and bundle no enabled index serves",
		}, []string{"entity_type"}),
		SkippedPresets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preset_filters_skipped_total",
			Help:      "Preset filters skipped because their field did not resolve",
		}, []string{"source"}),
		SourcesReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_reloads_total",
			Help:      "Sources file reloads by result",
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ConfigurationOp: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_operations_total",
			Help:      "List page configuration writes by operation",
		}, []string{"operation"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSearch counts one search and observes its duration.
func (m *Metrics) RecordSearch(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(source, outcome).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordSourceMiss counts a lookup that found no list source. entityType must
// come from the sources file, or be UnknownEntityType for anything else.
func (m *Metrics) RecordSourceMiss(entityType string) {
	if m == nil {
		return
	}
	m.SourceMisses.WithLabelValues(entityType).Inc()
}

// RecordSkippedPresets counts preset filters left out of a query.
func (m *Metrics) RecordSkippedPresets(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SkippedPresets.WithLabelValues(source).Add(float64(n))
}

// RecordSourcesReload counts a sources file reload.
func (m *Metrics) RecordSourcesReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SourcesReloads.WithLabelValues(result).Inc()
}

// RecordConfigurationOp counts a configuration write.
func (m *Metrics) RecordConfigurationOp(operation string) {
	if m == nil {
		return
	}
	m.ConfigurationOp.WithLabelValues(operation).Inc()
}

// Middleware records request counts and latency by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
