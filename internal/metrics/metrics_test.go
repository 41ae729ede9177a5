package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
)

func TestRecordSearch(t *testing.T) {
	m := metrics.New()

	m.RecordSearch("list_facet_source:node:article", metrics.OutcomeOK, 20*time.Millisecond)
	m.RecordSearch("list_facet_source:node:article", metrics.OutcomeOK, 30*time.Millisecond)
	m.RecordSearch("list_facet_source:node:article", metrics.OutcomeUnavailable, time.Millisecond)

	if got := testutil.ToFloat64(m.SearchesTotal.WithLabelValues("list_facet_source:node:article", metrics.OutcomeOK)); got != 2 {
		t.Errorf("searches ok = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.SearchDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestRecorders(t *testing.T) {
	m := metrics.New()

	m.RecordSourceMiss("node")
	m.RecordSourceMiss(metrics.UnknownEntityType)
	m.RecordSkippedPresets("src", 0)
	m.RecordSkippedPresets("src", 3)
	m.RecordSourcesReload(nil)
	m.RecordSourcesReload(errors.New("bad yaml"))
	m.RecordConfigurationOp("save")

	if got := testutil.ToFloat64(m.SourceMisses.WithLabelValues("node")); got != 1 {
		t.Errorf("source misses = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.SourceMisses); got != 2 {
		t.Errorf("source miss series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.SkippedPresets.WithLabelValues("src")); got != 3 {
		t.Errorf("skipped presets = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.SourcesReloads.WithLabelValues("error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *metrics.Metrics
	m.RecordSearch("s", metrics.OutcomeError, time.Second)
	m.RecordSourceMiss("node")
	m.RecordSourcesReload(nil)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/v1/list-pages/:owner", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/list-pages/page-1", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/list-pages/:owner", http.MethodGet, "204")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "list_pages_http_requests_total") {
		t.Error("expected request counter in exposition output")
	}
}
