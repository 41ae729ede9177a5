package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the status of a health check.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of one named check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker performs a single health check.
type HealthChecker func(ctx context.Context) CheckResult

// HealthOptions configures the health endpoints.
type HealthOptions struct {
	ServiceName    string
	ServiceVersion string
	StartTime      time.Time
	Checks         map[string]HealthChecker
}

// PingChecker adapts a ping function. A failing ping is reported with status
// onFailure, so optional dependencies can degrade rather than fail readiness.
func PingChecker(ping func(ctx context.Context) error, onFailure HealthStatus) HealthChecker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		err := ping(ctx)
		res := CheckResult{Status: HealthStatusHealthy, Latency: time.Since(start).Round(time.Millisecond).String()}
		if err != nil {
			res.Status = onFailure
			res.Message = err.Error()
		}
		return res
	}
}

// RegisterHealthRoutes adds GET/HEAD /health (liveness, always 200) and
// GET /ready (503 while any check is unhealthy).
func RegisterHealthRoutes(router *gin.Engine, opts HealthOptions) {
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, runChecks(c.Request.Context(), opts))
	})
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/ready", func(c *gin.Context) {
		resp := runChecks(c.Request.Context(), opts)
		status := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	})
}

func runChecks(ctx context.Context, opts HealthOptions) HealthResponse {
	resp := HealthResponse{
		Status:  HealthStatusHealthy,
		Service: opts.ServiceName,
		Version: opts.ServiceVersion,
		Uptime:  time.Since(opts.StartTime).Round(time.Second).String(),
	}
	if len(opts.Checks) == 0 {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	resp.Checks = make(map[string]CheckResult, len(opts.Checks))
	for name, check := range opts.Checks {
		res := check(ctx)
		resp.Checks[name] = res
		switch res.Status {
		case HealthStatusUnhealthy:
			resp.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if resp.Status == HealthStatusHealthy {
				resp.Status = HealthStatusDegraded
			}
		case HealthStatusHealthy:
		}
	}
	return resp
}
