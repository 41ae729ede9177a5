package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/list-pages/internal/server"
)

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		rps   float64
		burst int
		calls int
		want  []int
	}{
		{name: "disabled", rps: 0, calls: 3, want: []int{200, 200, 200}},
		{name: "burst then shed", rps: 0.001, burst: 2, calls: 3, want: []int{200, 200, 429}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/results", server.RateLimitMiddleware(tt.rps, tt.burst), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			for i := range tt.calls {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results", http.NoBody))
				assert.Equal(t, tt.want[i], w.Code, "call %d", i)
			}
		})
	}
}
