package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteOptions holds the optional pieces of the route setup.
type RouteOptions struct {
	// Protect guards the mutating list page routes.
	Protect gin.HandlerFunc
	// Throttle guards the visitor facing search routes.
	Throttle gin.HandlerFunc
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, handler *Handler, opts RouteOptions) {
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/entity-types", handler.EntityTypes)
		v1.GET("/entity-types/:type/bundles", handler.Bundles)
		v1.GET("/sources/:type/:bundle/filters", handler.SourceFilters)

		pages := v1.Group("/list-pages/:owner")
		{
			pages.GET("", handler.GetListPage)
			pages.GET("/filters/:facet/input", handler.FilterInput)
			pages.POST("/filters/:facet/normalize", handler.NormalizeFilter)

			pages.GET("/results", chain(opts.Throttle, handler.Results)...)
			pages.GET("/links", chain(opts.Throttle, handler.Links)...)

			pages.PUT("", chain(opts.Protect, handler.PutListPage)...)
			pages.DELETE("", chain(opts.Protect, handler.DeleteListPage)...)
		}
	}
}

func chain(guard, h gin.HandlerFunc) []gin.HandlerFunc {
	if guard == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{guard, h}
}
