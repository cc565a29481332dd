package api

import (
	"github.com/labstack/echo/v4"
)

// Router mounts both API surfaces on one Echo instance: the versioned
// /api/v1 JSON API and the legacy /api endpoints kept alive for dashboards
// that predate the v1 surface. The legacy handlers carry their own rate
// limiting and response caching, so they are wrapped as-is.
type Router struct {
	v1     *ScansEchoHandler
	legacy *ScansHandler
}

// NewRouter creates a router over both handler generations.
func NewRouter(v1 *ScansEchoHandler, legacy *ScansHandler) *Router {
	return &Router{v1: v1, legacy: legacy}
}

// RegisterRoutes implements pkg/http.Handler.
func (r *Router) RegisterRoutes(e *echo.Echo) {
	if r.v1 != nil {
		r.v1.RegisterRoutes(e)
	}
	if r.legacy != nil {
		g := e.Group("/api")
		g.GET("/latest", echo.WrapHandler(r.legacy.Latest()))
		g.GET("/top", echo.WrapHandler(r.legacy.Top()))
		g.GET("/score", echo.WrapHandler(r.legacy.Score()))
		g.GET("/history", echo.WrapHandler(r.legacy.History()))
		g.GET("/baseline", echo.WrapHandler(r.legacy.Baseline()))
	}
}
