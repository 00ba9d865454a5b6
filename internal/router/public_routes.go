package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/handler"
)

// RegisterPublic registers the anonymous festival browse routes.  Responses
// are cached in Redis for the configured TTL.
func RegisterPublic(e *echo.Echo, f *handler.FestivalHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/public/festivals", f.ListPublic, cache)
	e.GET("/v1/public/festivals/:id/lineup", f.PublicLineup, cache)
}
