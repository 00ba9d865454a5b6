package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/handler"
	"github.com/iliyamo/festplanner/internal/middleware"
)

// RegisterCatalog registers festival, stage, show, band, import and upload
// routes.  Reads need a signed-in user; writes need a catalogue admin and
// purge the public response cache when they succeed.
func RegisterCatalog(e *echo.Echo, f *handler.FestivalHandler, b *handler.BandHandler, im *handler.ImportHandler, up *handler.UploadHandler, jwtSecret string, limiter, purge echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	admin := middleware.RequireAdmin()
	write := []echo.MiddlewareFunc{admin, purge}

	// ---- Festivals ----
	g.GET("/festivals", f.List)
	g.GET("/festivals/:id", f.Get)
	g.GET("/festivals/:id/lineup", f.Lineup)
	g.POST("/festivals", f.Create, write...)
	g.PATCH("/festivals/:id", f.Update, write...)
	g.DELETE("/festivals/:id", f.Delete, write...)

	// ---- Stages ----
	g.GET("/festivals/:id/stages", f.ListStages)
	g.POST("/festivals/:id/stages", f.CreateStage, write...)
	g.DELETE("/stages/:id", f.DeleteStage, write...)

	// ---- Shows ----
	g.GET("/festivals/:id/shows", f.ListShows)
	g.POST("/festivals/:id/shows", f.CreateShow, write...)
	g.PATCH("/shows/:id", f.UpdateShow, write...)
	g.DELETE("/shows/:id", f.DeleteShow, write...)

	// ---- Bands ----
	g.GET("/bands", b.List)
	g.GET("/bands/:id", b.Get)
	g.POST("/bands", b.Create, write...)
	g.PATCH("/bands/:id", b.Update, write...)
	g.DELETE("/bands/:id", b.Delete, write...)
	g.POST("/bands/:id/sync", b.SyncArtist, write...)
	g.POST("/bands/sync-missing", b.SyncMissing, write...)

	// ---- Imports ----
	g.POST("/bands/import/preview", im.PreviewBands, admin)
	g.POST("/bands/import", im.ImportBands, admin, limiter, purge)
	g.POST("/festivals/:id/lineup/preview", im.PreviewLineup, admin)
	g.POST("/festivals/:id/lineup/import", im.ImportLineup, admin, limiter, purge)

	// ---- Uploads ----
	g.POST("/uploads/:bucket", up.Upload, admin)
	g.POST("/uploads/:bucket/import-url", up.ImportURL, admin)
}
