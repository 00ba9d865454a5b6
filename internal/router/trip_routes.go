package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/handler"
	"github.com/iliyamo/festplanner/internal/middleware"
)

// RegisterTrips registers trip, membership, invitation and rating routes.
// Membership rules are enforced inside the handlers.
func RegisterTrips(e *echo.Echo, t *handler.TripHandler, inv *handler.InviteHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/trips", t.Create)
	g.GET("/trips", t.List)
	g.GET("/trips/:id", t.Get)
	g.PATCH("/trips/:id", t.Update)
	g.DELETE("/trips/:id", t.Delete)

	g.GET("/trips/:id/members", t.ListMembers)
	g.DELETE("/trips/:id/members/:memberId", t.RemoveMember)

	g.POST("/trips/:id/invitations", t.CreateInvitation, limiter)
	g.GET("/trips/:id/invitations", t.ListInvitations)
	g.GET("/invitations", t.MyInvitations)
	g.POST("/invitations/:token/accept", t.AcceptInvitation)
	g.DELETE("/invitations/:id", t.RevokeInvitation)

	g.PUT("/trips/:id/shows/:showId/rating", t.Rate)
	g.DELETE("/trips/:id/shows/:showId/rating", t.Unrate)
	g.GET("/trips/:id/ranking", t.Ranking)

	g.POST("/invite-user", inv.InviteUser, limiter)
}
