package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/metrics"
	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/ranking"
)

type ratingReq struct {
	Rating int `json:"rating" validate:"required,min=1,max=10"`
}

// tripShow loads the trip and checks that the show belongs to the trip's
// festival.  A non-empty message means the request is unacceptable.
func (h *TripHandler) tripShow(ctx context.Context, tripID, showID string) (*model.Trip, string, error) {
	t, err := h.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, "", err
	}
	if t.FestivalID == nil {
		return t, "trip is not linked to a festival", nil
	}
	s, err := h.Shows.GetByID(ctx, showID)
	if err != nil {
		return nil, "", err
	}
	if s.FestivalID != *t.FestivalID {
		return t, "show is not part of this trip's festival", nil
	}
	return t, "", nil
}

// Rate sets the caller's 1..10 rating for a show, replacing an earlier
// one.
func (h *TripHandler) Rate(c echo.Context) error {
	var req ratingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	tripID, showID, uid := c.Param("id"), c.Param("showId"), middleware.UserID(c)
	if _, err := h.memberRole(ctx, tripID, uid); err != nil {
		return fail(c, err)
	}
	_, msg, err := h.tripShow(ctx, tripID, showID)
	if err != nil {
		return fail(c, err)
	}
	if msg != "" {
		return badRequest(c, msg)
	}
	r, err := h.Ratings.Upsert(ctx, tripID, showID, uid, req.Rating)
	if err != nil {
		return fail(c, err)
	}
	metrics.TrackRating("set")
	return c.JSON(http.StatusOK, r)
}

// Unrate withdraws the caller's rating.
func (h *TripHandler) Unrate(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	tripID, uid := c.Param("id"), middleware.UserID(c)
	if _, err := h.memberRole(ctx, tripID, uid); err != nil {
		return fail(c, err)
	}
	if err := h.Ratings.Delete(ctx, tripID, c.Param("showId"), uid); err != nil {
		return fail(c, err)
	}
	metrics.TrackRating("withdraw")
	return c.NoContent(http.StatusNoContent)
}

// Ranking returns the trip's leaderboard over its festival's shows.
func (h *TripHandler) Ranking(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	tripID, uid := c.Param("id"), middleware.UserID(c)
	if _, err := h.memberRole(ctx, tripID, uid); err != nil {
		return fail(c, err)
	}
	t, err := h.Trips.GetByID(ctx, tripID)
	if err != nil {
		return fail(c, err)
	}
	if t.FestivalID == nil {
		return c.JSON(http.StatusOK, items([]ranking.Entry{}))
	}
	shows, err := h.Shows.ListByFestival(ctx, *t.FestivalID)
	if err != nil {
		return fail(c, err)
	}
	ratings, err := h.Ratings.ListByTrip(ctx, tripID)
	if err != nil {
		return fail(c, err)
	}

	info := make([]ranking.ShowInfo, len(shows))
	for i, s := range shows {
		info[i] = ranking.ShowInfo{ShowID: s.ID, BandName: s.BandName, StageName: s.StageName, StartTime: s.StartTime}
	}
	votes := make([]ranking.Vote, len(ratings))
	for i, r := range ratings {
		votes[i] = ranking.Vote{ShowID: r.ShowID, UserID: r.UserID, Rating: r.Rating}
	}
	return c.JSON(http.StatusOK, items(ranking.Aggregate(info, votes, uid)))
}
