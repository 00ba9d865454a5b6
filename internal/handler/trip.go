package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/queue"
	"github.com/iliyamo/festplanner/internal/repository"
)

// InvitationNotifier delivers trip invitation emails.
type InvitationNotifier interface {
	InvitationCreated(ctx context.Context, ev queue.InvitationCreated) error
}

// TripHandler serves trips, their members and invitations, and the show
// ratings cast within them.  Every trip route requires an accepted
// membership; trips the caller does not belong to are reported as missing.
type TripHandler struct {
	Trips       *repository.TripRepo
	Members     *repository.MemberRepo
	Invitations *repository.InvitationRepo
	Ratings     *repository.RatingRepo
	Shows       *repository.ShowRepo
	Festivals   *repository.FestivalRepo
	Profiles    *repository.ProfileRepo
	Notifier    InvitationNotifier
}

// TripDeps groups the repositories a TripHandler reads and writes.
type TripDeps struct {
	Trips       *repository.TripRepo
	Members     *repository.MemberRepo
	Invitations *repository.InvitationRepo
	Ratings     *repository.RatingRepo
	Shows       *repository.ShowRepo
	Festivals   *repository.FestivalRepo
	Profiles    *repository.ProfileRepo
}

func NewTripHandler(d TripDeps, n InvitationNotifier) *TripHandler {
	return &TripHandler{
		Trips:       d.Trips,
		Members:     d.Members,
		Invitations: d.Invitations,
		Ratings:     d.Ratings,
		Shows:       d.Shows,
		Festivals:   d.Festivals,
		Profiles:    d.Profiles,
		Notifier:    n,
	}
}

// memberRole returns the caller's role in the trip.  Callers without an
// accepted membership get ErrNotFound.
func (h *TripHandler) memberRole(ctx context.Context, tripID, userID string) (string, error) {
	role, status, err := h.Members.GetRole(ctx, tripID, userID)
	if err != nil {
		return "", err
	}
	if status != model.MemberAccepted {
		return "", repository.ErrNotFound
	}
	return role, nil
}

// requireTripAdmin is memberRole that also demands the admin role.
func (h *TripHandler) requireTripAdmin(ctx context.Context, tripID, userID string) error {
	role, err := h.memberRole(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if role != model.MemberRoleAdmin {
		return repository.ErrForbidden
	}
	return nil
}

type tripReq struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	FestivalID  *string `json:"festival_id"`
}

// checkFestival validates an optional festival link.  An empty string
// unlinks the trip.
func (h *TripHandler) checkFestival(ctx context.Context, id *string) (*string, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	f, err := h.Festivals.GetByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	return &f.ID, nil
}

// Create starts a trip with the caller as its admin.
func (h *TripHandler) Create(c echo.Context) error {
	var req tripReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return badRequest(c, "name is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	festID, err := h.checkFestival(ctx, req.FestivalID)
	if errors.Is(err, repository.ErrNotFound) {
		return badRequest(c, "unknown festival_id")
	}
	if err != nil {
		return fail(c, err)
	}
	t := &model.Trip{
		Name:        strings.TrimSpace(*req.Name),
		Description: optString(req.Description),
		FestivalID:  festID,
		CreatedBy:   middleware.UserID(c),
	}
	if err := h.Trips.Create(ctx, t); err != nil {
		return fail(c, err)
	}
	created, err := h.Trips.GetByID(ctx, t.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// List returns the caller's trips, newest first.
func (h *TripHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Trips.ListForUser(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// Get returns a trip with the caller's role, the number of accepted
// members and the ratings the caller has cast so far.
func (h *TripHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	id, uid := c.Param("id"), middleware.UserID(c)
	role, err := h.memberRole(ctx, id, uid)
	if err != nil {
		return fail(c, err)
	}
	t, err := h.Trips.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	n, err := h.Members.CountAccepted(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	mine, err := h.Ratings.ListForUser(ctx, id, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip":         t,
		"my_role":      role,
		"member_count": n,
		"my_ratings":   mine,
	})
}

func (h *TripHandler) Update(c echo.Context) error {
	var req tripReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id := c.Param("id")
	if err := h.requireTripAdmin(ctx, id, middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	t, err := h.Trips.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
		if t.Name == "" {
			return badRequest(c, "name must not be empty")
		}
	}
	if req.Description != nil {
		t.Description = optString(req.Description)
	}
	if req.FestivalID != nil {
		festID, err := h.checkFestival(ctx, req.FestivalID)
		if errors.Is(err, repository.ErrNotFound) {
			return badRequest(c, "unknown festival_id")
		}
		if err != nil {
			return fail(c, err)
		}
		t.FestivalID = festID
	}
	if err := h.Trips.Update(ctx, t); err != nil {
		return fail(c, err)
	}
	updated, err := h.Trips.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes a trip with its members, invitations and ratings.
func (h *TripHandler) Delete(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	id := c.Param("id")
	if err := h.requireTripAdmin(ctx, id, middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	if err := h.Trips.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
