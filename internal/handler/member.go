package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/queue"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/utils"
)

// ListMembers returns the trip's members, admins first.
func (h *TripHandler) ListMembers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.memberRole(ctx, id, middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	list, err := h.Members.ListByTrip(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// RemoveMember lets a trip admin remove anyone and a member remove
// themselves.  The last admin cannot leave; the trip has to be deleted
// instead.  The member's ratings go with them.
func (h *TripHandler) RemoveMember(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	tripID, uid := c.Param("id"), middleware.UserID(c)
	role, err := h.memberRole(ctx, tripID, uid)
	if err != nil {
		return fail(c, err)
	}
	m, err := h.Members.GetByID(ctx, c.Param("memberId"))
	if err != nil {
		return fail(c, err)
	}
	if m.TripID != tripID {
		return fail(c, repository.ErrNotFound)
	}
	self := m.UserID != nil && *m.UserID == uid
	if !self && role != model.MemberRoleAdmin {
		return fail(c, repository.ErrForbidden)
	}
	if m.Role == model.MemberRoleAdmin && m.Status == model.MemberAccepted {
		n, err := h.Members.CountAdmins(ctx, tripID)
		if err != nil {
			return fail(c, err)
		}
		if n <= 1 {
			return errorJSON(c, http.StatusConflict, "last_admin", "the last admin cannot leave the trip")
		}
	}
	if err := h.Members.Remove(ctx, m.ID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type invitationReq struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateInvitation invites an email address to the trip.  The invitation
// and its pending member row are written together; the email carrying the
// accept link goes out through the notifier.
func (h *TripHandler) CreateInvitation(c echo.Context) error {
	var req invitationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	tripID, uid := c.Param("id"), middleware.UserID(c)
	if err := h.requireTripAdmin(ctx, tripID, uid); err != nil {
		return fail(c, err)
	}
	t, err := h.Trips.GetByID(ctx, tripID)
	if err != nil {
		return fail(c, err)
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		return fail(c, err)
	}
	email := repository.NormalizeEmail(req.Email)
	inv := &model.TripInvitation{TripID: tripID, Email: email, Token: token, InvitedBy: uid}
	if err := h.Invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return errorJSON(c, http.StatusConflict, "already_member", "this email is already on the trip")
		}
		return fail(c, err)
	}

	inviter := middleware.Email(c)
	if p, err := h.Profiles.GetByID(ctx, uid); err == nil && p.DisplayName != nil && *p.DisplayName != "" {
		inviter = *p.DisplayName
	}
	ev := queue.InvitationCreated{
		Email:       email,
		TripID:      tripID,
		TripName:    t.Name,
		InviterName: inviter,
		Token:       token,
	}
	if err := h.Notifier.InvitationCreated(c.Request().Context(), ev); err != nil {
		// the invitation stands; the admin can revoke and resend
		c.Logger().Error(err)
		return c.JSON(http.StatusCreated, echo.Map{"invitation": inv, "email_sent": false})
	}
	return c.JSON(http.StatusCreated, echo.Map{"invitation": inv, "email_sent": true})
}

// ListInvitations returns the trip's invitations, newest first.
func (h *TripHandler) ListInvitations(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.memberRole(ctx, id, middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	list, err := h.Invitations.ListByTrip(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// MyInvitations lists the pending invitations sent to the caller's email,
// with the tokens needed to accept them.
func (h *TripHandler) MyInvitations(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Invitations.ListPendingForEmail(ctx, middleware.Email(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// AcceptInvitation joins the caller to the trip named by the invitation
// token.  The signed-in email must be the invited one.
func (h *TripHandler) AcceptInvitation(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	inv, err := h.Invitations.GetByToken(ctx, c.Param("token"))
	if err != nil {
		return fail(c, err)
	}
	if inv.Email != repository.NormalizeEmail(middleware.Email(c)) {
		return errorJSON(c, http.StatusForbidden, "email_mismatch", "this invitation was sent to a different email")
	}
	if err := h.Invitations.MarkAccepted(ctx, inv, middleware.UserID(c)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return errorJSON(c, http.StatusConflict, "invitation_closed", "invitation is no longer pending")
		}
		return fail(c, err)
	}
	t, err := h.Trips.GetByID(ctx, inv.TripID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// RevokeInvitation cancels a pending invitation.  Trip admins only.
func (h *TripHandler) RevokeInvitation(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	inv, err := h.Invitations.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if err := h.requireTripAdmin(ctx, inv.TripID, middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	if err := h.Invitations.Revoke(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return errorJSON(c, http.StatusConflict, "invitation_closed", "invitation is no longer pending")
		}
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
