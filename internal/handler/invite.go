package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/mail"
)

// InviteMailer sends an invitation email synchronously.
type InviteMailer interface {
	SendInvitation(ctx context.Context, inv mail.Invitation) (json.RawMessage, error)
}

// InviteHandler is the direct email endpoint: the caller supplies the trip
// details and the message is sent while the request waits.
type InviteHandler struct {
	Mailer InviteMailer
}

func NewInviteHandler(m InviteMailer) *InviteHandler { return &InviteHandler{Mailer: m} }

type inviteUserReq struct {
	Email       string `json:"email"`
	TripID      string `json:"tripId"`
	TripName    string `json:"tripName"`
	InviterName string `json:"inviterName"`
}

// InviteUser handles POST /v1/invite-user.
func (h *InviteHandler) InviteUser(c echo.Context) error {
	var req inviteUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "Email is required")
	}

	data, err := h.Mailer.SendInvitation(c.Request().Context(), mail.Invitation{
		Email:       strings.TrimSpace(req.Email),
		TripID:      req.TripID,
		TripName:    req.TripName,
		InviterName: req.InviterName,
	})
	var perr *mail.ProviderError
	switch {
	case errors.Is(err, mail.ErrNotConfigured):
		c.Logger().Error("RESEND_API_KEY is not set")
		return errorJSON(c, http.StatusInternalServerError, "not_configured",
			"Server configuration error: missing email provider key")
	case errors.As(err, &perr):
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "provider_error",
			"message": "Failed to send email via Resend",
			"details": perr.Details,
		})
	case err != nil:
		return errorJSON(c, http.StatusInternalServerError, "internal", err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Invite sent successfully", "data": data})
}
