package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/queue"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/utils"
)

// OTPNotifier delivers sign-in codes.
type OTPNotifier interface {
	OTPRequested(ctx context.Context, ev queue.OTPRequested) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Profiles *repository.ProfileRepo
	OTPs     *repository.OTPRepo
	Tokens   *repository.TokenRepo
	Notifier OTPNotifier
	Log      *log.Logger
}

func NewAuthHandler(cfg config.Config, p *repository.ProfileRepo, o *repository.OTPRepo, t *repository.TokenRepo, n OTPNotifier, l *log.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Profiles: p, OTPs: o, Tokens: t, Notifier: n, Log: l}
}

// ----- DTOs -----

type otpReq struct {
	Email string `json:"email" validate:"required,email"`
}
type verifyReq struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    *model.Profile `json:"user"`
	Access  tokenPart      `json:"access"`
	Refresh tokenPart      `json:"refresh"`
}

// RequestOTP stores a fresh code for the email and sends it.  The answer
// is 202 whether or not the address belongs to an account.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req otpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	code, err := utils.NewOTP()
	if err != nil {
		return fail(c, err)
	}
	hash, err := utils.HashOTP(code, h.Cfg.OTP.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	otp, err := h.OTPs.Create(ctx, req.Email, hash, time.Now().UTC().Add(h.Cfg.OTP.TTL))
	if err != nil {
		return fail(c, err)
	}
	ev := queue.OTPRequested{Email: req.Email, Code: code, ExpiresAt: otp.ExpiresAt}
	if err := h.Notifier.OTPRequested(ctx, ev); err != nil {
		// The code is stored; the user can ask again.
		h.Log.Error("otp delivery failed", "email", req.Email, "err", err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "if the address is valid, a code has been sent"})
}

// Verify exchanges an email and code for a token pair, creating the
// profile on first login.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	otp, err := h.OTPs.LatestActive(ctx, req.Email, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return errorJSON(c, http.StatusUnauthorized, "invalid_code", "code is invalid or expired")
	}
	if err != nil {
		return fail(c, err)
	}
	if otp.Attempts >= h.Cfg.OTP.MaxAttempts {
		return errorJSON(c, http.StatusUnauthorized, "too_many_attempts", "request a new code")
	}
	if !utils.VerifyOTP(otp.CodeHash, req.Code) {
		if err := h.OTPs.IncrementAttempts(ctx, otp.ID); err != nil {
			return fail(c, err)
		}
		return errorJSON(c, http.StatusUnauthorized, "invalid_code", "code is invalid or expired")
	}
	if err := h.OTPs.Consume(ctx, otp.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return errorJSON(c, http.StatusUnauthorized, "invalid_code", "code already used")
		}
		return fail(c, err)
	}

	p, err := h.Profiles.Upsert(ctx, req.Email)
	if err != nil {
		return fail(c, err)
	}
	return h.issue(c, ctx, p, "")
}

// issue signs an access token and a refresh token for p.  With an empty
// replaces the refresh token is stored as new; otherwise it takes the
// place of the token hashed as replaces.
func (h *AuthHandler) issue(c echo.Context, ctx context.Context, p *model.Profile, replaces string) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Email, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, err)
	}
	hash := utils.HashRefreshRaw(refresh.Raw)
	if replaces == "" {
		err = h.Tokens.StoreRefresh(ctx, p.ID, hash, refresh.Exp)
	} else {
		err = h.Tokens.Rotate(ctx, replaces, p.ID, hash, refresh.Exp)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    p,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh exchanges a refresh token for a new pair.  The old token is
// revoked in the same transaction that stores the new one, so a token can
// be exchanged only once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
	}
	p, err := h.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
		}
		return fail(c, err)
	}
	return h.issue(c, ctx, p, hash)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
	}
	p, err := h.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
		}
		return fail(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Email, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes one refresh token when given in the body, otherwise
// every refresh token of the bearer's user.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := dbCtx(c)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errorJSON(c, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
			}
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return badRequest(c, "provide Authorization header or refresh_token")
	}
	cl, err := middleware.ParseBearer(h.Cfg.JWTSecret, auth)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
	}
	if err := h.Tokens.RevokeAllForUser(ctx, cl.UserID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile with role flags.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Profiles.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"profile":      p,
		"isAdmin":      p.IsAdmin(),
		"isSuperAdmin": p.Role == model.RoleSuperAdmin,
	})
}

type updateMeReq struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=80"`
}

// UpdateMe changes the caller's display name.  An empty name clears it.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req updateMeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id := middleware.UserID(c)
	if err := h.Profiles.SetDisplayName(ctx, id, optString(req.DisplayName)); err != nil {
		return fail(c, err)
	}
	p, err := h.Profiles.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListProfiles lists every account.  Superadmin only.
func (h *AuthHandler) ListProfiles(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Profiles.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

type setRoleReq struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user admin superadmin"`
}

// SetRole changes another account's role.  Superadmin only.
func (h *AuthHandler) SetRole(c echo.Context) error {
	var req setRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if repository.NormalizeEmail(req.Email) == middleware.Email(c) {
		return badRequest(c, "cannot change your own role")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Profiles.SetRole(ctx, req.Email, req.Role); err != nil {
		return fail(c, err)
	}
	p, err := h.Profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
