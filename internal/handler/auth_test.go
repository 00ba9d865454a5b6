package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/testutil"
	"github.com/iliyamo/festplanner/internal/utils"
)

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestPasscodeLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/auth/otp", map[string]string{"email": "  Fan@Example.com "}, "")
	testutil.AssertStatus(t, w, http.StatusAccepted)
	otp := env.notifier.lastOTP(t)
	assert.Equal(t, "fan@example.com", otp.Email)
	assert.Len(t, otp.Code, 6)

	w = env.do(http.MethodPost, "/v1/auth/verify", map[string]string{"email": "fan@example.com", "code": wrongCode(otp.Code)}, "")
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = env.do(http.MethodPost, "/v1/auth/verify", map[string]string{"email": "FAN@example.com", "code": otp.Code}, "")
	testutil.AssertStatus(t, w, http.StatusOK)
	var login authResp
	testutil.AssertJSON(t, w, &login)
	require.NotNil(t, login.User)
	assert.Equal(t, "fan@example.com", login.User.Email)
	assert.Equal(t, model.RoleUser, login.User.Role)
	require.NotEmpty(t, login.Access.Token)
	require.NotEmpty(t, login.Refresh.Token)

	// a consumed code cannot be replayed
	w = env.do(http.MethodPost, "/v1/auth/verify", map[string]string{"email": "fan@example.com", "code": otp.Code}, "")
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = env.do(http.MethodGet, "/v1/me", nil, login.Access.Token)
	testutil.AssertStatus(t, w, http.StatusOK)
	var me struct {
		Profile model.Profile `json:"profile"`
		IsAdmin bool          `json:"isAdmin"`
	}
	testutil.AssertJSON(t, w, &me)
	assert.Equal(t, login.User.ID, me.Profile.ID)
	assert.False(t, me.IsAdmin)

	w = env.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.Refresh.Token}, "")
	testutil.AssertStatus(t, w, http.StatusOK)
	var rotated authResp
	testutil.AssertJSON(t, w, &rotated)
	assert.NotEqual(t, login.Refresh.Token, rotated.Refresh.Token)

	w = env.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.Refresh.Token}, "")
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = env.do(http.MethodPost, "/v1/auth/logout", nil, rotated.Access.Token)
	testutil.AssertStatus(t, w, http.StatusNoContent)
	w = env.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": rotated.Refresh.Token}, "")
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestVerifyLocksAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/v1/auth/otp", map[string]string{"email": "fan@example.com"}, "")
	testutil.AssertStatus(t, w, http.StatusAccepted)
	otp := env.notifier.lastOTP(t)

	for i := 0; i < env.cfg.OTP.MaxAttempts; i++ {
		w = env.do(http.MethodPost, "/v1/auth/verify", map[string]string{"email": "fan@example.com", "code": wrongCode(otp.Code)}, "")
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	}
	w = env.do(http.MethodPost, "/v1/auth/verify", map[string]string{"email": "fan@example.com", "code": otp.Code}, "")
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
	var body errorBody
	testutil.AssertJSON(t, w, &body)
	assert.Equal(t, "too_many_attempts", body.Error)
}

func TestRequestOTPValidatesEmail(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/v1/auth/otp", map[string]string{"email": "not-an-email"}, "")
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	super := testutil.CreateProfile(t, env.db, "root@example.com", model.RoleSuperAdmin)
	admin := testutil.CreateProfile(t, env.db, "admin@example.com", model.RoleAdmin)
	testutil.CreateProfile(t, env.db, "fan@example.com", model.RoleUser)

	body := map[string]string{"email": "fan@example.com", "role": "admin"}
	w := env.do(http.MethodPut, "/v1/admin/profiles/role", body, tokenFor(t, admin))
	testutil.AssertStatus(t, w, http.StatusForbidden)

	w = env.do(http.MethodPut, "/v1/admin/profiles/role", body, tokenFor(t, super))
	testutil.AssertStatus(t, w, http.StatusOK)
	var p model.Profile
	testutil.AssertJSON(t, w, &p)
	assert.Equal(t, model.RoleAdmin, p.Role)

	w = env.do(http.MethodPut, "/v1/admin/profiles/role", map[string]string{"email": "root@example.com", "role": "user"}, tokenFor(t, super))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPut, "/v1/admin/profiles/role", map[string]string{"email": "fan@example.com", "role": "owner"}, tokenFor(t, super))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestRefreshAccessKeepsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	fan := testutil.CreateProfile(t, env.db, "fan@example.com", model.RoleUser)
	rt, err := utils.NewRefreshToken(7)
	require.NoError(t, err)
	require.NoError(t, repository.NewTokenRepo(env.db).StoreRefresh(t.Context(), fan.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp))

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/v1/auth/refresh-access", map[string]string{"refresh_token": rt.Raw}, "")
		testutil.AssertStatus(t, w, http.StatusOK)
		var body struct {
			Access tokenPart `json:"access"`
		}
		testutil.AssertJSON(t, w, &body)
		require.NotEmpty(t, body.Access.Token)

		w = env.do(http.MethodGet, "/v1/me", nil, body.Access.Token)
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	w := env.do(http.MethodPost, "/v1/auth/refresh-access", map[string]string{"refresh_token": "nope"}, "")
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
	w = env.do(http.MethodPost, "/v1/auth/refresh-access", map[string]string{}, "")
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
