package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/logging"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/utils"
)

const secret = "test-secret"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"id": UserID(c), "role": Role(c), "email": Email(c)})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, "u1", "a@b.c", model.RoleAdmin, 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","role":"admin","email":"a@b.c"}`, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	other, err := utils.NewAccessToken("other-secret", "u1", "a@b.c", model.RoleUser, 5)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, "u1", "a@b.c", model.RoleUser, -5)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + other.Token,
		"expired":      "Bearer " + expired.Token,
		"garbage":      "Bearer abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := serve(e, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(secret), RequireAdmin())

	for role, want := range map[string]int{
		model.RoleUser:       http.StatusForbidden,
		model.RoleAdmin:      http.StatusOK,
		model.RoleSuperAdmin: http.StatusOK,
	} {
		tok, err := utils.NewAccessToken(secret, "u1", "a@b.c", role, 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		assert.Equal(t, want, serve(e, req).Code, role)
	}
}

func rateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: 6 * time.Second,
		TTL: time.Minute, KeyStrategy: "ip_route", Prefix: "rl",
	}
}

func withFixedClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock = func() time.Time { return now }
	t.Cleanup(func() { clock = time.Now })
	return now
}

func TestTokenBucketAllows(t *testing.T) {
	now := withFixedClock(t)
	rdb, mock := redismock.NewClientMock()
	cfg := rateConfig()

	e := echo.New()
	e.POST("/v1/auth/otp", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) }, NewTokenBucket(cfg, rdb))

	key := "rl:ip:192.0.2.1:route:POST /v1/auth/otp"
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, limiterArgs(cfg, now)...).
		SetVal([]interface{}{int64(1), int64(4), int64(0)})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	rec := serve(e, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketBlocks(t *testing.T) {
	now := withFixedClock(t)
	rdb, mock := redismock.NewClientMock()
	cfg := rateConfig()

	e := echo.New()
	e.POST("/v1/auth/otp", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) }, NewTokenBucket(cfg, rdb))

	key := "rl:ip:192.0.2.1:route:POST /v1/auth/otp"
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, limiterArgs(cfg, now)...).
		SetVal([]interface{}{int64(0), int64(0), int64(2500)})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	rec := serve(e, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestTokenBucketFailsOpen(t *testing.T) {
	now := withFixedClock(t)
	rdb, mock := redismock.NewClientMock()
	cfg := rateConfig()

	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) }, NewTokenBucket(cfg, rdb))

	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{"rl:ip:192.0.2.1:route:POST /x"}, limiterArgs(cfg, now)...).
		SetErr(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	assert.Equal(t, http.StatusAccepted, serve(e, req).Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	cfg := rateConfig()
	cfg.Enabled = false
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestRateKeyStrategies(t *testing.T) {
	cfg := rateConfig()
	tests := []struct {
		strategy string
		body     string
		want     string
	}{
		{"ip_route", "", "rl:ip:192.0.2.1:route:POST /v1/auth/otp"},
		{"email_route", `{"email":" Ola@Example.com "}`, "rl:email:ola@example.com:route:POST /v1/auth/otp"},
		{"email", `{"code":"123456"}`, "rl:ip:192.0.2.1"},
		{"bogus", "", "rl:ip:192.0.2.1:user:anon:route:POST /v1/auth/otp"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg.KeyStrategy = tt.strategy
			e := echo.New()
			var got, body string
			e.POST("/v1/auth/otp", func(c echo.Context) error {
				got = buildRateKey(cfg, c)
				b := new(bytes.Buffer)
				_, _ = b.ReadFrom(c.Request().Body)
				body = b.String()
				return c.NoContent(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp", bytes.NewBufferString(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.RemoteAddr = "192.0.2.1:5000"
			serve(e, req)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.body, body, "body must stay readable")
		})
	}
}

func TestOTPBucketConfig(t *testing.T) {
	cfg := rateConfig()
	cfg.OTPKeyStrategy = "email_route"
	otp := cfg.ForOTP()
	assert.Equal(t, "email_route", otp.KeyStrategy)
	assert.Equal(t, "rl:otp", otp.Prefix)
	assert.Equal(t, cfg.Capacity, otp.Capacity)
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: 30 * time.Second,
		KeyStrategy: "path_query", Prefix: "cache", MaxBodyBytes: 1 << 10,
	}
}

func cacheKeyFor(t *testing.T, cfg config.CacheConfig, target string) string {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return cacheKeyFrom(cfg, c)
}

func TestRedisCacheMissStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	key := cacheKeyFor(t, cfg, "/v1/public/festivals")

	payload, err := json.Marshal(cachedResponse{Status: http.StatusOK, Header: http.Header{"Content-Type": []string{"text/plain"}}, Body: []byte("hello")})
	require.NoError(t, err)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, payload, cfg.TTL).SetVal("OK")

	e := echo.New()
	e.GET("/v1/public/festivals", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "text/plain", []byte("hello"))
	}, NewRedisCache(cfg, rdb))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/public/festivals", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "hello", rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	key := cacheKeyFor(t, cfg, "/v1/public/festivals?x=1")

	payload, err := json.Marshal(cachedResponse{Status: http.StatusOK, Header: http.Header{"Content-Type": []string{"application/json"}}, Body: []byte(`{"cached":true}`)})
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	called := false
	e := echo.New()
	e.GET("/v1/public/festivals", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}, NewRedisCache(cfg, rdb))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/public/festivals?x=1", nil))
	assert.False(t, called)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"cached":true}`, rec.Body.String())
}

func TestRedisCacheSkipsOversizedBodies(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	cfg.MaxBodyBytes = 4
	key := cacheKeyFor(t, cfg, "/big")
	mock.ExpectGet(key).RedisNil()

	e := echo.New()
	e.GET("/big", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "text/plain", bytes.Repeat([]byte("x"), 10))
	}, NewRedisCache(cfg, rdb))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/big", nil))
	assert.Equal(t, 10, rec.Body.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheIgnoresCorruptEntries(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	key := cacheKeyFor(t, cfg, "/x")
	mock.ExpectGet(key).SetVal("\x00\x01")
	fresh, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{echo.MIMETextPlainCharsetUTF8}},
		Body:   []byte("fresh"),
	})
	require.NoError(t, err)
	mock.ExpectSetEx(key, fresh, cfg.TTL).SetVal("OK")

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "fresh") }, NewRedisCache(cfg, rdb))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeCacheAfterWrite(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	mock.ExpectScan(0, "cache:*", purgeBatch).SetVal([]string{"cache:a", "cache:b"}, 7)
	mock.ExpectDel("cache:a", "cache:b").SetVal(2)
	mock.ExpectScan(7, "cache:*", purgeBatch).SetVal([]string{}, 0)

	e := echo.New()
	purge := PurgeCache(cfg, rdb)
	e.POST("/v1/festivals", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, purge)
	e.POST("/v1/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) }, purge)

	assert.Equal(t, http.StatusCreated, serve(e, httptest.NewRequest(http.MethodPost, "/v1/festivals", nil)).Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	// a rejected write leaves the cache alone
	assert.Equal(t, http.StatusBadRequest, serve(e, httptest.NewRequest(http.MethodPost, "/v1/bad", nil)).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestLoggerHandlesErrors(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(logging.New(&buf, "info")), Metrics())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "no") })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/boom")
}
