// Package router builds the Echo instance and registers every route under
// /v1.
package router

import (
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/handler"
	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/storage"
)

// Deps carries what the routes need.  Redis may be nil, which disables
// rate limiting and response caching.  Store may be nil, in which case no
// images are served.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	DB        *sql.DB
	Store     *storage.Store
	Log       *log.Logger

	Auth      *handler.AuthHandler
	Festivals *handler.FestivalHandler
	Bands     *handler.BandHandler
	Imports   *handler.ImportHandler
	Trips     *handler.TripHandler
	Uploads   *handler.UploadHandler
	Invite    *handler.InviteHandler
}

// New returns a configured Echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Metrics())

	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	otpLimiter := middleware.NewTokenBucket(d.RateLimit.ForOTP(), d.Redis)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	purge := middleware.PurgeCache(d.Cache, d.Redis)

	RegisterRoutes(e, d.DB, d.Store)
	RegisterAuth(e, d.Auth, d.Cfg.JWTSecret, limiter, otpLimiter)
	RegisterPublic(e, d.Festivals, cache)
	RegisterCatalog(e, d.Festivals, d.Bands, d.Imports, d.Uploads, d.Cfg.JWTSecret, limiter, purge)
	RegisterTrips(e, d.Trips, d.Invite, d.Cfg.JWTSecret, limiter)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// health checks, metrics and images kept in a local file bucket.
func RegisterRoutes(e *echo.Echo, db *sql.DB, st *storage.Store) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if st != nil && st.Dir() != "" && st.PublicBase() != "" {
		e.Static(st.PublicBase(), st.Dir())
	}
}

// RegisterAuth registers passcode login, token exchange and profile
// routes.  Passcode requests go through both the client bucket and the
// per-address bucket.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter, otpLimiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/otp", a.RequestOTP, limiter, otpLimiter)
	g.POST("/verify", a.Verify, limiter, otpLimiter)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	jwt := middleware.JWTAuth(jwtSecret)
	e.GET("/v1/me", a.Me, jwt)
	e.PATCH("/v1/me", a.UpdateMe, jwt)

	super := middleware.RequireRole("superadmin")
	e.GET("/v1/admin/profiles", a.ListProfiles, jwt, super)
	e.PUT("/v1/admin/profiles/role", a.SetRole, jwt, super)
}
