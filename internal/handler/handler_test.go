package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/importer"
	"github.com/iliyamo/festplanner/internal/logging"
	"github.com/iliyamo/festplanner/internal/mail"
	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/queue"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/storage"
	"github.com/iliyamo/festplanner/internal/testutil"
	"github.com/iliyamo/festplanner/internal/utils"
)

type fakeNotifier struct {
	mu      sync.Mutex
	otps    []queue.OTPRequested
	invites []queue.InvitationCreated
}

func (f *fakeNotifier) OTPRequested(_ context.Context, ev queue.OTPRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps = append(f.otps, ev)
	return nil
}

func (f *fakeNotifier) InvitationCreated(_ context.Context, ev queue.InvitationCreated) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = append(f.invites, ev)
	return nil
}

func (f *fakeNotifier) lastOTP(t *testing.T) queue.OTPRequested {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.otps, "no otp sent")
	return f.otps[len(f.otps)-1]
}

type fakeSender struct {
	err  error
	sent []mail.Message
}

func (f *fakeSender) Send(_ context.Context, m mail.Message) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, m)
	return json.RawMessage(`{"id":"email_1"}`), nil
}

// testEnv wires the handlers the way the router does, over an in-memory
// database.
type testEnv struct {
	db       *sql.DB
	e        *echo.Echo
	cfg      config.Config
	notifier *fakeNotifier
	sender   *fakeSender
	trips    *TripHandler
	bands    *BandHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	env := &testEnv{
		db:       db,
		notifier: &fakeNotifier{},
		sender:   &fakeSender{},
		cfg: config.Config{
			JWTSecret:      testutil.JWTSecret,
			AccessTTLMin:   15,
			RefreshTTLDays: 7,
			OTP:            config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, BcryptCost: bcrypt.MinCost},
			Storage:        config.StorageConfig{Dir: t.TempDir(), PublicBase: "/storage", MaxBytes: 1 << 20},
		},
	}

	profiles := repository.NewProfileRepo(db)
	festivals := repository.NewFestivalRepo(db)
	stages := repository.NewStageRepo(db)
	shows := repository.NewShowRepo(db)
	bands := repository.NewBandRepo(db)
	store, err := storage.New(context.Background(), env.cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auth := NewAuthHandler(env.cfg, profiles, repository.NewOTPRepo(db), repository.NewTokenRepo(db), env.notifier, logging.Discard())
	fest := NewFestivalHandler(festivals, stages, shows, bands)
	band := NewBandHandler(bands, nil)
	imp := NewImportHandler(festivals, importer.New(db, nil, logging.Discard()))
	trips := NewTripHandler(TripDeps{
		Trips:       repository.NewTripRepo(db),
		Members:     repository.NewMemberRepo(db),
		Invitations: repository.NewInvitationRepo(db),
		Ratings:     repository.NewRatingRepo(db),
		Shows:       shows,
		Festivals:   festivals,
		Profiles:    profiles,
	}, env.notifier)
	up := NewUploadHandler(store)
	inv := NewInviteHandler(mail.NewMailer(env.sender, "https://fest.test"))

	e := echo.New()
	e.Validator = NewValidator()
	jwt := middleware.JWTAuth(testutil.JWTSecret)
	admin := middleware.RequireAdmin()

	e.POST("/v1/auth/otp", auth.RequestOTP)
	e.POST("/v1/auth/verify", auth.Verify)
	e.POST("/v1/auth/refresh", auth.Refresh)
	e.POST("/v1/auth/refresh-access", auth.RefreshAccess)
	e.POST("/v1/auth/logout", auth.Logout)
	e.GET("/v1/me", auth.Me, jwt)
	e.PATCH("/v1/me", auth.UpdateMe, jwt)
	e.GET("/v1/admin/profiles", auth.ListProfiles, jwt, middleware.RequireRole(model.RoleSuperAdmin))
	e.PUT("/v1/admin/profiles/role", auth.SetRole, jwt, middleware.RequireRole(model.RoleSuperAdmin))

	e.GET("/v1/public/festivals", fest.ListPublic)
	e.GET("/v1/public/festivals/:id/lineup", fest.PublicLineup)

	g := e.Group("/v1", jwt)
	g.GET("/festivals", fest.List)
	g.GET("/festivals/:id", fest.Get)
	g.GET("/festivals/:id/lineup", fest.Lineup)
	g.POST("/festivals", fest.Create, admin)
	g.PATCH("/festivals/:id", fest.Update, admin)
	g.DELETE("/festivals/:id", fest.Delete, admin)
	g.GET("/festivals/:id/stages", fest.ListStages)
	g.POST("/festivals/:id/stages", fest.CreateStage, admin)
	g.DELETE("/stages/:id", fest.DeleteStage, admin)
	g.GET("/festivals/:id/shows", fest.ListShows)
	g.POST("/festivals/:id/shows", fest.CreateShow, admin)
	g.PATCH("/shows/:id", fest.UpdateShow, admin)
	g.DELETE("/shows/:id", fest.DeleteShow, admin)
	g.GET("/bands", band.List)
	g.GET("/bands/:id", band.Get)
	g.POST("/bands", band.Create, admin)
	g.PATCH("/bands/:id", band.Update, admin)
	g.DELETE("/bands/:id", band.Delete, admin)
	g.POST("/bands/:id/sync", band.SyncArtist, admin)
	g.POST("/bands/sync-missing", band.SyncMissing, admin)
	g.POST("/bands/import/preview", imp.PreviewBands, admin)
	g.POST("/bands/import", imp.ImportBands, admin)
	g.POST("/festivals/:id/lineup/preview", imp.PreviewLineup, admin)
	g.POST("/festivals/:id/lineup/import", imp.ImportLineup, admin)
	g.POST("/uploads/:bucket", up.Upload, admin)
	g.POST("/uploads/:bucket/import-url", up.ImportURL, admin)

	g.POST("/trips", trips.Create)
	g.GET("/trips", trips.List)
	g.GET("/trips/:id", trips.Get)
	g.PATCH("/trips/:id", trips.Update)
	g.DELETE("/trips/:id", trips.Delete)
	g.GET("/trips/:id/members", trips.ListMembers)
	g.DELETE("/trips/:id/members/:memberId", trips.RemoveMember)
	g.POST("/trips/:id/invitations", trips.CreateInvitation)
	g.GET("/trips/:id/invitations", trips.ListInvitations)
	g.GET("/invitations", trips.MyInvitations)
	g.POST("/invitations/:token/accept", trips.AcceptInvitation)
	g.DELETE("/invitations/:id", trips.RevokeInvitation)
	g.PUT("/trips/:id/shows/:showId/rating", trips.Rate)
	g.DELETE("/trips/:id/shows/:showId/rating", trips.Unrate)
	g.GET("/trips/:id/ranking", trips.Ranking)
	g.POST("/invite-user", inv.InviteUser)

	env.trips = trips
	env.bands = band
	env.e = e
	return env
}

func tokenFor(t *testing.T, p model.Profile) string {
	t.Helper()
	at, err := utils.NewAccessToken(testutil.JWTSecret, p.ID, p.Email, p.Role, 15)
	require.NoError(t, err)
	return at.Token
}

func (env *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	return env.serve(testutil.MakeRequest(method, path, body, token))
}

// doRaw sends body as is, for endpoints that take a document.
func (env *testEnv) doRaw(method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return env.serve(req)
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
