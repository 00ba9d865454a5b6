package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/importer"
	"github.com/iliyamo/festplanner/internal/lineup"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/testutil"
)

func TestImportBandsDocument(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateProfile(t, env.db, "admin@example.com", model.RoleAdmin)
	testutil.CreateBand(t, env.db, "Gojira", testutil.Ptr("FR"))

	doc := `[
		{"name": "GOJIRA", "origin_country": "FR", "bio": "French metal"},
		{"name": "Mgła", "origin_country": "PL", "image_url": "https://cdn.example/mgla.png"},
		{"origin_country": "XX"}
	]`
	w := env.doRaw(http.MethodPost, "/v1/bands/import?rehost=false", strings.NewReader(doc), echo.MIMEApplicationJSON, tokenFor(t, admin))
	testutil.AssertStatus(t, w, http.StatusOK)
	var rep importer.Report
	testutil.AssertJSON(t, w, &rep)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Updated)

	list, err := repository.NewBandRepo(env.db).List(t.Context(), "mg")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ImageURL)
	assert.Equal(t, "https://cdn.example/mgla.png", *list[0].ImageURL)

	w = env.doRaw(http.MethodPost, "/v1/bands/import", strings.NewReader(`{"name":"x"}`), echo.MIMEApplicationJSON, tokenFor(t, admin))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	fan := testutil.CreateProfile(t, env.db, "fan@example.com", model.RoleUser)
	w = env.doRaw(http.MethodPost, "/v1/bands/import", strings.NewReader(doc), echo.MIMEApplicationJSON, tokenFor(t, fan))
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestImportLineupDocument(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateProfile(t, env.db, "admin@example.com", model.RoleAdmin)
	tok := tokenFor(t, admin)
	f := testutil.CreateFestival(t, env.db, "Fest", time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), 2, "UTC", true, nil)
	base := "/v1/festivals/" + f.ID + "/lineup/"

	doc := `[
		{"artist_name": "Alpha", "date": "2026-06-12", "start_time": "20:00", "stage_name": "Main"},
		{"artist_name": "Beta"}
	]`
	w := env.doRaw(http.MethodPost, base+"preview", strings.NewReader(doc), echo.MIMEApplicationJSON, tok)
	testutil.AssertStatus(t, w, http.StatusOK)
	var plan lineup.LineupPlan
	testutil.AssertJSON(t, w, &plan)
	require.Len(t, plan.Items, 2)
	assert.Len(t, plan.NewArtists, 2)
	assert.Equal(t, []string{"Main"}, plan.NewStages)

	w = env.doRaw(http.MethodPost, base+"import", strings.NewReader(doc), echo.MIMEApplicationJSON, tok)
	testutil.AssertStatus(t, w, http.StatusOK)
	var rep importer.Report
	testutil.AssertJSON(t, w, &rep)
	assert.Equal(t, 2, rep.ShowsCreated)
	assert.Equal(t, 1, rep.StagesCreated)

	shows, err := repository.NewShowRepo(env.db).ListByFestival(t.Context(), f.ID)
	require.NoError(t, err)
	assert.Len(t, shows, 2)
}

func TestImportLineupRejectsBadRows(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateProfile(t, env.db, "admin@example.com", model.RoleAdmin)
	f := testutil.CreateFestival(t, env.db, "Fest", time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), 1, "UTC", true, nil)

	doc := `[{"artist_name": "Alpha", "date": "2026-06-12", "start_time": "25:99"}]`
	w := env.doRaw(http.MethodPost, "/v1/festivals/"+f.ID+"/lineup/import", strings.NewReader(doc), echo.MIMEApplicationJSON, tokenFor(t, admin))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	var body struct {
		Error   string            `json:"error"`
		Preview lineup.LineupPlan `json:"preview"`
	}
	testutil.AssertJSON(t, w, &body)
	assert.Equal(t, "invalid_entries", body.Error)
	require.Len(t, body.Preview.Items, 1)
	assert.Equal(t, lineup.StatusError, body.Preview.Items[0].Status)
	assert.NotEmpty(t, body.Preview.Items[0].Message)

	bands, err := repository.NewBandRepo(env.db).List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, bands)

	w = env.doRaw(http.MethodPost, "/v1/festivals/missing/lineup/import", strings.NewReader(doc), echo.MIMEApplicationJSON, tokenFor(t, admin))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
