// Package testutil holds helpers shared by repository, service and handler
// tests: an in-memory database with the schema applied, fixture inserts
// and HTTP request/response helpers.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/database"
	"github.com/iliyamo/festplanner/internal/model"
)

// JWTSecret signs tokens in handler tests.
const JWTSecret = "test-secret"

// NewDB opens a private in-memory SQLite database with the full schema.
// It is closed when the test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err, "open sqlite")
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite), "migrate")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ts() time.Time { return time.Now().UTC().Truncate(time.Second) }

// CreateProfile inserts a profile and returns it.
func CreateProfile(t *testing.T, db *sql.DB, email, role string) model.Profile {
	t.Helper()
	p := model.Profile{ID: uuid.NewString(), Email: email, Role: role, CreatedAt: ts()}
	_, err := db.Exec("INSERT INTO profiles (id, email, role, created_at) VALUES (?,?,?,?)",
		p.ID, p.Email, p.Role, p.CreatedAt)
	require.NoError(t, err, "create profile")
	return p
}

// CreateFestival inserts a festival spanning start..start+days-1 in tz.
func CreateFestival(t *testing.T, db *sql.DB, name string, start time.Time, days int, tz string, public bool, createdBy *string) model.Festival {
	t.Helper()
	f := model.Festival{
		ID:        uuid.NewString(),
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, days-1),
		Timezone:  tz,
		IsPublic:  public,
		CreatedBy: createdBy,
		CreatedAt: ts(),
	}
	_, err := db.Exec(`INSERT INTO festivals (id, name, start_date, end_date, timezone, is_public, created_by, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		f.ID, f.Name, f.StartDate, f.EndDate, f.Timezone, f.IsPublic, f.CreatedBy, f.CreatedAt)
	require.NoError(t, err, "create festival")
	return f
}

// CreateBand inserts a band with an optional origin country.
func CreateBand(t *testing.T, db *sql.DB, name string, country *string) model.Band {
	t.Helper()
	b := model.Band{ID: uuid.NewString(), Name: name, OriginCountry: country, CreatedAt: ts()}
	_, err := db.Exec("INSERT INTO bands (id, name, origin_country, created_at) VALUES (?,?,?,?)",
		b.ID, b.Name, b.OriginCountry, b.CreatedAt)
	require.NoError(t, err, "create band")
	return b
}

// CreateStage inserts a stage for a festival.
func CreateStage(t *testing.T, db *sql.DB, festivalID, name string) model.Stage {
	t.Helper()
	s := model.Stage{ID: uuid.NewString(), FestivalID: festivalID, Name: name, CreatedAt: ts()}
	_, err := db.Exec("INSERT INTO stages (id, festival_id, name, created_at) VALUES (?,?,?,?)",
		s.ID, s.FestivalID, s.Name, s.CreatedAt)
	require.NoError(t, err, "create stage")
	return s
}

// CreateShow inserts a show.  A nil start creates a date-TBD show.
func CreateShow(t *testing.T, db *sql.DB, festivalID, bandID string, stageID *string, start *time.Time, lateNight bool) model.Show {
	t.Helper()
	s := model.Show{
		ID:          uuid.NewString(),
		FestivalID:  festivalID,
		BandID:      bandID,
		StageID:     stageID,
		StartTime:   start,
		IsLateNight: lateNight,
		DateTBD:     start == nil,
		TimeTBD:     start == nil,
		CreatedAt:   ts(),
	}
	_, err := db.Exec(`INSERT INTO shows (id, festival_id, band_id, stage_id, start_time, is_late_night, date_tbd, time_tbd, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.FestivalID, s.BandID, s.StageID, s.StartTime, s.IsLateNight, s.DateTBD, s.TimeTBD, s.CreatedAt)
	require.NoError(t, err, "create show")
	return s
}

// CreateTrip inserts a trip and its creator as accepted admin member.
func CreateTrip(t *testing.T, db *sql.DB, name, creatorID string, festivalID *string) model.Trip {
	t.Helper()
	tr := model.Trip{ID: uuid.NewString(), Name: name, CreatedBy: creatorID, FestivalID: festivalID, CreatedAt: ts()}
	_, err := db.Exec("INSERT INTO trips (id, name, festival_id, created_by, created_at) VALUES (?,?,?,?,?)",
		tr.ID, tr.Name, tr.FestivalID, tr.CreatedBy, tr.CreatedAt)
	require.NoError(t, err, "create trip")
	AddMember(t, db, tr.ID, creatorID, model.MemberRoleAdmin)
	return tr
}

// AddMember inserts an accepted member row and returns its ID.
func AddMember(t *testing.T, db *sql.DB, tripID, userID, role string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec("INSERT INTO trip_members (id, trip_id, user_id, role, status, created_at) VALUES (?,?,?,?,?,?)",
		id, tripID, userID, role, model.MemberAccepted, ts())
	require.NoError(t, err, "add member")
	return id
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// MakeRequest creates an HTTP test request with an optional JSON body and
// bearer token.
func MakeRequest(method, path string, body any, token string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided value.
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
