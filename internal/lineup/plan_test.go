package lineup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/model"
)

func str(s string) *string { return &s }

func TestParseLineup(t *testing.T) {
	entries, err := ParseLineup([]byte(`[
		{"artist_name": " Metallica ", "date": "2026-06-12", "start_time": "21:00", "stage_name": " Main "},
		{"date": "2026-06-12"},
		{"artist_name": "", "date": "2026-06-12"},
		{"artist_name": "Gojira"}
	]`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Metallica", entries[0].ArtistName)
	assert.Equal(t, "Main", entries[0].StageName)
	assert.Equal(t, "Gojira", entries[1].ArtistName)
}

func TestParseLineupErrors(t *testing.T) {
	_, err := ParseLineup([]byte(`{"artist_name": "A"}`))
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = ParseLineup([]byte(`[{"date": "2026-06-12"}]`))
	assert.ErrorIs(t, err, ErrNoEntries)

	_, err = ParseLineup([]byte(`[{"artist_name": "A",]`))
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = ParseLineup([]byte(`[{"artist_name": 42}]`))
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestPlanLineup(t *testing.T) {
	bands := []model.Band{{ID: "b1", Name: "Metallica"}}
	stages := []model.Stage{{ID: "s1", Name: "Main Stage"}}
	entries := []Entry{
		{ArtistName: "METALLICA", Date: "2026-06-12", StartTime: "21:00", StageName: "main stage"},
		{ArtistName: "Gojira", Date: "2026-06-12", StartTime: "01:00", StageName: "Tent"},
		{ArtistName: "gojira", Date: "2026-06-13", StageName: "tent", OriginCountry: "FR"},
		{ArtistName: "Mastodon", Date: "June 13"},
	}

	plan := PlanLineup(entries, bands, stages, time.UTC)
	require.Len(t, plan.Items, 4)

	assert.Equal(t, "b1", plan.Items[0].ArtistID)
	assert.False(t, plan.Items[0].IsNewArtist)
	assert.Equal(t, "s1", plan.Items[0].StageID)
	assert.False(t, plan.Items[0].IsNewStage)

	assert.True(t, plan.Items[1].IsNewArtist)
	assert.True(t, plan.Items[1].IsNewStage)
	assert.True(t, plan.Items[1].Slot.LateNight)

	assert.Equal(t, []NewArtist{{Name: "Gojira", OriginCountry: "FR"}, {Name: "Mastodon"}}, plan.NewArtists)
	assert.Equal(t, []string{"Tent"}, plan.NewStages)

	assert.Equal(t, StatusError, plan.Items[3].Status)
	assert.Contains(t, plan.Items[3].Message, "invalid date")
	assert.Equal(t, 1, plan.Errors())
}

func TestParseAndPlanBands(t *testing.T) {
	entries, err := ParseBands([]byte(`[
		{"name": "Metallica", "origin_country": "USA", "image_url": "https://img/m.jpg"},
		{"name": "Ghost"},
		{"name": "ghost", "origin_country": "Sweden"},
		{"origin_country": "Nowhere"}
	]`))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	existing := []model.Band{
		{ID: "m", Name: "metallica", OriginCountry: str("USA")},
		{ID: "g", Name: "Ghost"},
	}
	planned := PlanBands(entries, existing)
	require.Len(t, planned, 3)

	assert.False(t, planned[0].IsNew)
	assert.Equal(t, "m", planned[0].ExistingID)
	assert.False(t, planned[1].IsNew, "both countries empty match")
	assert.Equal(t, "g", planned[1].ExistingID)
	assert.True(t, planned[2].IsNew, "a known country does not match an unknown one")
}

func TestBandKey(t *testing.T) {
	assert.Equal(t, BandKey("Ghost", ""), BandKey(" ghost ", ""))
	assert.NotEqual(t, BandKey("Ghost", "SE"), BandKey("Ghost", ""))
}
