package lineup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestIsLateNight(t *testing.T) {
	tests := []struct {
		clock string
		want  bool
	}{
		{"00:00", true},
		{"01:30", true},
		{"05:59", true},
		{"06:00", false},
		{"12:00", false},
		{"23:59", false},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			c, err := time.Parse("15:04", tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsLateNight(c))
		})
	}
}

func TestResolveTimes(t *testing.T) {
	utc := time.UTC
	tests := []struct {
		name      string
		entry     Entry
		start     string
		end       string
		lateNight bool
		dateTBD   bool
		timeTBD   bool
	}{
		{
			name:    "no date",
			entry:   Entry{ArtistName: "A"},
			dateTBD: true, timeTBD: true,
		},
		{
			name:    "explicit date_tbd wins over date",
			entry:   Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "20:00", DateTBD: boolPtr(true)},
			dateTBD: true, timeTBD: true,
		},
		{
			name:    "date only defaults to noon",
			entry:   Entry{ArtistName: "A", Date: "2026-06-12"},
			start:   "2026-06-12T12:00:00Z",
			timeTBD: true,
		},
		{
			name:  "evening show",
			entry: Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "20:00", EndTime: "21:15"},
			start: "2026-06-12T20:00:00Z",
			end:   "2026-06-12T21:15:00Z",
		},
		{
			name:      "late-night show moves to next calendar date",
			entry:     Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "01:00", EndTime: "02:00"},
			start:     "2026-06-13T01:00:00Z",
			end:       "2026-06-13T02:00:00Z",
			lateNight: true,
		},
		{
			name:  "show crossing midnight",
			entry: Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "23:30", EndTime: "00:45"},
			start: "2026-06-12T23:30:00Z",
			end:   "2026-06-13T00:45:00Z",
		},
		{
			name:      "cutoff boundary is not late-night",
			entry:     Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "06:00"},
			start:     "2026-06-12T06:00:00Z",
			lateNight: false,
		},
		{
			name:      "single digit hour",
			entry:     Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "5:30"},
			start:     "2026-06-13T05:30:00Z",
			lateNight: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := ResolveTimes(tt.entry, utc)
			require.NoError(t, err)
			assert.Equal(t, tt.lateNight, slot.LateNight)
			assert.Equal(t, tt.dateTBD, slot.DateTBD)
			assert.Equal(t, tt.timeTBD, slot.TimeTBD)
			if tt.start == "" {
				assert.Nil(t, slot.Start)
			} else {
				require.NotNil(t, slot.Start)
				assert.Equal(t, tt.start, slot.Start.Format(time.RFC3339))
			}
			if tt.end == "" {
				assert.Nil(t, slot.End)
			} else {
				require.NotNil(t, slot.End)
				assert.Equal(t, tt.end, slot.End.Format(time.RFC3339))
			}
		})
	}
}

func TestResolveTimesInFestivalZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	slot, err := ResolveTimes(Entry{ArtistName: "A", Date: "2026-06-12", StartTime: "01:00"}, loc)
	require.NoError(t, err)
	require.NotNil(t, slot.Start)
	// 01:00 CEST on the 13th is 23:00 UTC on the 12th
	assert.Equal(t, "2026-06-12T23:00:00Z", slot.Start.Format(time.RFC3339))
	assert.True(t, slot.LateNight)
	assert.Equal(t, "2026-06-12", FestivalDay(*slot.Start, slot.LateNight, loc).Format("2006-01-02"))
}

func TestResolveTimesErrors(t *testing.T) {
	for _, e := range []Entry{
		{ArtistName: "A", Date: "12.06.2026"},
		{ArtistName: "A", Date: "2026-06-12", StartTime: "8pm"},
		{ArtistName: "A", Date: "2026-06-12", StartTime: "20:00", EndTime: "25:00"},
	} {
		_, err := ResolveTimes(e, time.UTC)
		assert.Error(t, err, "%+v", e)
	}
}

func TestFestivalDay(t *testing.T) {
	start := time.Date(2026, 6, 13, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), FestivalDay(start, true, time.UTC))
	assert.Equal(t, time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC), FestivalDay(start, false, nil))
}
