// Package lineup holds the festival schedule rules shared by the API, the
// importers and the CLI: late-night classification, resolution of
// announced dates and clock times into instants, matching of imported
// rows against existing bands and stages, and grouping of shows into
// festival days.
package lineup

import (
	"fmt"
	"strings"
	"time"
)

// LateNightCutoffHour is the first local hour that no longer counts as
// the previous night.  Shows starting in [00:00, 06:00) are late-night.
const LateNightCutoffHour = 6

const (
	dateLayout = "2006-01-02"
	noonHour   = 12
)

// Slot is the resolved schedule of one lineup entry.  Start and End are
// UTC instants; both are nil when the date is not known yet.
type Slot struct {
	Start     *time.Time `json:"start_time,omitempty"`
	End       *time.Time `json:"end_time,omitempty"`
	LateNight bool       `json:"is_late_night"`
	DateTBD   bool       `json:"date_tbd"`
	TimeTBD   bool       `json:"time_tbd"`
}

// IsLateNight reports whether t, read in its own location, falls before
// the late-night cutoff.
func IsLateNight(t time.Time) bool {
	return t.Hour() < LateNightCutoffHour
}

// FestivalDay returns the festival day a show belongs to as midnight UTC
// of that calendar date.  A late-night show belongs to the day before its
// calendar date in loc.
func FestivalDay(start time.Time, lateNight bool, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := start.In(loc)
	if lateNight {
		local = local.AddDate(0, 0, -1)
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveTimes turns an entry's announced date and clock times into a
// Slot.  The entry's date names the festival day, so a start before the
// cutoff is placed on the following calendar date together with its end.
// An end earlier than the start crosses midnight and moves to the next
// day as well.  Dates without a start time default to noon.
func ResolveTimes(e Entry, loc *time.Location) (Slot, error) {
	if loc == nil {
		loc = time.UTC
	}
	date := strings.TrimSpace(e.Date)
	if date == "" || (e.DateTBD != nil && *e.DateTBD) {
		return Slot{DateTBD: true, TimeTBD: true}, nil
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}

	if strings.TrimSpace(e.StartTime) == "" {
		start := at(day, noonHour, 0, loc)
		return Slot{Start: &start, TimeTBD: true}, nil
	}

	h, m, err := parseClock(e.StartTime)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid start_time %q: %w", e.StartTime, err)
	}
	late := h < LateNightCutoffHour
	if late {
		day = day.AddDate(0, 0, 1)
	}
	start := at(day, h, m, loc)
	slot := Slot{Start: &start, LateNight: late}

	if strings.TrimSpace(e.EndTime) != "" {
		eh, em, err := parseClock(e.EndTime)
		if err != nil {
			return Slot{}, fmt.Errorf("invalid end_time %q: %w", e.EndTime, err)
		}
		end := at(day, eh, em, loc)
		if end.Before(start) {
			end = at(day.AddDate(0, 0, 1), eh, em, loc)
		}
		slot.End = &end
	}
	return slot, nil
}

// at builds the wall-clock time h:m on day's calendar date in loc and
// returns it in UTC.
func at(day time.Time, h, m int, loc *time.Location) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc).UTC()
}

func parseClock(s string) (h, m int, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("want HH:MM")
}
