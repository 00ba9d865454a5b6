// Package ranking aggregates trip members' show ratings into a
// leaderboard.
package ranking

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Accepted rating range, inclusive.
const (
	MinRating = 1
	MaxRating = 10
)

// ValidRating reports whether r is within the accepted range.
func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }

// Vote is one member's rating of one show.
type Vote struct {
	ShowID string
	UserID string
	Rating int
}

// ShowInfo describes a show that can appear on the leaderboard.
type ShowInfo struct {
	ShowID    string
	BandName  string
	StageName *string
	StartTime *time.Time
}

// Entry is one leaderboard row.  Average is rounded half-up to two
// decimals; ordering uses the exact ratio.
type Entry struct {
	Rank      int             `json:"rank"`
	ShowID    string          `json:"show_id"`
	BandName  string          `json:"band_name"`
	StageName *string         `json:"stage_name,omitempty"`
	StartTime *time.Time      `json:"start_time,omitempty"`
	Average   decimal.Decimal `json:"average"`
	Votes     int             `json:"votes"`
	Total     int             `json:"total"`
	MyRating  *int            `json:"my_rating,omitempty"`
}

// Aggregate builds the leaderboard for shows from votes.  Votes outside
// the accepted range or for unknown shows are ignored and shows without
// votes are left out.  Entries are sorted by average descending, then
// vote count descending, band name and show ID ascending.  Entries with
// the same average and vote count share a rank (1, 2, 2, 4).  MyRating is
// filled from userID's vote when present.
func Aggregate(shows []ShowInfo, votes []Vote, userID string) []Entry {
	byID := make(map[string]*Entry, len(shows))
	for _, s := range shows {
		byID[s.ShowID] = &Entry{ShowID: s.ShowID, BandName: s.BandName, StageName: s.StageName, StartTime: s.StartTime}
	}
	for _, v := range votes {
		if !ValidRating(v.Rating) {
			continue
		}
		e, ok := byID[v.ShowID]
		if !ok {
			continue
		}
		e.Votes++
		e.Total += v.Rating
		if userID != "" && v.UserID == userID {
			r := v.Rating
			e.MyRating = &r
		}
	}

	out := make([]Entry, 0, len(byID))
	for _, e := range byID {
		if e.Votes == 0 {
			continue
		}
		e.Average = decimal.NewFromInt(int64(e.Total)).DivRound(decimal.NewFromInt(int64(e.Votes)), 2)
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := compareAverage(a, b); c != 0 {
			return c > 0
		}
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if a.BandName != b.BandName {
			return a.BandName < b.BandName
		}
		return a.ShowID < b.ShowID
	})

	for i := range out {
		if i > 0 && compareAverage(out[i], out[i-1]) == 0 && out[i].Votes == out[i-1].Votes {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

// compareAverage compares Total/Votes exactly by cross-multiplication.
func compareAverage(a, b Entry) int {
	l := a.Total * b.Votes
	r := b.Total * a.Votes
	switch {
	case l > r:
		return 1
	case l < r:
		return -1
	}
	return 0
}
