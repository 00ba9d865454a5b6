package lineup

import (
	"sort"
	"time"

	"github.com/iliyamo/festplanner/internal/model"
)

// StageShows is one stage's shows within a festival day.
type StageShows struct {
	StageID   *string      `json:"stage_id,omitempty"`
	StageName string       `json:"stage_name"`
	Shows     []model.Show `json:"shows"`
}

// Day is one festival day.  Date is the festival day as YYYY-MM-DD, which
// for late-night shows is the calendar date before their start.
type Day struct {
	Date   string       `json:"date"`
	Stages []StageShows `json:"stages"`
}

// Schedule is a festival lineup arranged for display.
type Schedule struct {
	Days []Day        `json:"days"`
	TBD  []model.Show `json:"tbd"`
}

// GroupByDay arranges shows by festival day, then by stage name with
// unassigned shows last, each group ordered by start time.  Shows without
// a start time go to TBD ordered by band name.
func GroupByDay(shows []model.Show, loc *time.Location) Schedule {
	sched := Schedule{Days: []Day{}, TBD: []model.Show{}}
	byDay := map[string]map[string]*StageShows{}

	for _, s := range shows {
		if s.StartTime == nil {
			sched.TBD = append(sched.TBD, s)
			continue
		}
		day := FestivalDay(*s.StartTime, s.IsLateNight, loc).Format(dateLayout)
		stages, ok := byDay[day]
		if !ok {
			stages = map[string]*StageShows{}
			byDay[day] = stages
		}
		sk := ""
		name := ""
		if s.StageID != nil {
			sk = *s.StageID
			if s.StageName != nil {
				name = *s.StageName
			}
		}
		g, ok := stages[sk]
		if !ok {
			g = &StageShows{StageID: s.StageID, StageName: name}
			stages[sk] = g
		}
		g.Shows = append(g.Shows, s)
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	for _, d := range days {
		groups := make([]StageShows, 0, len(byDay[d]))
		for _, g := range byDay[d] {
			sort.SliceStable(g.Shows, func(i, j int) bool {
				a, b := g.Shows[i], g.Shows[j]
				if !a.StartTime.Equal(*b.StartTime) {
					return a.StartTime.Before(*b.StartTime)
				}
				return a.BandName < b.BandName
			})
			groups = append(groups, *g)
		}
		sort.Slice(groups, func(i, j int) bool {
			a, b := groups[i], groups[j]
			if (a.StageID == nil) != (b.StageID == nil) {
				return b.StageID == nil
			}
			if a.StageName != b.StageName {
				return a.StageName < b.StageName
			}
			return ptrStr(a.StageID) < ptrStr(b.StageID)
		})
		sched.Days = append(sched.Days, Day{Date: d, Stages: groups})
	}

	sort.SliceStable(sched.TBD, func(i, j int) bool { return sched.TBD[i].BandName < sched.TBD[j].BandName })
	return sched
}

func ptrStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
