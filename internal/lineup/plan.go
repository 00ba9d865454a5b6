package lineup

import (
	"strings"
	"time"

	"github.com/iliyamo/festplanner/internal/model"
)

// Item statuses in a preview.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// PlannedShow is the preview of one lineup entry: the entry as given, how
// it resolves against existing rows and its computed schedule.
type PlannedShow struct {
	Entry
	Slot        Slot   `json:"slot"`
	IsNewArtist bool   `json:"is_new_artist"`
	ArtistID    string `json:"artist_id,omitempty"`
	StageID     string `json:"stage_id,omitempty"`
	IsNewStage  bool   `json:"is_new_stage"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

// NewArtist is a band the lineup import will create.
type NewArtist struct {
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// LineupPlan is the result of matching a lineup document against the
// catalogue.
type LineupPlan struct {
	Items      []PlannedShow `json:"items"`
	NewArtists []NewArtist   `json:"new_artists"`
	NewStages  []string      `json:"new_stages"`
}

// Errors returns the number of entries that cannot be imported.
func (p *LineupPlan) Errors() int {
	n := 0
	for _, it := range p.Items {
		if it.Status == StatusError {
			n++
		}
	}
	return n
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// PlanLineup matches entries against the existing bands and the
// festival's stages by case-insensitive name.  Unknown artists and stages
// are listed once each, in order of first appearance; for artists the
// first non-empty origin country wins.  Entries whose date or times do
// not parse are marked with StatusError.
func PlanLineup(entries []Entry, bands []model.Band, stages []model.Stage, loc *time.Location) *LineupPlan {
	bandIDs := make(map[string]string, len(bands))
	for _, b := range bands {
		if _, ok := bandIDs[key(b.Name)]; !ok {
			bandIDs[key(b.Name)] = b.ID
		}
	}
	stageIDs := make(map[string]string, len(stages))
	for _, s := range stages {
		stageIDs[key(s.Name)] = s.ID
	}

	plan := &LineupPlan{Items: make([]PlannedShow, 0, len(entries)), NewArtists: []NewArtist{}, NewStages: []string{}}
	newArtist := map[string]int{}
	newStage := map[string]bool{}

	for _, e := range entries {
		it := PlannedShow{Entry: e, Status: StatusReady}

		if id, ok := bandIDs[key(e.ArtistName)]; ok {
			it.ArtistID = id
		} else {
			it.IsNewArtist = true
			if i, seen := newArtist[key(e.ArtistName)]; !seen {
				newArtist[key(e.ArtistName)] = len(plan.NewArtists)
				plan.NewArtists = append(plan.NewArtists, NewArtist{Name: e.ArtistName, OriginCountry: e.OriginCountry})
			} else if plan.NewArtists[i].OriginCountry == "" {
				plan.NewArtists[i].OriginCountry = e.OriginCountry
			}
		}

		if e.StageName != "" {
			if id, ok := stageIDs[key(e.StageName)]; ok {
				it.StageID = id
			} else {
				it.IsNewStage = true
				if !newStage[key(e.StageName)] {
					newStage[key(e.StageName)] = true
					plan.NewStages = append(plan.NewStages, e.StageName)
				}
			}
		}

		slot, err := ResolveTimes(e, loc)
		if err != nil {
			it.Status = StatusError
			it.Message = err.Error()
		}
		it.Slot = slot
		plan.Items = append(plan.Items, it)
	}
	return plan
}

// PlannedBand is the preview of one band import entry.
type PlannedBand struct {
	BandEntry
	IsNew      bool   `json:"is_new"`
	ExistingID string `json:"existing_id,omitempty"`
}

// BandKey identifies a band for import matching: lower-cased name plus
// origin country, where two unknown countries match each other.
func BandKey(name, country string) string {
	return key(name) + "\x00" + key(country)
}

// PlanBands decides for each entry whether it updates an existing band or
// creates a new one.  A band matches when the names are equal ignoring
// case and the origin countries are equal or both empty.
func PlanBands(entries []BandEntry, existing []model.Band) []PlannedBand {
	ids := make(map[string]string, len(existing))
	for _, b := range existing {
		k := BandKey(b.Name, b.Country())
		if _, ok := ids[k]; !ok {
			ids[k] = b.ID
		}
	}
	out := make([]PlannedBand, 0, len(entries))
	for _, e := range entries {
		pb := PlannedBand{BandEntry: e}
		if id, ok := ids[BandKey(e.Name, e.OriginCountry)]; ok {
			pb.ExistingID = id
		} else {
			pb.IsNew = true
		}
		out = append(out, pb)
	}
	return out
}
