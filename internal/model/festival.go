package model

import (
	"time"
	_ "time/tzdata" // festival zones must resolve on hosts without zoneinfo
)

// Festival represents a calendar-bounded event with a lineup.  StartDate
// and EndDate are calendar dates stored at midnight UTC; Timezone is the
// IANA zone the festival takes place in and is used to decide which
// festival day a show belongs to.
type Festival struct {
	ID          string    `json:"id"`                    // festivals.id
	Name        string    `json:"name"`                  // festivals.name
	Description *string   `json:"description,omitempty"` // festivals.description
	StartDate   time.Time `json:"start_date"`            // festivals.start_date
	EndDate     time.Time `json:"end_date"`              // festivals.end_date
	Timezone    string    `json:"timezone"`              // festivals.timezone
	ImageURL    *string   `json:"image_url,omitempty"`   // festivals.image_url
	WebsiteURL  *string   `json:"website_url,omitempty"` // festivals.website_url
	IsPublic    bool      `json:"is_public"`             // festivals.is_public
	CreatedBy   *string   `json:"created_by,omitempty"`  // festivals.created_by (nullable)
	CreatedAt   time.Time `json:"created_at"`            // festivals.created_at
}

// Location returns the festival's time zone, falling back to UTC when the
// stored name cannot be loaded.
func (f Festival) Location() *time.Location {
	if f.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FestivalSummary is the short form embedded in trip responses.
type FestivalSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Stage is a named performance location within a festival.  Names are
// unique per festival.
type Stage struct {
	ID         string    `json:"id"`          // stages.id
	FestivalID string    `json:"festival_id"` // stages.festival_id
	Name       string    `json:"name"`        // stages.name
	CreatedAt  time.Time `json:"created_at"`  // stages.created_at
}
