package model

import "time"

// Show represents a scheduled (or not-yet-scheduled) performance of a band
// on a stage.  StartTime and EndTime are absolute UTC instants.  A show
// whose local clock time falls between midnight and the late-night cutoff
// carries IsLateNight and is listed under the previous festival day.
//
// Fields:
//
//	ID          – primary key identifier.
//	FestivalID  – festival the show belongs to.
//	BandID      – performing band.
//	StageID     – stage, nil while unassigned.
//	StartTime   – start instant, nil when the date is unknown.
//	EndTime     – end instant, nil when unknown.
//	IsLateNight – starts after midnight but belongs to the prior day.
//	DateTBD     – the date has not been announced.
//	TimeTBD     – the start time has not been announced.
//	BandName    – joined from bands for list responses.
//	StageName   – joined from stages for list responses.
type Show struct {
	ID          string     `json:"id"`                   // shows.id
	FestivalID  string     `json:"festival_id"`          // shows.festival_id
	BandID      string     `json:"band_id"`              // shows.band_id
	StageID     *string    `json:"stage_id,omitempty"`   // shows.stage_id (nullable)
	StartTime   *time.Time `json:"start_time,omitempty"` // shows.start_time (nullable)
	EndTime     *time.Time `json:"end_time,omitempty"`   // shows.end_time (nullable)
	IsLateNight bool       `json:"is_late_night"`        // shows.is_late_night
	DateTBD     bool       `json:"date_tbd"`             // shows.date_tbd
	TimeTBD     bool       `json:"time_tbd"`             // shows.time_tbd
	CreatedAt   time.Time  `json:"created_at"`           // shows.created_at

	BandName  string  `json:"band_name,omitempty"`  // bands.name
	StageName *string `json:"stage_name,omitempty"` // stages.name
}
