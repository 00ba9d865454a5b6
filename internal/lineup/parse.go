package lineup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotArray is returned when the pasted document is not a JSON array.
	ErrNotArray = errors.New("root element must be an array")
	// ErrNoEntries is returned when no element carries a name.
	ErrNoEntries = errors.New("no valid items found")
)

// Entry is one element of a lineup import document.
type Entry struct {
	ArtistName    string `json:"artist_name"`
	Date          string `json:"date,omitempty"`       // YYYY-MM-DD festival day
	StartTime     string `json:"start_time,omitempty"` // HH:MM local
	EndTime       string `json:"end_time,omitempty"`   // HH:MM local
	DateTBD       *bool  `json:"date_tbd,omitempty"`
	StageName     string `json:"stage_name,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// BandEntry is one element of a band import document.
type BandEntry struct {
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country,omitempty"`
	Bio           string `json:"bio,omitempty"`
	WebsiteURL    string `json:"website_url,omitempty"`
	SpotifyURL    string `json:"spotify_url,omitempty"`
	AppleMusicURL string `json:"apple_music_url,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
}

// ParseLineup decodes a lineup document.  Elements without artist_name
// are skipped.
func ParseLineup(data []byte) ([]Entry, error) {
	var raw []Entry
	if err := decodeArray(data, &raw); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, e := range raw {
		e.ArtistName = strings.TrimSpace(e.ArtistName)
		if e.ArtistName == "" {
			continue
		}
		e.StageName = strings.TrimSpace(e.StageName)
		e.OriginCountry = strings.TrimSpace(e.OriginCountry)
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

// ParseBands decodes a band document.  Elements without name are skipped.
func ParseBands(data []byte) ([]BandEntry, error) {
	var raw []BandEntry
	if err := decodeArray(data, &raw); err != nil {
		return nil, err
	}
	out := make([]BandEntry, 0, len(raw))
	for _, b := range raw {
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			continue
		}
		b.OriginCountry = strings.TrimSpace(b.OriginCountry)
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

func decodeArray(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("invalid JSON: empty document")
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("invalid JSON: malformed document")
	}
	if trimmed[0] != '[' {
		return ErrNotArray
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
