package model

import "time"

// Band represents a performing artist.  Bands are global: the same row is
// referenced by shows at any number of festivals.
type Band struct {
	ID            string    `json:"id"`                        // bands.id
	Name          string    `json:"name"`                      // bands.name
	Bio           *string   `json:"bio,omitempty"`             // bands.bio
	OriginCountry *string   `json:"origin_country,omitempty"`  // bands.origin_country
	ImageURL      *string   `json:"image_url,omitempty"`       // bands.image_url
	WebsiteURL    *string   `json:"website_url,omitempty"`     // bands.website_url
	SpotifyURL    *string   `json:"spotify_url,omitempty"`     // bands.spotify_url
	AppleMusicURL *string   `json:"apple_music_url,omitempty"` // bands.apple_music_url
	CreatedAt     time.Time `json:"created_at"`                // bands.created_at
}

// Country returns the origin country or "" when unknown.
func (b Band) Country() string {
	if b.OriginCountry == nil {
		return ""
	}
	return *b.OriginCountry
}
