// Package artist looks up band metadata in the Spotify catalogue and
// backfills bands that lack an image or a Spotify link.
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package artist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/iliyamo/festplanner/internal/config"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	openArtistBase  = "https://open.spotify.com/artist/"
)

var (
	// ErrArtistNotFound is returned when a search has no results.
	ErrArtistNotFound = errors.New("artist not found")
	// ErrNotConfigured is returned when no client credentials are set.
	ErrNotConfigured = errors.New("spotify credentials not configured")
	// ErrInvalidArtistURL is returned by ParseSpotifyArtistID for foreign links.
	ErrInvalidArtistURL = errors.New("not a spotify artist link")
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

type artistSearchResponse struct {
	Artists struct {
		Items []SpotifyArtist `json:"items"`
	} `json:"artists"`
}

// Artist is the metadata the application keeps from a search hit.
type Artist struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	ImageURL string   `json:"image_url,omitempty"`
	Genres   []string `json:"genres,omitempty"`
}

// Searcher finds an artist by name.
type Searcher interface {
	SearchArtist(ctx context.Context, name string) (*Artist, error)
}

// SpotifyClient calls the Spotify Web API with an app token obtained via
// the client-credentials flow.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyClient builds a client from configuration.  The returned
// client refreshes its token automatically.
func NewSpotifyClient(cfg config.SpotifyConfig) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyTokenURL,
	}
	return &SpotifyClient{baseURL: spotifyBaseURL, httpClient: cc.Client(context.Background())}, nil
}

// SearchArtist returns the best match for name: an exact case-insensitive
// name match among the first results, otherwise the top result.
func (c *SpotifyClient) SearchArtist(ctx context.Context, name string) (*Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrArtistNotFound
	}
	q := url.Values{}
	q.Set("q", name)
	q.Set("type", "artist")
	q.Set("limit", "5")

	var resp artistSearchResponse
	if err := c.doRequest(ctx, "/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	items := resp.Artists.Items
	if len(items) == 0 {
		return nil, ErrArtistNotFound
	}
	best := items[0]
	for _, it := range items {
		if strings.EqualFold(it.Name, name) {
			best = it
			break
		}
	}
	return &Artist{
		ID:       best.ID,
		Name:     best.Name,
		URL:      ArtistURL(best.ID),
		ImageURL: largestImage(best.Images),
		Genres:   best.Genres,
	}, nil
}

// doRequest performs an authenticated GET and decodes the JSON body.
func (c *SpotifyClient) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ArtistURL returns the public web link for an artist ID.
func ArtistURL(id string) string { return openArtistBase + id }

// ParseSpotifyArtistID extracts the artist ID from an open.spotify.com link
// (optionally localized or embedded) or a spotify:artist: URI.
func ParseSpotifyArtistID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "spotify:artist:"); ok {
		if validID(rest) {
			return rest, nil
		}
		return "", ErrInvalidArtistURL
	}
	u, err := url.Parse(s)
	if err != nil || u.Host != "open.spotify.com" {
		return "", ErrInvalidArtistURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "artist" && validID(parts[i+1]) {
			return parts[i+1], nil
		}
	}
	return "", ErrInvalidArtistURL
}

// validID reports whether s looks like a base-62 Spotify ID.
func validID(s string) bool {
	if len(s) != 22 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func largestImage(images []SpotifyImage) string {
	best := -1
	url := ""
	for _, img := range images {
		if img.Width > best {
			best = img.Width
			url = img.URL
		}
	}
	return url
}
