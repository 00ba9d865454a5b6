package artist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *SpotifyClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &SpotifyClient{baseURL: srv.URL, httpClient: srv.Client()}
}

func TestNewSpotifyClientRequiresCredentials(t *testing.T) {
	_, err := NewSpotifyClient(config.SpotifyConfig{ClientID: "id"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSearchArtistPrefersExactMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Gojira", r.URL.Query().Get("q"))
		assert.Equal(t, "artist", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"artists":{"items":[
			{"id":"0aaaaaaaaaaaaaaaaaaaaa","name":"Gojira Tribute","images":[]},
			{"id":"0GDGKpJFhVpcjIGF8N6Ewt","name":"GOJIRA","genres":["metal"],
			 "images":[{"url":"https://i.scdn.co/small","width":160,"height":160},
			           {"url":"https://i.scdn.co/large","width":640,"height":640},
			           {"url":"https://i.scdn.co/mid","width":320,"height":320}]}
		]}}`))
	})

	a, err := c.SearchArtist(context.Background(), "Gojira")
	require.NoError(t, err)
	assert.Equal(t, "0GDGKpJFhVpcjIGF8N6Ewt", a.ID)
	assert.Equal(t, "https://open.spotify.com/artist/0GDGKpJFhVpcjIGF8N6Ewt", a.URL)
	assert.Equal(t, "https://i.scdn.co/large", a.ImageURL)
	assert.Equal(t, []string{"metal"}, a.Genres)
}

func TestSearchArtistFallsBackToFirstResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artists":{"items":[{"id":"first","name":"Something Else"}]}}`))
	})
	a, err := c.SearchArtist(context.Background(), "Nope")
	require.NoError(t, err)
	assert.Equal(t, "first", a.ID)
	assert.Empty(t, a.ImageURL)
}

func TestSearchArtistNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artists":{"items":[]}}`))
	})
	_, err := c.SearchArtist(context.Background(), "Unknown")
	assert.ErrorIs(t, err, ErrArtistNotFound)

	_, err = c.SearchArtist(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrArtistNotFound)
}

func TestSearchArtistAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.SearchArtist(context.Background(), "Gojira")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestParseSpotifyArtistID(t *testing.T) {
	const id = "4Z8W4fKeB5YxbusRsdQVPb"
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"web link", "https://open.spotify.com/artist/" + id, id, false},
		{"with query", "https://open.spotify.com/artist/" + id + "?si=abc", id, false},
		{"localized", "https://open.spotify.com/intl-de/artist/" + id, id, false},
		{"embed", "https://open.spotify.com/embed/artist/" + id, id, false},
		{"uri", "spotify:artist:" + id, id, false},
		{"album link", "https://open.spotify.com/album/" + id, "", true},
		{"other host", "https://example.com/artist/" + id, "", true},
		{"short id", "spotify:artist:abc", "", true},
		{"garbage", "not a url", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpotifyArtistID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArtistURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
