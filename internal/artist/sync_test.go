package artist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/logging"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/testutil"
)

type fakeSearcher struct {
	artists map[string]*Artist
	fail    map[string]error
	calls   []string
}

func (f *fakeSearcher) SearchArtist(_ context.Context, name string) (*Artist, error) {
	f.calls = append(f.calls, name)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	if a, ok := f.artists[strings.ToLower(name)]; ok {
		return a, nil
	}
	return nil, ErrArtistNotFound
}

func TestSyncBandStoresLinks(t *testing.T) {
	db := testutil.NewDB(t)
	band := testutil.CreateBand(t, db, "Gojira", testutil.Ptr("FR"))
	search := &fakeSearcher{artists: map[string]*Artist{
		"gojira": {ID: "x", Name: "Gojira", URL: ArtistURL("x"), ImageURL: "https://i.scdn.co/large"},
	}}
	s := NewSyncer(repository.NewBandRepo(db), search, 0, logging.Discard())

	got, a, err := s.SyncBand(context.Background(), band.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", a.ID)
	require.NotNil(t, got.SpotifyURL)
	assert.Equal(t, "https://open.spotify.com/artist/x", *got.SpotifyURL)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://i.scdn.co/large", *got.ImageURL)
}

func TestSyncBandNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	band := testutil.CreateBand(t, db, "Obscure", nil)
	s := NewSyncer(repository.NewBandRepo(db), &fakeSearcher{}, 0, logging.Discard())

	_, _, err := s.SyncBand(context.Background(), band.ID)
	assert.ErrorIs(t, err, ErrArtistNotFound)

	_, _, err = s.SyncBand(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSyncMissingCollectsOutcomes(t *testing.T) {
	db := testutil.NewDB(t)
	bands := repository.NewBandRepo(db)
	ctx := context.Background()

	found := testutil.CreateBand(t, db, "Alpha", nil)
	testutil.CreateBand(t, db, "Beta", nil)
	testutil.CreateBand(t, db, "Gamma", nil)
	complete := testutil.CreateBand(t, db, "Delta", nil)
	require.NoError(t, bands.SetArtistLinks(ctx, complete.ID,
		testutil.Ptr("https://open.spotify.com/artist/d"), testutil.Ptr("https://img/d")))

	search := &fakeSearcher{
		artists: map[string]*Artist{"alpha": {ID: "a", URL: ArtistURL("a"), ImageURL: "https://img/a"}},
		fail:    map[string]error{"Gamma": errors.New("spotify API error: status 500")},
	}
	s := NewSyncer(bands, search, 0, logging.Discard())

	rep, err := s.SyncMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Checked)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, 1, rep.NotFound)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "Gamma")
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, search.calls)

	got, err := bands.GetByID(ctx, found.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img/a", *got.ImageURL)
}

func TestSyncMissingKeepsExistingImage(t *testing.T) {
	db := testutil.NewDB(t)
	bands := repository.NewBandRepo(db)
	ctx := context.Background()

	b := testutil.CreateBand(t, db, "Alpha", nil)
	require.NoError(t, bands.SetArtistLinks(ctx, b.ID, nil, testutil.Ptr("https://own/image.png")))

	search := &fakeSearcher{artists: map[string]*Artist{
		"alpha": {ID: "a", URL: ArtistURL("a"), ImageURL: "https://img/a"},
	}}
	_, err := NewSyncer(bands, search, 0, logging.Discard()).SyncMissing(ctx)
	require.NoError(t, err)

	got, err := bands.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://own/image.png", *got.ImageURL)
	assert.Equal(t, ArtistURL("a"), *got.SpotifyURL)
}

func TestSyncMissingStopsOnCancel(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateBand(t, db, "Alpha", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSyncer(repository.NewBandRepo(db), &fakeSearcher{}, 0, logging.Discard()).SyncMissing(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
