package artist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/iliyamo/festplanner/internal/metrics"
	"github.com/iliyamo/festplanner/internal/model"
)

// BandStore is the subset of the band repository the syncer needs.
type BandStore interface {
	GetByID(ctx context.Context, id string) (*model.Band, error)
	ListMissingMetadata(ctx context.Context) ([]model.Band, error)
	SetArtistLinks(ctx context.Context, id string, spotifyURL, imageURL *string) error
}

// SyncReport summarises a bulk sync.
type SyncReport struct {
	Checked  int      `json:"checked"`
	Updated  int      `json:"updated"`
	NotFound int      `json:"not_found"`
	Errors   []string `json:"errors"`
}

// Syncer copies Spotify links and images onto bands.
type Syncer struct {
	bands   BandStore
	search  Searcher
	limiter *rate.Limiter
	log     *log.Logger
}

// NewSyncer spaces outgoing searches at least interval apart.
func NewSyncer(bands BandStore, search Searcher, interval time.Duration, logger *log.Logger) *Syncer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Syncer{bands: bands, search: search, limiter: rate.NewLimiter(limit, 1), log: logger}
}

// SyncBand looks up one band and stores its Spotify link and, when the
// band has none yet, the largest image.  ErrArtistNotFound is returned
// unchanged when the search has no hit.
func (s *Syncer) SyncBand(ctx context.Context, id string) (*model.Band, *Artist, error) {
	b, err := s.bands.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.apply(ctx, b, true)
	if err != nil {
		return nil, nil, err
	}
	b, err = s.bands.GetByID(ctx, id)
	return b, a, err
}

func (s *Syncer) apply(ctx context.Context, b *model.Band, overwriteImage bool) (*Artist, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	a, err := s.search.SearchArtist(ctx, b.Name)
	switch {
	case errors.Is(err, ErrArtistNotFound):
		metrics.TrackArtistSync("not_found")
		return nil, err
	case err != nil:
		metrics.TrackArtistSync("error")
		return nil, err
	}

	spotify := a.URL
	var image *string
	if a.ImageURL != "" && (overwriteImage || b.ImageURL == nil || *b.ImageURL == "") {
		image = &a.ImageURL
	}
	if err := s.bands.SetArtistLinks(ctx, b.ID, &spotify, image); err != nil {
		metrics.TrackArtistSync("error")
		return nil, err
	}
	metrics.TrackArtistSync("updated")
	return a, nil
}

// SyncMissing walks every band lacking an image or Spotify link, one
// search at a time.  Per-band failures are collected in the report; only
// context cancellation or a failure to list bands aborts the run.
func (s *Syncer) SyncMissing(ctx context.Context) (SyncReport, error) {
	rep := SyncReport{Errors: []string{}}
	bands, err := s.bands.ListMissingMetadata(ctx)
	if err != nil {
		return rep, err
	}
	for i := range bands {
		b := &bands[i]
		rep.Checked++
		_, err := s.apply(ctx, b, false)
		switch {
		case err == nil:
			rep.Updated++
			s.log.Info("artist synced", "band", b.Name)
		case errors.Is(err, ErrArtistNotFound):
			rep.NotFound++
			s.log.Warn("artist not found", "band", b.Name)
		case ctx.Err() != nil:
			return rep, ctx.Err()
		default:
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", b.Name, err))
			s.log.Error("artist sync failed", "band", b.Name, "err", err)
		}
	}
	return rep, nil
}
