// Package importer applies band and lineup documents to the catalogue.
// Progress is reported line by line, both to the logger and to the
// returned report, so operators see the same text in the API response and
// in the festctl output.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/iliyamo/festplanner/internal/lineup"
	"github.com/iliyamo/festplanner/internal/metrics"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/storage"
)

// ErrInvalidEntries is returned when a lineup contains entries whose
// date or times cannot be resolved.  Nothing is written in that case.
var ErrInvalidEntries = errors.New("lineup contains invalid entries")

// ImageStore re-hosts remote images.
type ImageStore interface {
	ImportURL(ctx context.Context, bucket, folder, name, rawURL string) (string, error)
}

// Importer writes parsed documents through the repositories.
type Importer struct {
	db     *sql.DB
	bands  *repository.BandRepo
	stages *repository.StageRepo
	shows  *repository.ShowRepo
	images ImageStore
	log    *log.Logger
}

// New builds an Importer.  images may be nil, in which case image URLs are
// stored as given.
func New(db *sql.DB, images ImageStore, logger *log.Logger) *Importer {
	return &Importer{
		db:     db,
		bands:  repository.NewBandRepo(db),
		stages: repository.NewStageRepo(db),
		shows:  repository.NewShowRepo(db),
		images: images,
		log:    logger,
	}
}

// Report is the outcome of an import run.
type Report struct {
	Processed      int      `json:"processed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	ArtistsCreated int      `json:"artists_created,omitempty"`
	StagesCreated  int      `json:"stages_created,omitempty"`
	ShowsCreated   int      `json:"shows_created,omitempty"`
	Logs           []string `json:"logs"`
	Error          string   `json:"error,omitempty"`
}

func (r *Report) logf(l *log.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Logs = append(r.Logs, msg)
	l.Info(msg)
}

func (r *Report) fail(l *log.Logger, err error) error {
	r.Error = err.Error()
	r.Logs = append(r.Logs, "Error: "+err.Error())
	l.Error("import failed", "err", err)
	return err
}

// PreviewBands matches entries against the catalogue without writing.
func (im *Importer) PreviewBands(ctx context.Context, entries []lineup.BandEntry) ([]lineup.PlannedBand, error) {
	existing, err := im.bands.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	return lineup.PlanBands(entries, existing), nil
}

// ImportBands creates or updates one band per entry, in order.  Each row
// commits on its own; the run stops at the first failure and rows written
// before it stay.  When rehost is set, image URLs are downloaded into
// storage first and the original URL is kept if that fails.
func (im *Importer) ImportBands(ctx context.Context, entries []lineup.BandEntry, rehost bool) (rep Report, err error) {
	rep.Logs = []string{}
	defer func() {
		metrics.TrackImport("bands", err)
		metrics.AddImportRows("bands", "created", rep.Created)
		metrics.AddImportRows("bands", "updated", rep.Updated)
	}()

	existing, err := im.bands.ListNames(ctx)
	if err != nil {
		return rep, rep.fail(im.log, err)
	}
	ids := make(map[string]string, len(existing))
	for _, b := range existing {
		k := lineup.BandKey(b.Name, b.Country())
		if _, ok := ids[k]; !ok {
			ids[k] = b.ID
		}
	}

	rep.logf(im.log, "Starting import...")
	for _, e := range entries {
		rep.logf(im.log, "Processing %s...", e.Name)

		image := e.ImageURL
		if image != "" && rehost && im.images != nil {
			rep.logf(im.log, "  Downloading image...")
			hosted, ierr := im.images.ImportURL(ctx, storage.BucketImages, storage.FolderBands, e.Name, image)
			if ierr != nil {
				im.log.Warn("image re-host failed", "band", e.Name, "err", ierr)
				rep.logf(im.log, "  Image download failed, keeping original URL.")
			} else {
				image = hosted
				rep.logf(im.log, "  Image saved to storage.")
			}
		}

		k := lineup.BandKey(e.Name, e.OriginCountry)
		if id, ok := ids[k]; ok {
			if err := im.updateBand(ctx, id, e, image); err != nil {
				return rep, rep.fail(im.log, fmt.Errorf("%s: %w", e.Name, err))
			}
			rep.Updated++
			rep.logf(im.log, "  Updated existing entry.")
		} else {
			b := bandFromEntry(e, image)
			if err := im.bands.Create(ctx, b); err != nil {
				return rep, rep.fail(im.log, fmt.Errorf("%s: %w", e.Name, err))
			}
			ids[k] = b.ID
			rep.Created++
			rep.logf(im.log, "  Created new entry.")
		}
		rep.Processed++
	}
	rep.logf(im.log, "Success! Processed %d bands.", rep.Processed)
	return rep, nil
}

func (im *Importer) updateBand(ctx context.Context, id string, e lineup.BandEntry, image string) error {
	b, err := im.bands.GetByID(ctx, id)
	if err != nil {
		return err
	}
	b.Name = e.Name
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	set(&b.OriginCountry, e.OriginCountry)
	set(&b.Bio, e.Bio)
	set(&b.WebsiteURL, e.WebsiteURL)
	set(&b.SpotifyURL, e.SpotifyURL)
	set(&b.AppleMusicURL, e.AppleMusicURL)
	set(&b.ImageURL, image)
	return im.bands.Update(ctx, b)
}

func bandFromEntry(e lineup.BandEntry, image string) *model.Band {
	opt := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	return &model.Band{
		Name:          e.Name,
		OriginCountry: opt(e.OriginCountry),
		Bio:           opt(e.Bio),
		WebsiteURL:    opt(e.WebsiteURL),
		SpotifyURL:    opt(e.SpotifyURL),
		AppleMusicURL: opt(e.AppleMusicURL),
		ImageURL:      opt(image),
	}
}

// PreviewLineup matches entries against the catalogue and the festival's
// stages without writing.
func (im *Importer) PreviewLineup(ctx context.Context, f *model.Festival, entries []lineup.Entry) (*lineup.LineupPlan, error) {
	bands, err := im.bands.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	stages, err := im.stages.ListByFestival(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return lineup.PlanLineup(entries, bands, stages, f.Location()), nil
}

// ImportLineup runs in three transactions: new artists, new stages, then
// every show.  A failing phase rolls back alone and stops the run; the
// phases before it stay committed.
func (im *Importer) ImportLineup(ctx context.Context, f *model.Festival, entries []lineup.Entry) (rep Report, err error) {
	rep.Logs = []string{}
	defer func() {
		metrics.TrackImport("lineup", err)
		metrics.AddImportRows("lineup", "artists", rep.ArtistsCreated)
		metrics.AddImportRows("lineup", "stages", rep.StagesCreated)
		metrics.AddImportRows("lineup", "shows", rep.ShowsCreated)
	}()

	plan, err := im.PreviewLineup(ctx, f, entries)
	if err != nil {
		return rep, rep.fail(im.log, err)
	}
	if n := plan.Errors(); n > 0 {
		return rep, rep.fail(im.log, fmt.Errorf("%w: %d", ErrInvalidEntries, n))
	}

	rep.logf(im.log, "Starting import...")

	if len(plan.NewArtists) > 0 {
		rep.logf(im.log, "Creating %d new artists...", len(plan.NewArtists))
		err := repository.WithTx(ctx, im.db, func(tx *sql.Tx) error {
			for _, a := range plan.NewArtists {
				b := &model.Band{Name: a.Name}
				if a.OriginCountry != "" {
					country := a.OriginCountry
					b.OriginCountry = &country
				}
				if err := im.bands.CreateTx(ctx, tx, b); err != nil {
					return fmt.Errorf("create artist %s: %w", a.Name, err)
				}
			}
			return nil
		})
		if err != nil {
			return rep, rep.fail(im.log, err)
		}
		rep.ArtistsCreated = len(plan.NewArtists)
		rep.logf(im.log, "Created %d artists.", rep.ArtistsCreated)
	}

	if len(plan.NewStages) > 0 {
		rep.logf(im.log, "Creating %d new stages...", len(plan.NewStages))
		err := repository.WithTx(ctx, im.db, func(tx *sql.Tx) error {
			for _, name := range plan.NewStages {
				s := &model.Stage{FestivalID: f.ID, Name: name}
				if err := im.stages.CreateTx(ctx, tx, s); err != nil {
					return fmt.Errorf("create stage %s: %w", name, err)
				}
			}
			return nil
		})
		if err != nil {
			return rep, rep.fail(im.log, err)
		}
		rep.StagesCreated = len(plan.NewStages)
	}

	rep.logf(im.log, "Resolving artist IDs...")
	plan, err = im.PreviewLineup(ctx, f, entries)
	if err != nil {
		return rep, rep.fail(im.log, err)
	}

	rep.logf(im.log, "Creating %d shows...", len(plan.Items))
	shows := make([]*model.Show, 0, len(plan.Items))
	for _, it := range plan.Items {
		if it.ArtistID == "" {
			return rep, rep.fail(im.log, fmt.Errorf("artist %q was not created", it.ArtistName))
		}
		s := &model.Show{
			FestivalID:  f.ID,
			BandID:      it.ArtistID,
			StartTime:   it.Slot.Start,
			EndTime:     it.Slot.End,
			IsLateNight: it.Slot.LateNight,
			DateTBD:     it.Slot.DateTBD,
			TimeTBD:     it.Slot.TimeTBD,
		}
		if it.StageID != "" {
			id := it.StageID
			s.StageID = &id
		}
		shows = append(shows, s)
	}
	err = repository.WithTx(ctx, im.db, func(tx *sql.Tx) error {
		return im.shows.CreateBulkTx(ctx, tx, shows)
	})
	if err != nil {
		return rep, rep.fail(im.log, err)
	}
	rep.ShowsCreated = len(shows)
	rep.Processed = len(shows)
	rep.Created = rep.ArtistsCreated + rep.StagesCreated + rep.ShowsCreated
	rep.logf(im.log, "Success! All shows imported.")
	return rep, nil
}

// Elapsed formats a run duration for CLI output.
func Elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
