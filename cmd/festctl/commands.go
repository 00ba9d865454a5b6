package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/iliyamo/festplanner/internal/artist"
	"github.com/iliyamo/festplanner/internal/importer"
	"github.com/iliyamo/festplanner/internal/lineup"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/storage"
)

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Create or upgrade the database schema",
		Action: r.Migrate,
	}
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import JSON documents",
		Commands: []*cli.Command{
			{
				Name:      "bands",
				Usage:     "Create or update bands from a JSON array",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "preview", Usage: "Show what would change without writing"},
					&cli.BoolFlag{Name: "no-rehost", Usage: "Keep image URLs instead of copying them into storage"},
				},
				Action: r.ImportBands,
			},
			{
				Name:      "lineup",
				Usage:     "Import a festival lineup from a JSON array",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "festival", Aliases: []string{"f"}, Usage: "Festival ID", Required: true},
					&cli.BoolFlag{Name: "preview", Usage: "Show the matched lineup without writing"},
				},
				Action: r.ImportLineup,
			},
		},
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Refresh metadata from external catalogues",
		Commands: []*cli.Command{
			{
				Name:   "artists",
				Usage:  "Fill missing band images and Spotify links",
				Action: r.SyncArtists,
			},
		},
	}
}

func promoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "promote",
		Usage: "Change a user's role",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
			&cli.StringFlag{Name: "role", Usage: "user, admin or superadmin", Value: model.RoleAdmin},
		},
		Action: r.Promote,
	}
}

// Migrate applies the schema.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.database(ctx); err != nil {
		return err
	}
	r.writePlainln("✓ Schema is up to date (%s)", r.cfg.DBDriver)
	return nil
}

func readFileArg(cmd *cli.Command) ([]byte, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, errors.New("a file argument is required")
	}
	return os.ReadFile(path)
}

func (r *Runner) importer(ctx context.Context, rehost bool) (*importer.Importer, error) {
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	var images importer.ImageStore
	if rehost {
		st, err := storage.New(ctx, r.cfg.Storage)
		if err != nil {
			return nil, err
		}
		images = st
	}
	return importer.New(db, images, r.logger), nil
}

// ImportBands applies or previews a band document.
func (r *Runner) ImportBands(ctx context.Context, cmd *cli.Command) error {
	data, err := readFileArg(cmd)
	if err != nil {
		return err
	}
	entries, err := lineup.ParseBands(data)
	if err != nil {
		return err
	}
	im, err := r.importer(ctx, !cmd.Bool("no-rehost"))
	if err != nil {
		return err
	}
	if cmd.Bool("preview") {
		plan, err := im.PreviewBands(ctx, entries)
		if err != nil {
			return err
		}
		return r.writeJSON(plan)
	}

	start := time.Now()
	rep, err := im.ImportBands(ctx, entries, !cmd.Bool("no-rehost"))
	for _, line := range rep.Logs {
		r.writePlainln("%s", line)
	}
	if err != nil {
		return fmt.Errorf("import stopped after %d bands: %w", rep.Processed, err)
	}
	r.writePlainln("✓ %d created, %d updated in %s", rep.Created, rep.Updated, importer.Elapsed(start))
	return nil
}

// ImportLineup applies or previews a lineup document for one festival.
func (r *Runner) ImportLineup(ctx context.Context, cmd *cli.Command) error {
	data, err := readFileArg(cmd)
	if err != nil {
		return err
	}
	entries, err := lineup.ParseLineup(data)
	if err != nil {
		return err
	}
	im, err := r.importer(ctx, false)
	if err != nil {
		return err
	}
	f, err := repository.NewFestivalRepo(r.db).GetByID(ctx, cmd.String("festival"))
	if err != nil {
		return fmt.Errorf("festival %s: %w", cmd.String("festival"), err)
	}

	plan, err := im.PreviewLineup(ctx, f, entries)
	if err != nil {
		return err
	}
	if cmd.Bool("preview") || plan.Errors() > 0 {
		if err := r.writeJSON(plan); err != nil {
			return err
		}
		if n := plan.Errors(); n > 0 {
			return fmt.Errorf("%w: %d", importer.ErrInvalidEntries, n)
		}
		return nil
	}

	start := time.Now()
	rep, err := im.ImportLineup(ctx, f, entries)
	for _, line := range rep.Logs {
		r.writePlainln("%s", line)
	}
	if err != nil {
		return err
	}
	r.writePlainln("✓ %d artists, %d stages, %d shows created in %s",
		rep.ArtistsCreated, rep.StagesCreated, rep.ShowsCreated, importer.Elapsed(start))
	return nil
}

// SyncArtists backfills band metadata from Spotify.
func (r *Runner) SyncArtists(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database(ctx)
	if err != nil {
		return err
	}
	sp, err := artist.NewSpotifyClient(r.cfg.Spotify)
	if err != nil {
		return err
	}
	s := artist.NewSyncer(repository.NewBandRepo(db), sp, r.cfg.Spotify.SyncInterval, r.logger)
	rep, err := s.SyncMissing(ctx)
	if err != nil {
		return err
	}
	r.writePlainln("✓ Checked %d bands: %d updated, %d not found", rep.Checked, rep.Updated, rep.NotFound)
	for _, e := range rep.Errors {
		r.writePlainln("  ✗ %s", e)
	}
	return nil
}

// Promote sets a user's role.  The account must exist.
func (r *Runner) Promote(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")
	switch role {
	case model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	db, err := r.database(ctx)
	if err != nil {
		return err
	}
	email := repository.NormalizeEmail(cmd.String("email"))
	if err := repository.NewProfileRepo(db).SetRole(ctx, email, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no account for %s; the user must sign in once first", email)
		}
		return err
	}
	r.writePlainln("✓ %s is now %s", email, role)
	return nil
}
