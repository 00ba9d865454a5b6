package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/festplanner/internal/model"
)

// BandRepo persists bands.  The Tx variants let the importer group writes.
type BandRepo struct{ db *sql.DB }

func NewBandRepo(db *sql.DB) *BandRepo { return &BandRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *BandRepo) DB() *sql.DB { return r.db }

const bandCols = `id, name, bio, origin_country, image_url, website_url, spotify_url,
	apple_music_url, created_at`

func scanBand(s rowScanner) (*model.Band, error) {
	var b model.Band
	err := s.Scan(&b.ID, &b.Name, &b.Bio, &b.OriginCountry, &b.ImageURL, &b.WebsiteURL,
		&b.SpotifyURL, &b.AppleMusicURL, &b.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// Create inserts b and assigns its ID.
func (r *BandRepo) Create(ctx context.Context, b *model.Band) error {
	return createBand(ctx, r.db, b)
}

// CreateTx is Create inside the caller's transaction.  The caller must
// commit or roll back.
func (r *BandRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Band) error {
	return createBand(ctx, tx, b)
}

func createBand(ctx context.Context, q DBTX, b *model.Band) error {
	b.ID = newID()
	b.CreatedAt = now()
	_, err := q.ExecContext(ctx,
		`INSERT INTO bands (id, name, bio, origin_country, image_url, website_url, spotify_url,
		 apple_music_url, created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Name, b.Bio, b.OriginCountry, b.ImageURL, b.WebsiteURL, b.SpotifyURL,
		b.AppleMusicURL, b.CreatedAt)
	return err
}

// GetByID fetches one band.
func (r *BandRepo) GetByID(ctx context.Context, id string) (*model.Band, error) {
	return scanBand(r.db.QueryRowContext(ctx, "SELECT "+bandCols+" FROM bands WHERE id=?", id))
}

// List returns bands ordered by name.  A non-empty search filters by a
// case-insensitive substring of the name.
func (r *BandRepo) List(ctx context.Context, search string) ([]model.Band, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return r.list(ctx, "SELECT "+bandCols+" FROM bands ORDER BY name")
	}
	return r.list(ctx, "SELECT "+bandCols+" FROM bands WHERE LOWER(name) LIKE ? ORDER BY name",
		"%"+strings.ToLower(search)+"%")
}

// ListNames returns the identifying columns of every band.  The lineup
// and band importers match against it.
func (r *BandRepo) ListNames(ctx context.Context) ([]model.Band, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, origin_country FROM bands ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Band
	for rows.Next() {
		var b model.Band
		if err := rows.Scan(&b.ID, &b.Name, &b.OriginCountry); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListMissingMetadata returns bands with no image or no Spotify link.
func (r *BandRepo) ListMissingMetadata(ctx context.Context) ([]model.Band, error) {
	return r.list(ctx, "SELECT "+bandCols+` FROM bands
		WHERE image_url IS NULL OR image_url='' OR spotify_url IS NULL OR spotify_url=''
		ORDER BY name`)
}

func (r *BandRepo) list(ctx context.Context, q string, args ...any) ([]model.Band, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Band{}
	for rows.Next() {
		b, err := scanBand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Update overwrites every editable column of b.
func (r *BandRepo) Update(ctx context.Context, b *model.Band) error {
	return updateBand(ctx, r.db, b)
}

// UpdateTx is Update inside the caller's transaction.
func (r *BandRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *model.Band) error {
	return updateBand(ctx, tx, b)
}

func updateBand(ctx context.Context, q DBTX, b *model.Band) error {
	return affected(q.ExecContext(ctx,
		`UPDATE bands SET name=?, bio=?, origin_country=?, image_url=?, website_url=?,
		 spotify_url=?, apple_music_url=? WHERE id=?`,
		b.Name, b.Bio, b.OriginCountry, b.ImageURL, b.WebsiteURL, b.SpotifyURL,
		b.AppleMusicURL, b.ID))
}

// SetArtistLinks stores the metadata found by an artist search.  Nil
// arguments leave the column unchanged.
func (r *BandRepo) SetArtistLinks(ctx context.Context, id string, spotifyURL, imageURL *string) error {
	return affected(r.db.ExecContext(ctx,
		"UPDATE bands SET spotify_url=COALESCE(?, spotify_url), image_url=COALESCE(?, image_url) WHERE id=?",
		spotifyURL, imageURL, id))
}

// Delete removes a band and, by cascade, its shows.
func (r *BandRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM bands WHERE id=?", id))
}
