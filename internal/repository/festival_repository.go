package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/festplanner/internal/model"
)

// FestivalRepo persists festivals.
type FestivalRepo struct{ db *sql.DB }

func NewFestivalRepo(db *sql.DB) *FestivalRepo { return &FestivalRepo{db: db} }

// DB exposes the underlying handle for callers that need a transaction.
func (r *FestivalRepo) DB() *sql.DB { return r.db }

const festivalCols = `id, name, description, start_date, end_date, timezone, image_url,
	website_url, is_public, created_by, created_at`

func scanFestival(s rowScanner) (*model.Festival, error) {
	var f model.Festival
	err := s.Scan(&f.ID, &f.Name, &f.Description, &f.StartDate, &f.EndDate, &f.Timezone,
		&f.ImageURL, &f.WebsiteURL, &f.IsPublic, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	f.StartDate = f.StartDate.UTC()
	f.EndDate = f.EndDate.UTC()
	return &f, nil
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create inserts f, assigning its ID and created_at.
func (r *FestivalRepo) Create(ctx context.Context, f *model.Festival) error {
	f.ID = newID()
	f.CreatedAt = now()
	f.StartDate = DateOnly(f.StartDate)
	f.EndDate = DateOnly(f.EndDate)
	if f.Timezone == "" {
		f.Timezone = "UTC"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO festivals (id, name, description, start_date, end_date, timezone, image_url,
		 website_url, is_public, created_by, created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.Name, f.Description, f.StartDate, f.EndDate, f.Timezone, f.ImageURL,
		f.WebsiteURL, f.IsPublic, f.CreatedBy, f.CreatedAt)
	return err
}

// GetByID fetches one festival regardless of visibility.
func (r *FestivalRepo) GetByID(ctx context.Context, id string) (*model.Festival, error) {
	return scanFestival(r.db.QueryRowContext(ctx,
		"SELECT "+festivalCols+" FROM festivals WHERE id=?", id))
}

// ListVisible returns the festivals a user may see: public ones, ones the
// user created, or all of them for admins.  Ordered by start date.
func (r *FestivalRepo) ListVisible(ctx context.Context, userID string, isAdmin bool) ([]model.Festival, error) {
	if isAdmin {
		return r.list(ctx, "SELECT "+festivalCols+" FROM festivals ORDER BY start_date, name")
	}
	return r.list(ctx,
		"SELECT "+festivalCols+" FROM festivals WHERE is_public=? OR created_by=? ORDER BY start_date, name",
		true, userID)
}

func (r *FestivalRepo) list(ctx context.Context, q string, args ...any) ([]model.Festival, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Festival{}
	for rows.Next() {
		f, err := scanFestival(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Update overwrites the editable columns of f.
func (r *FestivalRepo) Update(ctx context.Context, f *model.Festival) error {
	f.StartDate = DateOnly(f.StartDate)
	f.EndDate = DateOnly(f.EndDate)
	return affected(r.db.ExecContext(ctx,
		`UPDATE festivals SET name=?, description=?, start_date=?, end_date=?, timezone=?,
		 image_url=?, website_url=?, is_public=? WHERE id=?`,
		f.Name, f.Description, f.StartDate, f.EndDate, f.Timezone, f.ImageURL, f.WebsiteURL,
		f.IsPublic, f.ID))
}

// Delete removes a festival; stages and shows cascade.
func (r *FestivalRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM festivals WHERE id=?", id))
}
