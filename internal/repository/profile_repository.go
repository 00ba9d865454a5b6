package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/festplanner/internal/model"
)

// ProfileRepo persists the `profiles` table.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileCols = "id, email, display_name, role, created_at"

func scanProfile(s rowScanner) (*model.Profile, error) {
	var p model.Profile
	if err := s.Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByID fetches a profile by primary key.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileCols+" FROM profiles WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a profile by normalized email.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileCols+" FROM profiles WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// Upsert returns the profile for email, creating it with the user role on
// first login.
func (r *ProfileRepo) Upsert(ctx context.Context, email string) (*model.Profile, error) {
	email = NormalizeEmail(email)
	p, err := r.GetByEmail(ctx, email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	p = &model.Profile{ID: newID(), Email: email, Role: model.RoleUser, CreatedAt: now()}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO profiles (id, email, role, created_at) VALUES (?,?,?,?)",
		p.ID, p.Email, p.Role, p.CreatedAt)
	if isDuplicate(err) {
		// lost a race with a concurrent first login
		return r.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetRole changes the role of the profile with the given email.
func (r *ProfileRepo) SetRole(ctx context.Context, email, role string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE profiles SET role=? WHERE email=?", role, NormalizeEmail(email)))
}

// SetDisplayName updates the name shown to other trip members.
func (r *ProfileRepo) SetDisplayName(ctx context.Context, id string, name *string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE profiles SET display_name=? WHERE id=?", name, id))
}

// List returns all profiles ordered by email.
func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+profileCols+" FROM profiles ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
