package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/festplanner/internal/model"
)

// TripRepo persists trips.
type TripRepo struct{ db *sql.DB }

func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

const tripSelect = `SELECT t.id, t.name, t.description, t.festival_id, t.created_by, t.created_at,
	f.id, f.name, f.start_date, f.end_date
	FROM trips t
	LEFT JOIN festivals f ON f.id = t.festival_id`

func scanTrip(s rowScanner) (*model.Trip, error) {
	var (
		t      model.Trip
		fID    sql.NullString
		fName  sql.NullString
		fStart sql.NullTime
		fEnd   sql.NullTime
	)
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.FestivalID, &t.CreatedBy, &t.CreatedAt,
		&fID, &fName, &fStart, &fEnd)
	if err != nil {
		return nil, notFound(err)
	}
	if fID.Valid {
		t.Festival = &model.FestivalSummary{
			ID:        fID.String,
			Name:      fName.String,
			StartDate: fStart.Time.UTC(),
			EndDate:   fEnd.Time.UTC(),
		}
	}
	return &t, nil
}

// Create inserts the trip and its creator as an accepted admin member in
// one transaction.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	t.ID = newID()
	t.CreatedAt = now()
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO trips (id, name, description, festival_id, created_by, created_at) VALUES (?,?,?,?,?,?)",
			t.ID, t.Name, t.Description, t.FestivalID, t.CreatedBy, t.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO trip_members (id, trip_id, user_id, role, status, created_at) VALUES (?,?,?,?,?,?)",
			newID(), t.ID, t.CreatedBy, model.MemberRoleAdmin, model.MemberAccepted, t.CreatedAt)
		return err
	})
}

// GetByID fetches a trip with its festival summary.
func (r *TripRepo) GetByID(ctx context.Context, id string) (*model.Trip, error) {
	return scanTrip(r.db.QueryRowContext(ctx, tripSelect+" WHERE t.id = ?", id))
}

// ListForUser returns trips the user created or is an accepted member of,
// newest first.
func (r *TripRepo) ListForUser(ctx context.Context, userID string) ([]model.Trip, error) {
	rows, err := r.db.QueryContext(ctx, tripSelect+`
		WHERE t.created_by = ?
		   OR EXISTS (SELECT 1 FROM trip_members m
		               WHERE m.trip_id = t.id AND m.user_id = ? AND m.status = ?)
		ORDER BY t.created_at DESC, t.name`, userID, userID, model.MemberAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update overwrites name, description and festival.
func (r *TripRepo) Update(ctx context.Context, t *model.Trip) error {
	return affected(r.db.ExecContext(ctx,
		"UPDATE trips SET name=?, description=?, festival_id=? WHERE id=?",
		t.Name, t.Description, t.FestivalID, t.ID))
}

// Delete removes the trip with its members, invitations and ratings.
func (r *TripRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM trips WHERE id=?", id))
}
