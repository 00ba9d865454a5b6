package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/festplanner/internal/model"
)

// RatingRepo persists show_interactions, one row per (trip, show, user).
type RatingRepo struct{ db *sql.DB }

func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

const ratingCols = "id, trip_id, show_id, user_id, rating, created_at, updated_at"

// Upsert sets the user's rating for a show, replacing any previous value.
// It updates first and inserts when nothing matched; a concurrent insert
// that wins the race is followed by a second update.
func (r *RatingRepo) Upsert(ctx context.Context, tripID, showID, userID string, rating int) (*model.Rating, error) {
	ts := now()
	update := func() (int64, error) {
		res, err := r.db.ExecContext(ctx,
			"UPDATE show_interactions SET rating=?, updated_at=? WHERE trip_id=? AND show_id=? AND user_id=?",
			rating, ts, tripID, showID, userID)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}
	n, err := update()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		_, err = r.db.ExecContext(ctx,
			"INSERT INTO show_interactions ("+ratingCols+") VALUES (?,?,?,?,?,?,?)",
			newID(), tripID, showID, userID, rating, ts, ts)
		if isDuplicate(err) {
			_, err = update()
		}
		if err != nil {
			return nil, err
		}
	}
	return r.get(ctx, tripID, showID, userID)
}

func (r *RatingRepo) get(ctx context.Context, tripID, showID, userID string) (*model.Rating, error) {
	var rt model.Rating
	err := r.db.QueryRowContext(ctx,
		"SELECT "+ratingCols+" FROM show_interactions WHERE trip_id=? AND show_id=? AND user_id=?",
		tripID, showID, userID).
		Scan(&rt.ID, &rt.TripID, &rt.ShowID, &rt.UserID, &rt.Rating, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

// Delete withdraws the user's rating for a show.
func (r *RatingRepo) Delete(ctx context.Context, tripID, showID, userID string) error {
	return affected(r.db.ExecContext(ctx,
		"DELETE FROM show_interactions WHERE trip_id=? AND show_id=? AND user_id=?",
		tripID, showID, userID))
}

// ListByTrip returns every rating cast within a trip.
func (r *RatingRepo) ListByTrip(ctx context.Context, tripID string) ([]model.Rating, error) {
	return r.list(ctx, "SELECT "+ratingCols+" FROM show_interactions WHERE trip_id=? ORDER BY show_id, user_id", tripID)
}

// ListForUser returns the ratings a single member cast within a trip.
func (r *RatingRepo) ListForUser(ctx context.Context, tripID, userID string) ([]model.Rating, error) {
	return r.list(ctx, "SELECT "+ratingCols+" FROM show_interactions WHERE trip_id=? AND user_id=? ORDER BY show_id", tripID, userID)
}

func (r *RatingRepo) list(ctx context.Context, q string, args ...any) ([]model.Rating, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Rating{}
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.ID, &rt.TripID, &rt.ShowID, &rt.UserID, &rt.Rating, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// withdrawAll clears a member's ratings when they leave a trip.
func withdrawAll(ctx context.Context, q DBTX, tripID, userID string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM show_interactions WHERE trip_id=? AND user_id=?", tripID, userID)
	return err
}
