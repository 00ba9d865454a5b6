package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/festplanner/internal/model"
)

// MemberRepo persists trip_members.  A member row is either linked to a
// profile (user_id) or, while an invitation is pending, only to an email.
type MemberRepo struct{ db *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

const memberSelect = `SELECT m.id, m.trip_id, m.user_id, COALESCE(p.email, m.email), m.role, m.status, m.created_at
	FROM trip_members m
	LEFT JOIN profiles p ON p.id = m.user_id`

func scanMember(s rowScanner) (*model.TripMember, error) {
	var m model.TripMember
	if err := s.Scan(&m.ID, &m.TripID, &m.UserID, &m.Email, &m.Role, &m.Status, &m.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListByTrip returns all members of a trip, admins first.
func (r *MemberRepo) ListByTrip(ctx context.Context, tripID string) ([]model.TripMember, error) {
	rows, err := r.db.QueryContext(ctx, memberSelect+`
		WHERE m.trip_id = ?
		ORDER BY CASE WHEN m.role = 'admin' THEN 0 ELSE 1 END, m.created_at`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TripMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetByID fetches one member row.
func (r *MemberRepo) GetByID(ctx context.Context, id string) (*model.TripMember, error) {
	return scanMember(r.db.QueryRowContext(ctx, memberSelect+" WHERE m.id = ?", id))
}

// GetRole returns the role and status of a user within a trip, or
// ErrNotFound when the user has no member row.
func (r *MemberRepo) GetRole(ctx context.Context, tripID, userID string) (role, status string, err error) {
	err = r.db.QueryRowContext(ctx,
		"SELECT role, status FROM trip_members WHERE trip_id=? AND user_id=?",
		tripID, userID).Scan(&role, &status)
	if err != nil {
		return "", "", notFound(err)
	}
	return role, status, nil
}

// addPending records an invited email as a pending member.  An email that
// is already listed for the trip yields ErrDuplicate.
func addPending(ctx context.Context, q DBTX, tripID, email string) (*model.TripMember, error) {
	email = NormalizeEmail(email)
	m := &model.TripMember{
		ID:        newID(),
		TripID:    tripID,
		Email:     &email,
		Role:      model.MemberRoleMember,
		Status:    model.MemberPending,
		CreatedAt: now(),
	}
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trip_members m LEFT JOIN profiles p ON p.id = m.user_id
		  WHERE m.trip_id=? AND (m.email=? OR p.email=?)`, tripID, email, email).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrDuplicate
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO trip_members (id, trip_id, email, role, status, created_at) VALUES (?,?,?,?,?,?)",
		m.ID, m.TripID, m.Email, m.Role, m.Status, m.CreatedAt)
	if isDuplicate(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Accept links the pending row for email to userID and marks it accepted.
// When no pending row exists a new accepted member row is inserted; a user
// who is already a member is left unchanged.
func (r *MemberRepo) Accept(ctx context.Context, tripID, userID, email string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return acceptMember(ctx, tx, tripID, userID, email)
	})
}

func acceptMember(ctx context.Context, tx *sql.Tx, tripID, userID, email string) error {
	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trip_members WHERE trip_id=? AND user_id=?", tripID, userID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		// already linked; drop a leftover pending email row
		_, err := tx.ExecContext(ctx,
			"DELETE FROM trip_members WHERE trip_id=? AND email=? AND user_id IS NULL",
			tripID, NormalizeEmail(email))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE trip_members SET status=? WHERE trip_id=? AND user_id=?",
			model.MemberAccepted, tripID, userID)
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE trip_members SET user_id=?, status=? WHERE trip_id=? AND email=? AND user_id IS NULL",
		userID, model.MemberAccepted, tripID, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err != nil || rows > 0 {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO trip_members (id, trip_id, user_id, role, status, created_at) VALUES (?,?,?,?,?,?)",
		newID(), tripID, userID, model.MemberRoleMember, model.MemberAccepted, now())
	return err
}

// Remove deletes a member row together with the ratings that member cast
// within the trip.
func (r *MemberRepo) Remove(ctx context.Context, id string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			tripID string
			userID sql.NullString
		)
		err := tx.QueryRowContext(ctx,
			"SELECT trip_id, user_id FROM trip_members WHERE id=?", id).Scan(&tripID, &userID)
		if err != nil {
			return notFound(err)
		}
		if userID.Valid {
			if err := withdrawAll(ctx, tx, tripID, userID.String); err != nil {
				return err
			}
		}
		return affected(tx.ExecContext(ctx, "DELETE FROM trip_members WHERE id=?", id))
	})
}

// CountAccepted returns the number of accepted members of a trip.
func (r *MemberRepo) CountAccepted(ctx context.Context, tripID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trip_members WHERE trip_id=? AND status=?",
		tripID, model.MemberAccepted).Scan(&n)
	return n, err
}

// CountAdmins returns the number of accepted admins of a trip.
func (r *MemberRepo) CountAdmins(ctx context.Context, tripID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trip_members WHERE trip_id=? AND role=? AND status=?",
		tripID, model.MemberRoleAdmin, model.MemberAccepted).Scan(&n)
	return n, err
}
