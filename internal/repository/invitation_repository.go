package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/festplanner/internal/model"
)

// InvitationRepo persists trip_invitations.
type InvitationRepo struct{ db *sql.DB }

func NewInvitationRepo(db *sql.DB) *InvitationRepo { return &InvitationRepo{db: db} }

const invitationCols = "id, trip_id, email, token, status, invited_by, created_at"

func scanInvitation(s rowScanner) (*model.TripInvitation, error) {
	var i model.TripInvitation
	if err := s.Scan(&i.ID, &i.TripID, &i.Email, &i.Token, &i.Status, &i.InvitedBy, &i.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &i, nil
}

// Create stores a pending invitation together with the pending member row
// for its email, in one transaction.  The token must already be set.  An
// email already on the trip yields ErrDuplicate and nothing is written.
func (r *InvitationRepo) Create(ctx context.Context, inv *model.TripInvitation) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := addPending(ctx, tx, inv.TripID, inv.Email); err != nil {
			return err
		}
		inv.ID = newID()
		inv.Email = NormalizeEmail(inv.Email)
		inv.Status = model.InvitationPending
		inv.CreatedAt = now()
		_, err := tx.ExecContext(ctx,
			"INSERT INTO trip_invitations ("+invitationCols+") VALUES (?,?,?,?,?,?,?)",
			inv.ID, inv.TripID, inv.Email, inv.Token, inv.Status, inv.InvitedBy, inv.CreatedAt)
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	})
}

// GetByID fetches an invitation by primary key.
func (r *InvitationRepo) GetByID(ctx context.Context, id string) (*model.TripInvitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		"SELECT "+invitationCols+" FROM trip_invitations WHERE id=?", id))
}

// GetByToken fetches an invitation by its link token.
func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*model.TripInvitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		"SELECT "+invitationCols+" FROM trip_invitations WHERE token=?", token))
}

// ListByTrip returns a trip's invitations, newest first.
func (r *InvitationRepo) ListByTrip(ctx context.Context, tripID string) ([]model.TripInvitation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+invitationCols+" FROM trip_invitations WHERE trip_id=? ORDER BY created_at DESC, email",
		tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TripInvitation{}
	for rows.Next() {
		i, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

// ListPendingForEmail returns the pending invitations addressed to email
// with the trip names, newest first.
func (r *InvitationRepo) ListPendingForEmail(ctx context.Context, email string) ([]model.PendingInvitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.trip_id, t.name, i.token, i.invited_by, COALESCE(p.display_name, p.email, ''), i.created_at
		   FROM trip_invitations i
		   JOIN trips t ON t.id = i.trip_id
		   LEFT JOIN profiles p ON p.id = i.invited_by
		  WHERE i.email=? AND i.status=?
		  ORDER BY i.created_at DESC, t.name`,
		NormalizeEmail(email), model.InvitationPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PendingInvitation{}
	for rows.Next() {
		var pi model.PendingInvitation
		if err := rows.Scan(&pi.ID, &pi.TripID, &pi.TripName, &pi.Token, &pi.InvitedBy, &pi.InviterName, &pi.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}

// MarkAccepted accepts a pending invitation on behalf of userID and links
// the corresponding member row, all in one transaction.  An invitation
// that is no longer pending yields ErrConflict.
func (r *InvitationRepo) MarkAccepted(ctx context.Context, inv *model.TripInvitation, userID string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE trip_invitations SET status=? WHERE id=? AND status=?",
			model.InvitationAccepted, inv.ID, model.InvitationPending)
		if err := affected(res, err); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrConflict
			}
			return err
		}
		inv.Status = model.InvitationAccepted
		return acceptMember(ctx, tx, inv.TripID, userID, inv.Email)
	})
}

// Revoke cancels a pending invitation and removes the pending member row
// that was created with it.
func (r *InvitationRepo) Revoke(ctx context.Context, inv *model.TripInvitation) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE trip_invitations SET status=? WHERE id=? AND status=?",
			model.InvitationRevoked, inv.ID, model.InvitationPending)
		if err := affected(res, err); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrConflict
			}
			return err
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM trip_members WHERE trip_id=? AND email=? AND user_id IS NULL AND status=?",
			inv.TripID, inv.Email, model.MemberPending)
		return err
	})
}
