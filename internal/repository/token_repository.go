package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh tokens by SHA-256 hash.  A token is usable
// while it is neither revoked nor expired.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

const insertRefresh = "INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?,?)"

// StoreRefresh records a newly issued token.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx, insertRefresh, newID(), userID, tokenHash, exp.UTC().Truncate(time.Second), now())
	return err
}

// ValidateRefresh returns the owner of a usable token.  Unknown, revoked
// and expired tokens all yield ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ?",
		tokenHash, now()).Scan(&userID)
	if err != nil {
		return "", notFound(err)
	}
	return userID, nil
}

// Rotate revokes oldHash and stores newHash for the same user in one
// transaction.  Only one of several concurrent rotations of the same token
// succeeds; the others get ErrNotFound.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, userID, newHash string, exp time.Time) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		ts := now()
		err := affected(tx.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND user_id=? AND revoked_at IS NULL AND expires_at > ?",
			ts, oldHash, userID, ts))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertRefresh, newID(), userID, newHash, exp.UTC().Truncate(time.Second), ts)
		return err
	})
}

// RevokeByHash revokes one token.  A token that is already revoked or
// does not exist yields ErrNotFound.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return affected(r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		now(), tokenHash))
}

// RevokeAllForUser revokes every active token of a user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now(), userID)
	return err
}
