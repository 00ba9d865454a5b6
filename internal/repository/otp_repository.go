package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/festplanner/internal/model"
)

// OTPRepo stores hashed one-time passcodes.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Create stores a new code hash for email.  Older unconsumed codes for the
// same address are consumed in the same transaction so only the most
// recent code is ever valid.
func (r *OTPRepo) Create(ctx context.Context, email, codeHash string, expiresAt time.Time) (*model.OTPCode, error) {
	c := &model.OTPCode{
		ID:        newID(),
		Email:     NormalizeEmail(email),
		CodeHash:  codeHash,
		ExpiresAt: expiresAt.UTC().Truncate(time.Second),
		CreatedAt: now(),
	}
	err := WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE otp_codes SET consumed_at=? WHERE email=? AND consumed_at IS NULL",
			c.CreatedAt, c.Email); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO otp_codes (id, email, code_hash, expires_at, attempts, created_at) VALUES (?,?,?,?,0,?)",
			c.ID, c.Email, c.CodeHash, c.ExpiresAt, c.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LatestActive returns the newest unconsumed, unexpired code for email.
func (r *OTPRepo) LatestActive(ctx context.Context, email string, at time.Time) (*model.OTPCode, error) {
	var c model.OTPCode
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, code_hash, expires_at, attempts, consumed_at, created_at
		   FROM otp_codes
		  WHERE email=? AND consumed_at IS NULL AND expires_at > ?
		  ORDER BY created_at DESC LIMIT 1`,
		NormalizeEmail(email), at.UTC().Truncate(time.Second)).
		Scan(&c.ID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &c.ConsumedAt, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// IncrementAttempts records a failed verification.
func (r *OTPRepo) IncrementAttempts(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE otp_codes SET attempts=attempts+1 WHERE id=?", id))
}

// Consume marks the code used.  A code that was already consumed yields
// ErrConflict so two concurrent verifications cannot both succeed.
func (r *OTPRepo) Consume(ctx context.Context, id string) error {
	err := affected(r.DB.ExecContext(ctx,
		"UPDATE otp_codes SET consumed_at=? WHERE id=? AND consumed_at IS NULL", now(), id))
	if errors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}
