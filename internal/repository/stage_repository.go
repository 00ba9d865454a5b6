package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/festplanner/internal/model"
)

// StageRepo persists festival stages.
type StageRepo struct{ db *sql.DB }

func NewStageRepo(db *sql.DB) *StageRepo { return &StageRepo{db: db} }

// Create inserts a stage.  A name already used at the festival yields
// ErrDuplicate.
func (r *StageRepo) Create(ctx context.Context, s *model.Stage) error {
	return createStage(ctx, r.db, s)
}

// CreateTx is Create inside the caller's transaction.
func (r *StageRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Stage) error {
	return createStage(ctx, tx, s)
}

func createStage(ctx context.Context, q DBTX, s *model.Stage) error {
	s.ID = newID()
	s.CreatedAt = now()
	_, err := q.ExecContext(ctx,
		"INSERT INTO stages (id, festival_id, name, created_at) VALUES (?,?,?,?)",
		s.ID, s.FestivalID, s.Name, s.CreatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID fetches one stage.
func (r *StageRepo) GetByID(ctx context.Context, id string) (*model.Stage, error) {
	var s model.Stage
	err := r.db.QueryRowContext(ctx,
		"SELECT id, festival_id, name, created_at FROM stages WHERE id=?", id).
		Scan(&s.ID, &s.FestivalID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ListByFestival returns a festival's stages ordered by name.
func (r *StageRepo) ListByFestival(ctx context.Context, festivalID string) ([]model.Stage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, festival_id, name, created_at FROM stages WHERE festival_id=? ORDER BY name",
		festivalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Stage{}
	for rows.Next() {
		var s model.Stage
		if err := rows.Scan(&s.ID, &s.FestivalID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a stage.  When shows still reference it the call fails
// with ErrConflict unless force is set, in which case those shows are
// detached from the stage first.
func (r *StageRepo) Delete(ctx context.Context, id string, force bool) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM shows WHERE stage_id=?", id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			if !force {
				return ErrConflict
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE shows SET stage_id=NULL WHERE stage_id=?", id); err != nil {
				return err
			}
		}
		return affected(tx.ExecContext(ctx, "DELETE FROM stages WHERE id=?", id))
	})
}
