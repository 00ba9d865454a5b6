// Package repository contains data access logic for festival shows.  A
// Show is one band's performance slot on a festival stage; its times may
// be unknown while the lineup is still being announced.
package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/festplanner/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

const showSelect = `SELECT s.id, s.festival_id, s.band_id, s.stage_id, s.start_time, s.end_time,
	s.is_late_night, s.date_tbd, s.time_tbd, s.created_at, b.name, st.name
	FROM shows s
	JOIN bands b ON b.id = s.band_id
	LEFT JOIN stages st ON st.id = s.stage_id`

func scanShow(s rowScanner) (*model.Show, error) {
	var sh model.Show
	err := s.Scan(&sh.ID, &sh.FestivalID, &sh.BandID, &sh.StageID, &sh.StartTime, &sh.EndTime,
		&sh.IsLateNight, &sh.DateTBD, &sh.TimeTBD, &sh.CreatedAt, &sh.BandName, &sh.StageName)
	if err != nil {
		return nil, notFound(err)
	}
	sh.StartTime = utc(sh.StartTime)
	sh.EndTime = utc(sh.EndTime)
	return &sh, nil
}

// Create inserts a new show and assigns the generated ID back to it.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	return createShow(ctx, r.db, s)
}

// CreateBulkTx inserts every show using the provided transaction.  It
// does not commit; the caller must commit or roll back, so either all
// shows are stored or none are.
func (r *ShowRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, shows []*model.Show) error {
	for _, s := range shows {
		if err := createShow(ctx, tx, s); err != nil {
			return err
		}
	}
	return nil
}

func createShow(ctx context.Context, q DBTX, s *model.Show) error {
	s.ID = newID()
	s.CreatedAt = now()
	s.StartTime = utc(s.StartTime)
	s.EndTime = utc(s.EndTime)
	_, err := q.ExecContext(ctx,
		`INSERT INTO shows (id, festival_id, band_id, stage_id, start_time, end_time,
		 is_late_night, date_tbd, time_tbd, created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.FestivalID, s.BandID, s.StageID, s.StartTime, s.EndTime,
		s.IsLateNight, s.DateTBD, s.TimeTBD, s.CreatedAt)
	return err
}

// GetByID retrieves a show with its band and stage names.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	return scanShow(r.db.QueryRowContext(ctx, showSelect+" WHERE s.id = ?", id))
}

// ListByFestival returns all shows of a festival ordered by start time;
// shows without a time come last.
func (r *ShowRepo) ListByFestival(ctx context.Context, festivalID string) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx, showSelect+`
		WHERE s.festival_id = ?
		ORDER BY CASE WHEN s.start_time IS NULL THEN 1 ELSE 0 END, s.start_time, b.name`, festivalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []model.Show{}
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update overwrites the schedule columns of s.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	s.StartTime = utc(s.StartTime)
	s.EndTime = utc(s.EndTime)
	return affected(r.db.ExecContext(ctx,
		`UPDATE shows SET band_id=?, stage_id=?, start_time=?, end_time=?, is_late_night=?,
		 date_tbd=?, time_tbd=? WHERE id=?`,
		s.BandID, s.StageID, s.StartTime, s.EndTime, s.IsLateNight, s.DateTBD, s.TimeTBD, s.ID))
}

// Delete removes a show; ratings cascade.
func (r *ShowRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM shows WHERE id=?", id))
}
