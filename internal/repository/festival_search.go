package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/festplanner/internal/model"
)

// Festival search time filters.
const (
	WhenAny      = "any"
	WhenUpcoming = "upcoming" // starts today or later
	WhenActive   = "active"   // has not ended yet
)

// FestivalQuery defines filters & pagination for the public festival list.
type FestivalQuery struct {
	Search   string
	When     string
	Page     int
	PageSize int
	Today    time.Time // zero means the current date
}

// SearchPublic returns one page of public festivals matching q together
// with the total number of matches.
func (r *FestivalRepo) SearchPublic(ctx context.Context, q FestivalQuery) ([]model.Festival, int64, error) {
	where := []string{"is_public = ?"}
	args := []any{true}

	today := q.Today
	if today.IsZero() {
		today = time.Now()
	}
	switch strings.ToLower(q.When) {
	case WhenUpcoming:
		where = append(where, "start_date >= ?")
		args = append(args, DateOnly(today))
	case WhenActive:
		where = append(where, "end_date >= ?")
		args = append(args, DateOnly(today))
	}

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM festivals WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.Page < 1 {
		q.Page = 1
	}
	dataArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	out, err := r.list(ctx,
		"SELECT "+festivalCols+" FROM festivals WHERE "+cond+" ORDER BY start_date, name LIMIT ? OFFSET ?",
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
