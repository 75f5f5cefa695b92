package database

import (
	"context"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/jackc/pgx/v5"
)

const contestColumns = `id, name, start_date, end_date, prediction_deadline, is_active, created_at, updated_at`

// ContestRepository reads contest periods and settlement status.
type ContestRepository struct {
	pool    DatabasePool
	timeout time.Duration
}

// NewContestRepository creates a new contest repository.
func NewContestRepository(pool DatabasePool, timeout time.Duration) *ContestRepository {
	return &ContestRepository{pool: pool, timeout: timeout}
}

func scanContest(row pgx.Row) (*models.ContestPeriod, error) {
	var c models.ContestPeriod
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.StartDate,
		&c.EndDate,
		&c.PredictionDeadline,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContest returns a contest period by id.
func (r *ContestRepository) GetContest(ctx context.Context, id string) (*models.ContestPeriod, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	c, err := scanContest(r.pool.QueryRow(ctx, `SELECT `+contestColumns+` FROM contest_periods WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "contest "+id)
	}
	return c, nil
}

// ListActiveContests returns active contests, earliest deadline first.
func (r *ContestRepository) ListActiveContests(ctx context.Context) ([]models.ContestPeriod, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+contestColumns+` FROM contest_periods WHERE is_active ORDER BY prediction_deadline, id`)
	if err != nil {
		return nil, mapError(err, "list active contests")
	}
	defer rows.Close()

	var contests []models.ContestPeriod
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, mapError(err, "list active contests")
		}
		contests = append(contests, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list active contests")
	}
	return contests, nil
}

// IsSettled reports whether the contest has at least one settlement and a
// settlement for every active featured stock.
func (r *ContestRepository) IsSettled(ctx context.Context, contestID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM contest_settlements WHERE contest_id = $1)
		   AND NOT EXISTS (
			SELECT 1 FROM stocks s
			WHERE s.is_featured AND s.is_active
			  AND NOT EXISTS (
				SELECT 1 FROM contest_settlements cs
				WHERE cs.contest_id = $1 AND cs.stock_id = s.id
			  )
		   )
	`

	var settled bool
	if err := r.pool.QueryRow(ctx, query, contestID).Scan(&settled); err != nil {
		return false, mapError(err, "check settlement")
	}
	return settled, nil
}
