package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
	"github.com/sirupsen/logrus"
)

// LeaderboardRepository reads leaderboards and writes contest resolutions.
type LeaderboardRepository struct {
	pool    DatabasePool
	timeout time.Duration
}

// NewLeaderboardRepository creates a new leaderboard repository.
func NewLeaderboardRepository(pool DatabasePool, timeout time.Duration) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool, timeout: timeout}
}

// GetLeaderboard returns up to limit entries ordered by rank.
func (r *LeaderboardRepository) GetLeaderboard(ctx context.Context, contestID string, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT user_id, contest_id, total_predictions, correct_predictions,
			accuracy_percentage, total_points, rank_position, updated_at
		FROM leaderboard_entries
		WHERE contest_id = $1
		ORDER BY rank_position, user_id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, contestID, limit)
	if err != nil {
		return nil, mapError(err, "get leaderboard")
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(
			&e.UserID,
			&e.ContestID,
			&e.TotalPredictions,
			&e.CorrectPredictions,
			&e.AccuracyPercentage,
			&e.TotalPoints,
			&e.RankPosition,
			&e.UpdatedAt,
		); err != nil {
			return nil, mapError(err, "get leaderboard")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "get leaderboard")
	}
	return entries, nil
}

// GetLeaderboardEntry returns one user's entry in a contest leaderboard.
func (r *LeaderboardRepository) GetLeaderboardEntry(ctx context.Context, contestID, userID string) (*models.LeaderboardEntry, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT user_id, contest_id, total_predictions, correct_predictions,
			accuracy_percentage, total_points, rank_position, updated_at
		FROM leaderboard_entries
		WHERE contest_id = $1 AND user_id = $2
	`

	var e models.LeaderboardEntry
	err := r.pool.QueryRow(ctx, query, contestID, userID).Scan(
		&e.UserID,
		&e.ContestID,
		&e.TotalPredictions,
		&e.CorrectPredictions,
		&e.AccuracyPercentage,
		&e.TotalPoints,
		&e.RankPosition,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "leaderboard entry for "+userID)
	}
	return &e, nil
}

// ApplyResolution writes prediction outcomes, settlements and the replacement
// leaderboard in a single transaction. A transaction-scoped advisory lock on
// the contest id serializes concurrent resolutions of the same contest.
func (r *LeaderboardRepository) ApplyResolution(ctx context.Context, res models.ContestResolution) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapError(err, "begin resolution")
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logrus.WithError(rbErr).WithField("contest_id", res.ContestID).Warn("Failed to roll back resolution")
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, res.ContestID); err != nil {
		return mapError(err, "lock contest")
	}

	for _, o := range res.Outcomes {
		tag, err := tx.Exec(ctx, `
			UPDATE predictions
			SET realized_price = $2, is_correct = $3, accuracy_score = $4, points_earned = $5, resolved_at = $6
			WHERE id = $1 AND contest_id = $7
		`, o.PredictionID, o.RealizedPrice, o.IsCorrect, o.AccuracyScore, o.PointsEarned, res.ResolvedAt, res.ContestID)
		if err != nil {
			return mapError(err, "record outcome")
		}
		if tag.RowsAffected() == 0 {
			return utils.Newf(utils.KindStorageFailure, "prediction %s not found in contest %s", o.PredictionID, res.ContestID)
		}
	}

	for _, s := range res.Settlements {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contest_settlements (contest_id, stock_id, realized_price, settled_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (contest_id, stock_id)
			DO UPDATE SET realized_price = EXCLUDED.realized_price, settled_at = EXCLUDED.settled_at
		`, res.ContestID, s.StockID, s.RealizedPrice, s.SettledAt); err != nil {
			return mapError(err, "record settlement")
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries WHERE contest_id = $1`, res.ContestID); err != nil {
		return mapError(err, "clear leaderboard")
	}

	for _, e := range res.Leaderboard {
		if _, err := tx.Exec(ctx, `
			INSERT INTO leaderboard_entries (contest_id, user_id, total_predictions, correct_predictions,
				accuracy_percentage, total_points, rank_position, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, res.ContestID, e.UserID, e.TotalPredictions, e.CorrectPredictions,
			e.AccuracyPercentage, e.TotalPoints, e.RankPosition, e.UpdatedAt); err != nil {
			return mapError(err, fmt.Sprintf("write leaderboard entry for %s", e.UserID))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit resolution")
	}
	committed = true
	return nil
}
