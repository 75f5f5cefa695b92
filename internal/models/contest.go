package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContestState is derived from a contest's timestamps; it is never stored.
type ContestState string

const (
	ContestUpcoming ContestState = "upcoming"
	ContestOpen     ContestState = "open"
	ContestLocked   ContestState = "locked"
	ContestResolved ContestState = "resolved"
)

// ContestPeriod is a fixed prediction window.
type ContestPeriod struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	StartDate          time.Time `json:"start_date" db:"start_date"`
	EndDate            time.Time `json:"end_date" db:"end_date"`
	PredictionDeadline time.Time `json:"prediction_deadline" db:"prediction_deadline"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks StartDate <= PredictionDeadline <= EndDate.
func (c ContestPeriod) Validate() error {
	if c.PredictionDeadline.Before(c.StartDate) {
		return fmt.Errorf("contest %s: prediction deadline %s is before start %s",
			c.ID, c.PredictionDeadline.Format(time.RFC3339), c.StartDate.Format(time.RFC3339))
	}
	if c.EndDate.Before(c.PredictionDeadline) {
		return fmt.Errorf("contest %s: end %s is before prediction deadline %s",
			c.ID, c.EndDate.Format(time.RFC3339), c.PredictionDeadline.Format(time.RFC3339))
	}
	return nil
}

// ContestSettlement records the realized price of a stock for a resolved contest.
type ContestSettlement struct {
	ContestID     string          `json:"contest_id" db:"contest_id"`
	StockID       string          `json:"stock_id" db:"stock_id"`
	RealizedPrice decimal.Decimal `json:"realized_price" db:"realized_price"`
	SettledAt     time.Time       `json:"settled_at" db:"settled_at"`
}

// ContestResponse is the current contest as returned to callers.
type ContestResponse struct {
	ContestPeriod
	State ContestState `json:"state"`
}

// ResolveContestRequest optionally overrides realized prices by stock id.
type ResolveContestRequest struct {
	Prices map[string]decimal.Decimal `json:"prices"`
}

// ResolveContestResponse summarizes a resolution.
type ResolveContestResponse struct {
	ContestID           string             `json:"contest_id"`
	PredictionsResolved int                `json:"predictions_resolved"`
	Leaderboard         []LeaderboardEntry `json:"leaderboard"`
	ResolvedAt          time.Time          `json:"resolved_at"`
}
