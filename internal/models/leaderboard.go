package models

import "time"

// LeaderboardEntry is a participant's standing in a contest. Entries are
// derived at resolution and replaced wholesale.
type LeaderboardEntry struct {
	UserID             string    `json:"user_id" db:"user_id"`
	ContestID          string    `json:"contest_id" db:"contest_id"`
	TotalPredictions   int       `json:"total_predictions" db:"total_predictions"`
	CorrectPredictions int       `json:"correct_predictions" db:"correct_predictions"`
	AccuracyPercentage float64   `json:"accuracy_percentage" db:"accuracy_percentage"`
	TotalPoints        int       `json:"total_points" db:"total_points"`
	RankPosition       int       `json:"rank_position" db:"rank_position"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// ContestResolution is everything a resolution persists, applied atomically.
type ContestResolution struct {
	ContestID   string
	Settlements []ContestSettlement
	Outcomes    []PredictionOutcome
	Leaderboard []LeaderboardEntry
	ResolvedAt  time.Time
}
