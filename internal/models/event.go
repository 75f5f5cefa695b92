package models

import "time"

// EventType names a domain event.
type EventType string

const (
	EventPredictionSubmitted          EventType = "prediction_submitted"
	EventContestResolved              EventType = "contest_resolved"
	EventContestStateChanged          EventType = "contest_state_changed"
	EventContestDeactivationRequested EventType = "contest_deactivation_requested"
)

// DomainEvent is emitted by the engine for push delivery and external stores.
type DomainEvent struct {
	Type       EventType `json:"type"`
	ContestID  string    `json:"contest_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// PredictionSubmittedPayload accompanies EventPredictionSubmitted.
type PredictionSubmittedPayload struct {
	PredictionID    string    `json:"prediction_id"`
	UserID          string    `json:"user_id"`
	StockID         string    `json:"stock_id"`
	Direction       Direction `json:"direction"`
	ConfidenceLevel int       `json:"confidence_level"`
}

// ContestStateChangedPayload accompanies EventContestStateChanged.
type ContestStateChangedPayload struct {
	From ContestState `json:"from"`
	To   ContestState `json:"to"`
}

// ContestResolvedPayload accompanies EventContestResolved.
type ContestResolvedPayload struct {
	PredictionsResolved int                `json:"predictions_resolved"`
	Leaderboard         []LeaderboardEntry `json:"leaderboard"`
}
