package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the predicted price movement.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// AuthorKind tells human predictions from house ones.
type AuthorKind string

const (
	AuthorHuman       AuthorKind = "human"
	AuthorAlgorithmic AuthorKind = "algorithmic"
)

// Author identifies who made a prediction. Exactly one of UserID or
// ModelRevision is set, matching Kind.
type Author struct {
	Kind          AuthorKind `json:"kind"`
	UserID        string     `json:"user_id,omitempty"`
	ModelRevision string     `json:"model_revision,omitempty"`
}

// HumanAuthor returns the author for a participant.
func HumanAuthor(userID string) Author {
	return Author{Kind: AuthorHuman, UserID: userID}
}

// AlgorithmicAuthor returns the author for the house predictor at a revision.
func AlgorithmicAuthor(modelRevision string) Author {
	return Author{Kind: AuthorAlgorithmic, ModelRevision: modelRevision}
}

// IsHuman reports whether the prediction was made by a participant.
func (a Author) IsHuman() bool {
	return a.Kind == AuthorHuman
}

// Prediction is a single forecast and, once resolved, its outcome.
type Prediction struct {
	ID                string           `json:"id" db:"id"`
	Author            Author           `json:"author"`
	StockID           string           `json:"stock_id" db:"stock_id"`
	ContestID         string           `json:"contest_id" db:"contest_id"`
	Direction         Direction        `json:"direction" db:"direction"`
	TargetPrice       *decimal.Decimal `json:"target_price,omitempty" db:"target_price"`
	ConfidenceLevel   int              `json:"confidence_level" db:"confidence_level"`
	Reasoning         *string          `json:"reasoning,omitempty" db:"reasoning"`
	PriceAtPrediction decimal.Decimal  `json:"price_at_prediction" db:"price_at_prediction"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	RealizedPrice     *decimal.Decimal `json:"realized_price,omitempty" db:"realized_price"`
	IsCorrect         *bool            `json:"is_correct,omitempty" db:"is_correct"`
	AccuracyScore     *float64         `json:"accuracy_score,omitempty" db:"accuracy_score"`
	PointsEarned      *int             `json:"points_earned,omitempty" db:"points_earned"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Resolved reports whether the prediction has been scored.
func (p Prediction) Resolved() bool {
	return p.ResolvedAt != nil
}

// PredictionOutcome is the scored result for one prediction.
type PredictionOutcome struct {
	PredictionID  string          `json:"prediction_id"`
	RealizedPrice decimal.Decimal `json:"realized_price"`
	IsCorrect     bool            `json:"is_correct"`
	AccuracyScore float64         `json:"accuracy_score"`
	PointsEarned  int             `json:"points_earned"`
}

// SubmitPredictionRequest is a participant's prediction as received from the API.
type SubmitPredictionRequest struct {
	UserID          string           `json:"-"`
	StockID         string           `json:"stock_id" binding:"required"`
	ContestID       string           `json:"contest_id" binding:"required"`
	Direction       Direction        `json:"direction" binding:"required"`
	TargetPrice     *decimal.Decimal `json:"target_price"`
	ConfidenceLevel int              `json:"confidence_level"`
	Reasoning       *string          `json:"reasoning"`
}

// HousePredictionOutput is what the algorithmic predictor produces for one stock.
type HousePredictionOutput struct {
	TargetPrice   decimal.Decimal `json:"target_price"`
	Confidence    decimal.Decimal `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	ModelRevision string          `json:"model_revision"`
	RSI           *float64        `json:"rsi,omitempty"`
	SMA20         *float64        `json:"sma_20,omitempty"`
	Momentum      *float64        `json:"momentum,omitempty"`
}

// HousePredictionResult reports what happened to one generated house prediction.
type HousePredictionResult struct {
	Symbol      string          `json:"symbol"`
	StockID     string          `json:"stock_id"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Confidence  decimal.Decimal `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
	Recorded    bool            `json:"recorded"`
	Error       string          `json:"error,omitempty"`
}

// HouseOverwritePolicy decides what happens when a house prediction already
// exists for a (stock, contest) under a different model revision.
type HouseOverwritePolicy string

const (
	HouseOverwrite HouseOverwritePolicy = "overwrite"
	HouseKeepFirst HouseOverwritePolicy = "keep_first"
)

// Valid reports whether p is a known policy.
func (p HouseOverwritePolicy) Valid() bool {
	return p == HouseOverwrite || p == HouseKeepFirst
}

// StockStats summarizes participant predictions for one stock in a contest.
type StockStats struct {
	StockID            string           `json:"stock_id"`
	ContestID          string           `json:"contest_id"`
	TotalPredictions   int              `json:"total_predictions"`
	BullishPredictions int              `json:"bullish_predictions"`
	BearishPredictions int              `json:"bearish_predictions"`
	AvgTargetPrice     *decimal.Decimal `json:"avg_target_price,omitempty"`
	SentimentScore     float64          `json:"sentiment_score"`
}

// NewStockStats builds stats from direction counts. Sentiment runs from -1
// (all bearish) to 1 (all bullish) and is 0 without predictions.
func NewStockStats(stockID, contestID string, bullish, bearish int, avgTarget *decimal.Decimal) StockStats {
	s := StockStats{
		StockID:            stockID,
		ContestID:          contestID,
		TotalPredictions:   bullish + bearish,
		BullishPredictions: bullish,
		BearishPredictions: bearish,
	}
	if avgTarget != nil {
		avg := avgTarget.Round(2)
		s.AvgTargetPrice = &avg
	}
	if s.TotalPredictions > 0 {
		s.SentimentScore = float64(bullish-bearish) / float64(s.TotalPredictions)
	}
	return s
}
