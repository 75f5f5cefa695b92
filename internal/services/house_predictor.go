package services

import (
	"github.com/shopspring/decimal"

	"github.com/irfndi/predictarena-go/internal/models"
)

// Reasoning labels produced by the house predictor.
const (
	ReasonInsufficientHistory   = "insufficient-history"
	ReasonOversoldReversal      = "oversold-reversal"
	ReasonOverboughtCorrection  = "overbought-correction"
	ReasonUptrendContinuation   = "uptrend-continuation"
	ReasonDowntrendContinuation = "downtrend-continuation"
	ReasonNeutral               = "neutral"
)

// MinHistoryForForecast is the shortest history that yields a non-trivial forecast.
const MinHistoryForForecast = 20

type rule struct {
	multiplier decimal.Decimal
	confidence decimal.Decimal
	reasoning  string
}

var (
	ruleInsufficient = rule{decimal.NewFromInt(1), decimal.RequireFromString("0.10"), ReasonInsufficientHistory}
	ruleOversold     = rule{decimal.RequireFromString("1.02"), decimal.RequireFromString("0.70"), ReasonOversoldReversal}
	ruleOverbought   = rule{decimal.RequireFromString("0.98"), decimal.RequireFromString("0.70"), ReasonOverboughtCorrection}
	ruleUptrend      = rule{decimal.RequireFromString("1.015"), decimal.RequireFromString("0.60"), ReasonUptrendContinuation}
	ruleDowntrend    = rule{decimal.RequireFromString("0.985"), decimal.RequireFromString("0.60"), ReasonDowntrendContinuation}
	ruleNeutral      = rule{decimal.NewFromInt(1), decimal.RequireFromString("0.50"), ReasonNeutral}
)

// HousePredictor is the rule-based forecaster used as the house benchmark.
// It is stateless apart from its revision label and safe for concurrent use.
type HousePredictor struct {
	modelRevision string
}

// NewHousePredictor creates a predictor that stamps its outputs with modelRevision.
func NewHousePredictor(modelRevision string) *HousePredictor {
	return &HousePredictor{modelRevision: modelRevision}
}

// ModelRevision returns the revision label attached to every output.
func (p *HousePredictor) ModelRevision() string {
	return p.modelRevision
}

// Predict produces a forecast from the current price and the close history
// (oldest first). Indicators are computed over history; the first matching
// rule wins. Equal inputs always give equal outputs.
func (p *HousePredictor) Predict(currentPrice float64, history []float64) models.HousePredictionOutput {
	out := models.HousePredictionOutput{ModelRevision: p.modelRevision}

	if len(history) < MinHistoryForForecast {
		apply(&out, currentPrice, ruleInsufficient)
		return out
	}

	snap := LatestIndicators(history)
	out.RSI, out.SMA20, out.Momentum = snap.RSI14, snap.SMA20, snap.Momentum

	apply(&out, currentPrice, decide(currentPrice, deref(snap.RSI14), deref(snap.SMA20), deref(snap.Momentum)))
	return out
}

func decide(price, rsi, sma, momentum float64) rule {
	switch {
	case rsi < 30 && price < sma:
		return ruleOversold
	case rsi > 70 && price > sma:
		return ruleOverbought
	case momentum > 0 && price > sma:
		return ruleUptrend
	case momentum < 0 && price < sma:
		return ruleDowntrend
	default:
		return ruleNeutral
	}
}

func apply(out *models.HousePredictionOutput, price float64, r rule) {
	out.TargetPrice = decimal.NewFromFloat(price).Mul(r.multiplier).Round(2)
	out.Confidence = r.confidence.Round(2)
	out.Reasoning = r.reasoning
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// HouseDirection derives the stored direction of a house prediction.
func HouseDirection(out models.HousePredictionOutput, currentPrice decimal.Decimal) models.Direction {
	if out.TargetPrice.LessThan(currentPrice) {
		return models.DirectionDown
	}
	return models.DirectionUp
}

// HouseConfidenceLevel maps a [0,1] confidence onto the 1..10 ledger scale.
func HouseConfidenceLevel(confidence decimal.Decimal) int {
	level := int(confidence.Mul(decimal.NewFromInt(10)).Round(0).IntPart())
	return min(max(level, 1), 10)
}
