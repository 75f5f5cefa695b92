package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/irfndi/predictarena-go/internal/models"
)

// ScoringPolicy holds the grading parameters for a resolution.
type ScoringPolicy struct {
	// Tolerance is the relative error within which a target prediction is correct.
	Tolerance decimal.Decimal
	// MaxErrorBand is the relative error at which accuracy reaches zero.
	MaxErrorBand decimal.Decimal
}

// DefaultScoringPolicy grades targets within 2% as correct and decays to zero at 10%.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Tolerance:    decimal.RequireFromString("0.02"),
		MaxErrorBand: decimal.RequireFromString("0.10"),
	}
}

// NewScoringPolicy builds a policy from configured fractions.
func NewScoringPolicy(tolerance, maxErrorBand float64) (ScoringPolicy, error) {
	p := ScoringPolicy{
		Tolerance:    decimal.NewFromFloat(tolerance),
		MaxErrorBand: decimal.NewFromFloat(maxErrorBand),
	}
	return p, p.Validate()
}

// Validate requires 0 <= tolerance < max error band.
func (s ScoringPolicy) Validate() error {
	if s.Tolerance.IsNegative() {
		return fmt.Errorf("scoring tolerance must not be negative, got %s", s.Tolerance)
	}
	if !s.MaxErrorBand.GreaterThan(s.Tolerance) {
		return fmt.Errorf("scoring max error band (%s) must exceed tolerance (%s)", s.MaxErrorBand, s.Tolerance)
	}
	return nil
}

var (
	one = decimal.NewFromInt(1)
	ten = decimal.NewFromInt(10)
)

// Score grades one prediction against the realized price.
//
// A direction-only prediction is correct when the price moved the declared
// way; an unchanged price is never correct. A target prediction is correct
// when |realized-target|/priceAtPrediction is within tolerance, and its
// accuracy decays linearly from 1 at the tolerance to 0 at the error band.
// Points are round(accuracy * confidence * 10).
func (s ScoringPolicy) Score(p models.Prediction, realized decimal.Decimal) models.PredictionOutcome {
	var (
		correct  bool
		accuracy decimal.Decimal
	)

	if p.TargetPrice == nil {
		move := realized.Sub(p.PriceAtPrediction)
		correct = (p.Direction == models.DirectionUp && move.IsPositive()) ||
			(p.Direction == models.DirectionDown && move.IsNegative())
		if correct {
			accuracy = one
		}
	} else if p.PriceAtPrediction.IsPositive() {
		relErr := realized.Sub(*p.TargetPrice).Abs().Div(p.PriceAtPrediction)
		correct = relErr.LessThanOrEqual(s.Tolerance)
		accuracy = s.decay(relErr)
	}

	accuracy = accuracy.Round(4)
	points := accuracy.Mul(decimal.NewFromInt(int64(p.ConfidenceLevel))).Mul(ten).Round(0)

	return models.PredictionOutcome{
		PredictionID:  p.ID,
		RealizedPrice: realized,
		IsCorrect:     correct,
		AccuracyScore: accuracy.InexactFloat64(),
		PointsEarned:  int(points.IntPart()),
	}
}

func (s ScoringPolicy) decay(relErr decimal.Decimal) decimal.Decimal {
	switch {
	case relErr.LessThanOrEqual(s.Tolerance):
		return one
	case relErr.GreaterThanOrEqual(s.MaxErrorBand):
		return decimal.Zero
	}
	return one.Sub(relErr.Sub(s.Tolerance).Div(s.MaxErrorBand.Sub(s.Tolerance)))
}
