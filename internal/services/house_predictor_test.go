package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/predictarena-go/internal/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		rsi       float64
		sma       float64
		momentum  float64
		reasoning string
		target    string
		conf      string
	}{
		{name: "oversold below average", price: 100, rsi: 25, sma: 105, momentum: -3, reasoning: ReasonOversoldReversal, target: "102", conf: "0.7"},
		{name: "overbought above average", price: 100, rsi: 75, sma: 95, momentum: 4, reasoning: ReasonOverboughtCorrection, target: "98", conf: "0.7"},
		{name: "uptrend", price: 100, rsi: 55, sma: 98, momentum: 2, reasoning: ReasonUptrendContinuation, target: "101.5", conf: "0.6"},
		{name: "downtrend", price: 100, rsi: 45, sma: 102, momentum: -2, reasoning: ReasonDowntrendContinuation, target: "98.5", conf: "0.6"},
		{name: "oversold but above average is not a reversal", price: 100, rsi: 25, sma: 95, momentum: 0, reasoning: ReasonNeutral, target: "100", conf: "0.5"},
		{name: "zero momentum is neutral", price: 100, rsi: 50, sma: 98, momentum: 0, reasoning: ReasonNeutral, target: "100", conf: "0.5"},
		{name: "price at average is neutral", price: 100, rsi: 50, sma: 100, momentum: 5, reasoning: ReasonNeutral, target: "100", conf: "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out models.HousePredictionOutput
			apply(&out, tt.price, decide(tt.price, tt.rsi, tt.sma, tt.momentum))

			assert.Equal(t, tt.reasoning, out.Reasoning)
			assert.True(t, decimal.RequireFromString(tt.target).Equal(out.TargetPrice), "target %s", out.TargetPrice)
			assert.True(t, decimal.RequireFromString(tt.conf).Equal(out.Confidence), "confidence %s", out.Confidence)
		})
	}
}

func TestApply_RoundsToCents(t *testing.T) {
	var out models.HousePredictionOutput
	apply(&out, 123.456, ruleUptrend)
	assert.Equal(t, "125.31", out.TargetPrice.StringFixed(2))
	assert.Equal(t, "0.60", out.Confidence.StringFixed(2))
}

func TestHousePredictor_InsufficientHistory(t *testing.T) {
	p := NewHousePredictor("ta-v1")

	out := p.Predict(87.25, ascending(1, 19))
	assert.Equal(t, ReasonInsufficientHistory, out.Reasoning)
	assert.Equal(t, "87.25", out.TargetPrice.StringFixed(2))
	assert.Equal(t, "0.10", out.Confidence.StringFixed(2))
	assert.Equal(t, "ta-v1", out.ModelRevision)
	assert.Nil(t, out.RSI)
}

func TestHousePredictor_OversoldSeries(t *testing.T) {
	p := NewHousePredictor("ta-v1")

	// Steady decline: RSI 0, SMA20 109.5, momentum -10.
	out := p.Predict(100, descending(124, 100))
	assert.Equal(t, ReasonOversoldReversal, out.Reasoning)
	assert.Equal(t, "102.00", out.TargetPrice.StringFixed(2))
	assert.Equal(t, "0.70", out.Confidence.StringFixed(2))
	require.NotNil(t, out.SMA20)
	assert.InDelta(t, 109.5, *out.SMA20, 1e-9)
}

func TestHousePredictor_OverboughtSeries(t *testing.T) {
	p := NewHousePredictor("ta-v1")

	out := p.Predict(130, ascending(100, 125))
	assert.Equal(t, ReasonOverboughtCorrection, out.Reasoning)
	assert.Equal(t, "127.40", out.TargetPrice.StringFixed(2))
}

func TestHousePredictor_Deterministic(t *testing.T) {
	p := NewHousePredictor("ta-v1")
	history := []float64{50, 51, 49, 52, 53, 52, 54, 55, 53, 56, 57, 55, 58, 59, 57, 60, 61, 60, 62, 63, 62, 64}

	first := p.Predict(64.5, history)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Predict(64.5, history))
	}
}

func TestHouseDirection(t *testing.T) {
	current := decimal.NewFromInt(100)
	assert.Equal(t, models.DirectionUp, HouseDirection(models.HousePredictionOutput{TargetPrice: decimal.NewFromInt(102)}, current))
	assert.Equal(t, models.DirectionUp, HouseDirection(models.HousePredictionOutput{TargetPrice: decimal.NewFromInt(100)}, current))
	assert.Equal(t, models.DirectionDown, HouseDirection(models.HousePredictionOutput{TargetPrice: decimal.NewFromInt(98)}, current))
}

func TestHouseConfidenceLevel(t *testing.T) {
	assert.Equal(t, 7, HouseConfidenceLevel(decimal.RequireFromString("0.70")))
	assert.Equal(t, 1, HouseConfidenceLevel(decimal.RequireFromString("0.10")))
	assert.Equal(t, 1, HouseConfidenceLevel(decimal.Zero))
	assert.Equal(t, 10, HouseConfidenceLevel(decimal.NewFromInt(3)))
}
