package services

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

const (
	// DefaultRSIPeriod is the Wilder RSI lookback.
	DefaultRSIPeriod = 14
	// DefaultSMAPeriod is the trend filter used by the house predictor.
	DefaultSMAPeriod = 20
	// DefaultMomentumLookback is the momentum distance in samples.
	DefaultMomentumLookback = 10
)

// SMA returns the trailing simple moving average. The result has
// max(0, len(prices)-period+1) values; element i averages prices[i : i+period].
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	result := helper.ChanToSlice(sma.Compute(helper.SliceToChan(prices)))

	// keep only full windows
	want := len(prices) - period + 1
	if len(result) > want {
		result = result[len(result)-want:]
	}
	return result
}

// RSI returns Wilder's Relative Strength Index. Averages are seeded with the
// simple mean of the first period deltas and smoothed as
// avg = (avg*(period-1) + delta) / period. The first value corresponds to
// prices[period]. When the average loss is zero the RSI is 100.
// Fewer than period+1 prices yields an empty result.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return []float64{}
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := splitDelta(prices[i] - prices[i-1])
		avgGain += gain
		avgLoss += loss
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	out := make([]float64, 0, len(prices)-period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period + 1; i < len(prices); i++ {
		gain, loss := splitDelta(prices[i] - prices[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

// Momentum returns prices[last] - prices[last-lookback].
func Momentum(prices []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(prices) <= lookback {
		return 0, false
	}
	last := len(prices) - 1
	return prices[last] - prices[last-lookback], true
}

// IndicatorSnapshot holds the latest indicator values of a series. Nil means
// the series was too short.
type IndicatorSnapshot struct {
	SMA20    *float64
	RSI14    *float64
	Momentum *float64
}

// LatestIndicators computes the most recent SMA20, RSI14 and 10-sample momentum.
func LatestIndicators(prices []float64) IndicatorSnapshot {
	var snap IndicatorSnapshot
	if v, ok := last(SMA(prices, DefaultSMAPeriod)); ok {
		snap.SMA20 = &v
	}
	if v, ok := last(RSI(prices, DefaultRSIPeriod)); ok {
		snap.RSI14 = &v
	}
	if v, ok := Momentum(prices, DefaultMomentumLookback); ok {
		snap.Momentum = &v
	}
	return snap
}

func splitDelta(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func last(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}
