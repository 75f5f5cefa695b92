package quotes

import (
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/predictarena-go/internal/models"
)

// NormalizeChart turns a raw chart result into an ascending sequence of
// price samples. Entries with a null close are dropped, as are timestamps
// that do not advance past the previous emitted sample. Null open, high
// and low fall back to the close; a null volume becomes zero.
func NormalizeChart(res *ChartResult) iter.Seq[models.PriceSample] {
	return func(yield func(models.PriceSample) bool) {
		q, ok := res.series()
		if !ok {
			return
		}

		var (
			last      time.Time
			prevClose float64
			emitted   bool
		)
		for i, ts := range res.Timestamp {
			c := at(q.Close, i)
			if c == nil {
				continue
			}
			t := time.Unix(ts, 0).UTC()
			if emitted && !t.After(last) {
				continue
			}

			sample := models.PriceSample{
				Timestamp: t,
				Close:     *c,
				Open:      valueOr(at(q.Open, i), *c),
				High:      valueOr(at(q.High, i), *c),
				Low:       valueOr(at(q.Low, i), *c),
				Volume:    valueOr(at(q.Volume, i), 0),
			}
			if emitted {
				sample.PreviousClose = prevClose
			} else {
				sample.PreviousClose = *c
			}

			if !yield(sample) {
				return
			}
			last, prevClose, emitted = t, *c, true
		}
	}
}

// QuoteFromChart builds a quote snapshot. Missing fields are substituted
// with the nearest known value: session meta first, then the series, then
// the price itself. It reports false when no price can be determined.
func QuoteFromChart(symbol string, res *ChartResult) (*models.MarketData, bool) {
	if res == nil {
		return nil, false
	}
	q, _ := res.series()
	meta := res.Meta

	lastIdx := lastNonNull(q.Close, len(q.Close)-1)
	var lastClose, beforeLast *float64
	if lastIdx >= 0 {
		lastClose = q.Close[lastIdx]
		if i := lastNonNull(q.Close, lastIdx-1); i >= 0 {
			beforeLast = q.Close[i]
		}
	}

	price, ok := firstOf(meta.RegularMarketPrice, lastClose)
	if !ok {
		return nil, false
	}
	prev, ok := firstOf(meta.PreviousClose, meta.ChartPreviousClose, beforeLast)
	if !ok {
		prev = price
	}

	change := price - prev
	changePct := 0.0
	if prev != 0 {
		changePct = change / prev * 100
	}

	volume, _ := firstOf(meta.RegularMarketVolume, at(q.Volume, lastNonNull(q.Volume, len(q.Volume)-1)))
	high, ok := firstOf(meta.RegularMarketDayHigh)
	if !ok {
		high = extreme(q.High, price, func(a, b float64) bool { return a > b })
	}
	low, ok := firstOf(meta.RegularMarketDayLow)
	if !ok {
		low = extreme(q.Low, price, func(a, b float64) bool { return a < b })
	}
	open, ok := firstOf(meta.RegularMarketOpen, at(q.Open, firstNonNull(q.Open)))
	if !ok {
		open = price
	}

	var ts time.Time
	switch {
	case meta.RegularMarketTime != nil:
		ts = time.Unix(*meta.RegularMarketTime, 0).UTC()
	case len(res.Timestamp) > 0:
		ts = time.Unix(res.Timestamp[len(res.Timestamp)-1], 0).UTC()
	}

	return &models.MarketData{
		Symbol:        strings.ToUpper(symbol),
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(changePct),
		Volume:        volume,
		High:          high,
		Low:           low,
		Open:          open,
		PreviousClose: prev,
		Timestamp:     ts,
	}, true
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func lastNonNull(values []*float64, from int) int {
	for i := min(from, len(values)-1); i >= 0; i-- {
		if values[i] != nil {
			return i
		}
	}
	return -1
}

func firstNonNull(values []*float64) int {
	for i, v := range values {
		if v != nil {
			return i
		}
	}
	return -1
}

func extreme(values []*float64, fallback float64, better func(a, b float64) bool) float64 {
	var (
		best  float64
		found bool
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		if !found || better(*v, best) {
			best, found = *v, true
		}
	}
	if !found {
		return fallback
	}
	return best
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
