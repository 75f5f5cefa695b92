package quotes

// ChartResponse is the envelope returned by the chart endpoint.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartError is the provider's error object.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ChartResult holds one symbol's series. Numeric arrays may contain nulls
// for non-trading periods, hence the pointer elements.
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []QuoteSeries `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta carries the provider's current-session summary. Any field may be absent.
type ChartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	RegularMarketTime    *int64   `json:"regularMarketTime"`
	RegularMarketVolume  *float64 `json:"regularMarketVolume"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	RegularMarketOpen    *float64 `json:"regularMarketOpen"`
	PreviousClose        *float64 `json:"previousClose"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
}

// QuoteSeries is the per-timestamp OHLCV arrays.
type QuoteSeries struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (r *ChartResult) series() (QuoteSeries, bool) {
	if r == nil || len(r.Indicators.Quote) == 0 {
		return QuoteSeries{}, false
	}
	return r.Indicators.Quote[0], true
}

// at returns the i-th element, treating out-of-range as null.
func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func firstOf(values ...*float64) (float64, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}
