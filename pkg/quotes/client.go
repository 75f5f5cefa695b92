package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
)

var (
	// ErrNoData is returned when the provider answered but had no usable
	// series for the symbol, including unknown or delisted symbols.
	ErrNoData = errors.New("no chart data")

	ErrSymbolRequired = errors.New("symbol is required")
)

// StatusError is a non-2xx provider response. A 404 means the symbol is
// unknown and matches ErrNoData.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("market data provider error (%d): %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNoData
	}
	return nil
}

// Provider is the market data source used by the engine.
type Provider interface {
	Current(ctx context.Context, symbol string) (*models.MarketData, error)
	History(ctx context.Context, symbol, interval, rng string) ([]models.PriceSample, error)
}

// Client talks to a chart-compatible market data endpoint.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

// NewClient creates a new market data client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		UserAgent:  "PredictArena-Go/1.0",
	}
}

// Chart fetches the raw chart for a symbol.
func (c *Client) Chart(ctx context.Context, symbol, interval, rng string) (*ChartResult, error) {
	if symbol == "" {
		return nil, ErrSymbolRequired
	}
	params := url.Values{}
	if interval != "" {
		params.Set("interval", interval)
	}
	if rng != "" {
		params.Set("range", rng)
	}
	path := "/v8/finance/chart/" + url.PathEscape(strings.ToUpper(symbol))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response ChartResponse
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return nil, err
	}
	if response.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s: %s: %w", symbol, response.Chart.Error.Code, response.Chart.Error.Description, ErrNoData)
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return &response.Chart.Result[0], nil
}

// Current returns the latest quote for a symbol.
func (c *Client) Current(ctx context.Context, symbol string) (*models.MarketData, error) {
	res, err := c.Chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}
	quote, ok := QuoteFromChart(symbol, res)
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return quote, nil
}

// History returns the normalized series for a symbol. An empty series is not an error.
func (c *Client) History(ctx context.Context, symbol, interval, rng string) ([]models.PriceSample, error) {
	res, err := c.Chart(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}
	return slices.Collect(NormalizeChart(res)), nil
}

func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
