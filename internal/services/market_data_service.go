package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
	"github.com/irfndi/predictarena-go/pkg/quotes"
)

// MarketDataOptions configures provider access.
type MarketDataOptions struct {
	Timeout         time.Duration
	MaxConcurrency  int
	HistoryInterval string
	HistoryRange    string
	// Retry applies around each breaker call. The zero value disables retries.
	Retry RetryPolicy
}

// MarketDataService fetches quotes and history through the circuit breaker,
// with a per-call timeout and an optional quote cache.
type MarketDataService struct {
	provider quotes.Provider
	cache    QuoteCache
	breaker  *CircuitBreaker
	opts     MarketDataOptions
	logger   *logrus.Logger
}

// NewMarketDataService creates a new market data service. cache may be nil.
func NewMarketDataService(provider quotes.Provider, cache QuoteCache, breaker *CircuitBreaker, opts MarketDataOptions, logger *logrus.Logger) *MarketDataService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	if opts.HistoryInterval == "" {
		opts.HistoryInterval = "1d"
	}
	if opts.HistoryRange == "" {
		opts.HistoryRange = "3mo"
	}
	if breaker == nil {
		breaker = NewCircuitBreaker("market-data", CircuitBreakerConfig{IsSuccessful: ProviderResponded}, logger)
	}
	return &MarketDataService{provider: provider, cache: cache, breaker: breaker, opts: opts, logger: logger}
}

// FreshQuote fetches from the provider, bypassing the cache for reads. The
// result refreshes the cache.
func (s *MarketDataService) FreshQuote(ctx context.Context, symbol string) (*models.MarketData, error) {
	symbol = strings.ToUpper(symbol)

	var quote *models.MarketData
	err := s.call(ctx, func(ctx context.Context) error {
		q, err := s.provider.Current(ctx, symbol)
		quote = q
		return err
	})
	if err != nil {
		return nil, upstreamError(err, "fetch quote for "+symbol)
	}

	if s.cache != nil {
		if err := s.cache.SetQuote(ctx, quote); err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache quote")
		}
	}
	return quote, nil
}

// Quote returns a cached quote when available, otherwise a fresh one.
func (s *MarketDataService) Quote(ctx context.Context, symbol string) (*models.MarketData, error) {
	if s.cache != nil {
		if q, ok := s.cache.GetQuote(ctx, strings.ToUpper(symbol)); ok {
			return q, nil
		}
	}
	return s.FreshQuote(ctx, symbol)
}

// GetQuotes fetches quotes for many symbols concurrently. A failing symbol
// maps to nil and never affects the others.
func (s *MarketDataService) GetQuotes(ctx context.Context, symbols []string) map[string]*models.MarketData {
	results := make([]*models.MarketData, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			q, err := s.Quote(gctx, symbol)
			if err != nil {
				s.logger.WithError(err).WithField("symbol", symbol).Warn("Quote unavailable")
				return nil
			}
			results[i] = q
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*models.MarketData, len(symbols))
	for i, symbol := range symbols {
		out[strings.ToUpper(symbol)] = results[i]
	}
	return out
}

// History returns the normalized close history using the configured interval and range.
func (s *MarketDataService) History(ctx context.Context, symbol string) ([]models.PriceSample, error) {
	return s.HistoryRange(ctx, symbol, s.opts.HistoryInterval, s.opts.HistoryRange)
}

// HistoryRange returns the normalized series for an explicit interval and range.
func (s *MarketDataService) HistoryRange(ctx context.Context, symbol, interval, rng string) ([]models.PriceSample, error) {
	symbol = strings.ToUpper(symbol)

	var samples []models.PriceSample
	err := s.call(ctx, func(ctx context.Context) error {
		h, err := s.provider.History(ctx, symbol, interval, rng)
		samples = h
		return err
	})
	if err != nil {
		return nil, upstreamError(err, "fetch history for "+symbol)
	}
	return samples, nil
}

// CloseAt returns the last close at or before at from daily history. When the
// history has no such sample it falls back to a fresh quote, never the cache.
func (s *MarketDataService) CloseAt(ctx context.Context, symbol string, at, now time.Time) (float64, error) {
	symbol = strings.ToUpper(symbol)

	samples, err := s.HistoryRange(ctx, symbol, "1d", rangeCovering(now.Sub(at)))
	if err == nil {
		if price, ok := lastCloseAtOrBefore(samples, at); ok {
			return price, nil
		}
	} else {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("History unavailable for closing price, using fresh quote")
	}

	q, err := s.FreshQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if q.Price <= 0 {
		return 0, utils.Newf(utils.KindUpstreamUnavailable, "no usable price for %s", symbol)
	}
	return q.Price, nil
}

// ClosesAt runs CloseAt for many symbols concurrently. Symbols without a
// price are absent from the result.
func (s *MarketDataService) ClosesAt(ctx context.Context, symbols []string, at, now time.Time) map[string]float64 {
	prices := make([]float64, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			price, err := s.CloseAt(gctx, symbol, at, now)
			if err != nil {
				s.logger.WithError(err).WithField("symbol", symbol).Warn("Closing price unavailable")
				return nil
			}
			prices[i] = price
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]float64, len(symbols))
	for i, symbol := range symbols {
		if prices[i] > 0 {
			out[strings.ToUpper(symbol)] = prices[i]
		}
	}
	return out
}

func lastCloseAtOrBefore(samples []models.PriceSample, at time.Time) (float64, bool) {
	for i := len(samples) - 1; i >= 0; i-- {
		if !samples[i].Timestamp.After(at) && samples[i].Close > 0 {
			return samples[i].Close, true
		}
	}
	return 0, false
}

// rangeCovering picks the shortest provider range reaching age back, with a
// few days of slack for weekends and holidays.
func rangeCovering(age time.Duration) string {
	days := int(age.Hours()/24) + 5
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	default:
		return "max"
	}
}

// Options returns the effective options.
func (s *MarketDataService) Options() MarketDataOptions {
	return s.opts
}

func (s *MarketDataService) call(ctx context.Context, fn func(context.Context) error) error {
	return Retry(ctx, s.opts.Retry, s.logger, "market_data", func(ctx context.Context) error {
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
			return fn(ctx)
		})
	})
}

func upstreamError(err error, message string) error {
	var typed *utils.Error
	if errors.As(err, &typed) {
		return err
	}
	return utils.Wrap(utils.KindUpstreamUnavailable, fmt.Errorf("%s: %w", message, err), "market data provider unavailable")
}
