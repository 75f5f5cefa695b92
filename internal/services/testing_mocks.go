package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/predictarena-go/internal/models"
)

// MockQuoteProvider implements quotes.Provider for testing within the services package
type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) Current(ctx context.Context, symbol string) (*models.MarketData, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketData), args.Error(1)
}

func (m *MockQuoteProvider) History(ctx context.Context, symbol, interval, rng string) ([]models.PriceSample, error) {
	args := m.Called(ctx, symbol, interval, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceSample), args.Error(1)
}

// MockQuoteCache implements QuoteCache for testing
type MockQuoteCache struct {
	mock.Mock
}

func (m *MockQuoteCache) GetQuote(ctx context.Context, symbol string) (*models.MarketData, bool) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.MarketData), args.Bool(1)
}

func (m *MockQuoteCache) SetQuote(ctx context.Context, quote *models.MarketData) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

// MockContestLease implements ContestLease for testing
type MockContestLease struct {
	mock.Mock
}

func (m *MockContestLease) Acquire(ctx context.Context, contestID string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, contestID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}

// MockQuoteSource implements QuoteSource for testing
type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) FreshQuote(ctx context.Context, symbol string) (*models.MarketData, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketData), args.Error(1)
}
