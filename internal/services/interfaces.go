package services

import (
	"context"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
)

// StockStore reads the externally managed stock catalog.
type StockStore interface {
	GetStock(ctx context.Context, id string) (*models.Stock, error)
	GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error)
	ListFeaturedStocks(ctx context.Context) ([]models.Stock, error)
	GetStocksByIDs(ctx context.Context, ids []string) ([]models.Stock, error)
}

// ContestStore reads contest periods and their settlement status.
type ContestStore interface {
	GetContest(ctx context.Context, id string) (*models.ContestPeriod, error)
	ListActiveContests(ctx context.Context) ([]models.ContestPeriod, error)
	// IsSettled reports whether every featured stock has a realized price for the contest.
	IsSettled(ctx context.Context, contestID string) (bool, error)
}

// PredictionStore persists predictions. InsertPrediction fails with
// DuplicatePrediction when the (user, stock, contest) key is taken.
type PredictionStore interface {
	InsertPrediction(ctx context.Context, p *models.Prediction) error
	// UpsertHousePrediction reports whether a row was written.
	UpsertHousePrediction(ctx context.Context, p *models.Prediction, policy models.HouseOverwritePolicy) (bool, error)
	ListContestPredictions(ctx context.Context, contestID string) ([]models.Prediction, error)
	ListUserPredictions(ctx context.Context, contestID, userID string) ([]models.Prediction, error)
	GetHousePrediction(ctx context.Context, contestID, stockID string) (*models.Prediction, error)
	// GetStockStats aggregates participant predictions only.
	GetStockStats(ctx context.Context, contestID, stockID string) (*models.StockStats, error)
}

// LeaderboardStore reads leaderboards and applies resolutions atomically.
type LeaderboardStore interface {
	GetLeaderboard(ctx context.Context, contestID string, limit int) ([]models.LeaderboardEntry, error)
	GetLeaderboardEntry(ctx context.Context, contestID, userID string) (*models.LeaderboardEntry, error)
	// ApplyResolution writes outcomes, settlements and the replacement
	// leaderboard in one transaction, serialized per contest.
	ApplyResolution(ctx context.Context, res models.ContestResolution) error
}

// Store is everything the engine needs from persistence.
type Store interface {
	StockStore
	ContestStore
	PredictionStore
	LeaderboardStore
}

// ContestLease serializes resolution passes for a contest across instances.
type ContestLease interface {
	Acquire(ctx context.Context, contestID string, ttl time.Duration) (release func(context.Context) error, err error)
}

// EventPublisher delivers domain events to an external broadcaster.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}

// QuoteCache holds recent quotes by symbol.
type QuoteCache interface {
	GetQuote(ctx context.Context, symbol string) (*models.MarketData, bool)
	SetQuote(ctx context.Context, quote *models.MarketData) error
}

// QuoteSource returns a quote fetched from the provider at call time.
type QuoteSource interface {
	FreshQuote(ctx context.Context, symbol string) (*models.MarketData, error)
}
