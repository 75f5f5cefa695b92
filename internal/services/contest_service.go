package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
)

const (
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
)

// ContestService is the caller-facing surface of the engine.
type ContestService struct {
	store     Store
	ledger    *PredictionLedger
	market    *MarketDataService
	predictor *HousePredictor
	logger    *logrus.Logger
	now       func() time.Time
}

// NewContestService creates a new contest service.
func NewContestService(store Store, ledger *PredictionLedger, market *MarketDataService, predictor *HousePredictor, logger *logrus.Logger) *ContestService {
	return &ContestService{
		store:     store,
		ledger:    ledger,
		market:    market,
		predictor: predictor,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetCurrentContest returns the contest participants should see now with its
// computed state.
func (s *ContestService) GetCurrentContest(ctx context.Context) (*models.ContestResponse, error) {
	periods, err := s.store.ListActiveContests(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	valid := make([]models.ContestPeriod, 0, len(periods))
	settled := make(map[string]bool)
	for _, c := range periods {
		if err := c.Validate(); err != nil {
			s.logger.WithError(err).WithField("kind", utils.KindDataIntegrityAnomaly).Warn("Skipping malformed contest period")
			continue
		}
		valid = append(valid, c)
		if now.Before(c.EndDate) {
			continue
		}
		ok, err := s.store.IsSettled(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		settled[c.ID] = ok
	}

	sel := SelectCurrentContest(valid, now, func(id string) bool { return settled[id] }, s.logger)
	if sel.Contest == nil {
		return nil, utils.New(utils.KindNotFound, "no current contest")
	}
	return &models.ContestResponse{ContestPeriod: *sel.Contest, State: sel.State}, nil
}

// GetFeaturedStocksWithPrices returns featured stocks with their latest
// quote; a stock whose quote is unavailable carries a nil quote.
func (s *ContestService) GetFeaturedStocksWithPrices(ctx context.Context) ([]models.StockWithQuote, error) {
	stocks, err := s.store.ListFeaturedStocks(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(stocks))
	for i, st := range stocks {
		symbols[i] = st.Symbol
	}
	quotes := s.market.GetQuotes(ctx, symbols)

	out := make([]models.StockWithQuote, len(stocks))
	for i, st := range stocks {
		out[i] = models.StockWithQuote{Stock: st, Quote: quotes[strings.ToUpper(st.Symbol)]}
	}
	return out, nil
}

// SubmitPrediction records a participant's prediction.
func (s *ContestService) SubmitPrediction(ctx context.Context, req models.SubmitPredictionRequest) (*models.Prediction, error) {
	return s.ledger.Submit(ctx, req)
}

// GetUserPredictions lists a participant's predictions in a contest.
func (s *ContestService) GetUserPredictions(ctx context.Context, contestID, userID string) ([]models.Prediction, error) {
	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	return s.store.ListUserPredictions(ctx, contestID, userID)
}

// ResolveContest resolves a contest at its closing prices: the last daily
// close at or before EndDate for each required stock, with explicit prices
// (by stock id) taking precedence.
func (s *ContestService) ResolveContest(ctx context.Context, contestID string, overrides map[string]decimal.Decimal) (*models.ResolveContestResponse, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	featured, err := s.store.ListFeaturedStocks(ctx)
	if err != nil {
		return nil, err
	}
	predictions, err := s.store.ListContestPredictions(ctx, contestID)
	if err != nil {
		return nil, err
	}

	required := RequiredStockIDs(featured, predictions)
	realized := make(map[string]decimal.Decimal, len(required))
	var toFetch []string
	for _, id := range required {
		if price, ok := overrides[id]; ok {
			realized[id] = price
			continue
		}
		toFetch = append(toFetch, id)
	}

	now := s.now()
	if len(toFetch) > 0 && !now.Before(contest.EndDate) {
		stocks, err := s.store.GetStocksByIDs(ctx, toFetch)
		if err != nil {
			return nil, err
		}
		symbols := make([]string, len(stocks))
		for i, st := range stocks {
			symbols[i] = st.Symbol
		}
		closes := s.market.ClosesAt(ctx, symbols, contest.EndDate, now)
		for _, st := range stocks {
			if price, ok := closes[strings.ToUpper(st.Symbol)]; ok {
				realized[st.ID] = decimal.NewFromFloat(price)
			}
		}
	}

	return s.ledger.Resolve(ctx, contestID, realized)
}

// GenerateHousePredictions runs the house predictor for every featured stock
// and records the results. Per-stock failures are reported in the result and
// do not stop the others.
func (s *ContestService) GenerateHousePredictions(ctx context.Context, contestID string) ([]models.HousePredictionResult, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(contest.PredictionDeadline) {
		return nil, utils.Newf(utils.KindContestClosed, "contest %s no longer accepts house predictions", contestID)
	}

	stocks, err := s.store.ListFeaturedStocks(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.HousePredictionResult, 0, len(stocks))
	for _, st := range stocks {
		result := models.HousePredictionResult{Symbol: st.Symbol, StockID: st.ID}

		history, err := s.market.History(ctx, st.Symbol)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		closes := models.Closes(history)

		current := 0.0
		if q, err := s.market.Quote(ctx, st.Symbol); err == nil && q.Price > 0 {
			current = q.Price
		} else if len(closes) > 0 {
			current = closes[len(closes)-1]
		}
		if current <= 0 {
			result.Error = "no usable price"
			results = append(results, result)
			continue
		}

		out := s.predictor.Predict(current, closes)
		result.TargetPrice, result.Confidence, result.Reasoning = out.TargetPrice, out.Confidence, out.Reasoning

		recorded, err := s.ledger.RecordHousePrediction(ctx, st.ID, contestID, decimal.NewFromFloat(current), out)
		if err != nil {
			result.Error = err.Error()
		}
		result.Recorded = recorded
		results = append(results, result)

		s.logger.WithFields(logrus.Fields{
			"contest_id": contestID,
			"symbol":     st.Symbol,
			"reasoning":  out.Reasoning,
			"recorded":   recorded,
		}).Info("House prediction generated")
	}
	return results, nil
}

// GetLeaderboard returns the contest's leaderboard. limit <= 0 means the
// default; larger values are capped.
func (s *ContestService) GetLeaderboard(ctx context.Context, contestID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	return s.store.GetLeaderboard(ctx, contestID, limit)
}

// GetLeaderboardEntry returns a participant's own standing in a contest.
func (s *ContestService) GetLeaderboardEntry(ctx context.Context, contestID, userID string) (*models.LeaderboardEntry, error) {
	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	return s.store.GetLeaderboardEntry(ctx, contestID, userID)
}

// GetHousePrediction returns the house prediction for a stock in a contest.
func (s *ContestService) GetHousePrediction(ctx context.Context, contestID, stockID string) (*models.Prediction, error) {
	if err := s.checkContestStock(ctx, contestID, stockID); err != nil {
		return nil, err
	}
	return s.store.GetHousePrediction(ctx, contestID, stockID)
}

// GetStockStats returns participant sentiment for a stock in a contest.
func (s *ContestService) GetStockStats(ctx context.Context, contestID, stockID string) (*models.StockStats, error) {
	if err := s.checkContestStock(ctx, contestID, stockID); err != nil {
		return nil, err
	}
	return s.store.GetStockStats(ctx, contestID, stockID)
}

func (s *ContestService) checkContestStock(ctx context.Context, contestID, stockID string) error {
	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return err
	}
	_, err := s.store.GetStock(ctx, stockID)
	return err
}

// GetStockHistory returns the normalized series for a symbol and its latest indicators.
func (s *ContestService) GetStockHistory(ctx context.Context, symbol, interval, rng string) (*models.StockHistoryResponse, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, utils.NewValidationError("symbol is required")
	}
	stock, err := s.store.GetStockBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	symbol = stock.Symbol

	opts := s.market.Options()
	if interval == "" {
		interval = opts.HistoryInterval
	}
	if rng == "" {
		rng = opts.HistoryRange
	}

	samples, err := s.market.HistoryRange(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}
	snap := LatestIndicators(models.Closes(samples))
	return &models.StockHistoryResponse{
		Symbol:   symbol,
		Interval: interval,
		Range:    rng,
		Samples:  samples,
		SMA20:    snap.SMA20,
		RSI14:    snap.RSI14,
	}, nil
}
