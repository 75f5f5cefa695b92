package services

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
)

// memoryStore is an in-memory Store that mirrors the uniqueness and
// atomicity guarantees of the Postgres repositories.
type memoryStore struct {
	mu          sync.Mutex
	stocks      map[string]models.Stock
	contests    map[string]models.ContestPeriod
	predictions []models.Prediction
	settlements map[string]map[string]models.ContestSettlement
	leaderboard map[string][]models.LeaderboardEntry

	applyErr error
	applied  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		stocks:      map[string]models.Stock{},
		contests:    map[string]models.ContestPeriod{},
		settlements: map[string]map[string]models.ContestSettlement{},
		leaderboard: map[string][]models.LeaderboardEntry{},
	}
}

func (s *memoryStore) addStock(st models.Stock) { s.stocks[st.ID] = st }
func (s *memoryStore) addContest(c models.ContestPeriod) { s.contests[c.ID] = c }

func (s *memoryStore) snapshot() []models.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Prediction, len(s.predictions))
	copy(out, s.predictions)
	return out
}

func (s *memoryStore) GetStock(_ context.Context, id string) (*models.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stocks[id]
	if !ok {
		return nil, utils.Newf(utils.KindNotFound, "stock %s not found", id)
	}
	return &st, nil
}

func (s *memoryStore) GetStockBySymbol(_ context.Context, symbol string) (*models.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stocks {
		if st.Symbol == symbol {
			return &st, nil
		}
	}
	return nil, utils.Newf(utils.KindNotFound, "stock %s not found", symbol)
}

func (s *memoryStore) ListFeaturedStocks(_ context.Context) ([]models.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Stock
	for _, st := range s.stocks {
		if st.IsFeatured && st.IsActive {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *memoryStore) GetStocksByIDs(_ context.Context, ids []string) ([]models.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Stock
	for _, id := range ids {
		if st, ok := s.stocks[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memoryStore) GetContest(_ context.Context, id string) (*models.ContestPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contests[id]
	if !ok {
		return nil, utils.Newf(utils.KindNotFound, "contest %s not found", id)
	}
	return &c, nil
}

func (s *memoryStore) ListActiveContests(_ context.Context) ([]models.ContestPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ContestPeriod
	for _, c := range s.contests {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) IsSettled(_ context.Context, contestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settled := s.settlements[contestID]
	if len(settled) == 0 {
		return false, nil
	}
	for _, st := range s.stocks {
		if st.IsFeatured && st.IsActive {
			if _, ok := settled[st.ID]; !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func (s *memoryStore) InsertPrediction(_ context.Context, p *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.predictions {
		if existing.Author.IsHuman() && existing.Author.UserID == p.Author.UserID &&
			existing.StockID == p.StockID && existing.ContestID == p.ContestID {
			return utils.ErrDuplicatePrediction
		}
	}
	s.predictions = append(s.predictions, *p)
	return nil
}

func (s *memoryStore) UpsertHousePrediction(_ context.Context, p *models.Prediction, policy models.HouseOverwritePolicy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.predictions {
		if existing.Author.IsHuman() || existing.StockID != p.StockID || existing.ContestID != p.ContestID {
			continue
		}
		if existing.Author.ModelRevision == p.Author.ModelRevision || policy == models.HouseKeepFirst {
			return false, nil
		}
		p.ID = existing.ID
		s.predictions[i] = *p
		return true, nil
	}
	s.predictions = append(s.predictions, *p)
	return true, nil
}

func (s *memoryStore) ListContestPredictions(_ context.Context, contestID string) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.ContestID == contestID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryStore) ListUserPredictions(_ context.Context, contestID, userID string) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.ContestID == contestID && p.Author.IsHuman() && p.Author.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryStore) GetHousePrediction(_ context.Context, contestID, stockID string) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.predictions {
		if !p.Author.IsHuman() && p.ContestID == contestID && p.StockID == stockID {
			return &p, nil
		}
	}
	return nil, utils.Newf(utils.KindNotFound, "house prediction for stock %s not found", stockID)
}

func (s *memoryStore) GetStockStats(_ context.Context, contestID, stockID string) (*models.StockStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		bullish, bearish, targets int
		sum                       decimal.Decimal
	)
	for _, p := range s.predictions {
		if !p.Author.IsHuman() || p.ContestID != contestID || p.StockID != stockID {
			continue
		}
		if p.Direction == models.DirectionUp {
			bullish++
		} else {
			bearish++
		}
		if p.TargetPrice != nil {
			sum = sum.Add(*p.TargetPrice)
			targets++
		}
	}
	var avg *decimal.Decimal
	if targets > 0 {
		a := sum.Div(decimal.NewFromInt(int64(targets)))
		avg = &a
	}
	stats := models.NewStockStats(stockID, contestID, bullish, bearish, avg)
	return &stats, nil
}

func (s *memoryStore) GetLeaderboardEntry(_ context.Context, contestID, userID string) (*models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.leaderboard[contestID] {
		if e.UserID == userID {
			return &e, nil
		}
	}
	return nil, utils.Newf(utils.KindNotFound, "no leaderboard entry for %s", userID)
}

func (s *memoryStore) GetLeaderboard(_ context.Context, contestID string, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.leaderboard[contestID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *memoryStore) ApplyResolution(_ context.Context, res models.ContestResolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied++

	var mine []models.Prediction
	for _, p := range s.predictions {
		if p.ContestID == res.ContestID {
			mine = append(mine, p)
		}
	}
	resolved := ApplyOutcomes(mine, res.Outcomes, res.ResolvedAt)
	j := 0
	for i, p := range s.predictions {
		if p.ContestID == res.ContestID {
			s.predictions[i] = resolved[j]
			j++
		}
	}

	settled := map[string]models.ContestSettlement{}
	for _, st := range res.Settlements {
		settled[st.StockID] = st
	}
	s.settlements[res.ContestID] = settled
	s.leaderboard[res.ContestID] = append([]models.LeaderboardEntry(nil), res.Leaderboard...)
	return nil
}
