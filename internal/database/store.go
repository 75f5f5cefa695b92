package database

import "time"

// Store aggregates the repositories behind one value for the service layer.
type Store struct {
	*StockRepository
	*ContestRepository
	*PredictionRepository
	*LeaderboardRepository
}

// NewStore builds every repository over the same pool. queryTimeout bounds
// each call; ApplyResolution uses it for the whole transaction.
func NewStore(pool DatabasePool, queryTimeout time.Duration) *Store {
	return &Store{
		StockRepository:       NewStockRepository(pool, queryTimeout),
		ContestRepository:     NewContestRepository(pool, queryTimeout),
		PredictionRepository:  NewPredictionRepository(pool, queryTimeout),
		LeaderboardRepository: NewLeaderboardRepository(pool, queryTimeout),
	}
}
