package database

import (
	"context"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/jackc/pgx/v5"
)

const stockColumns = `id, symbol, company_name, sector, difficulty_level, is_featured, is_active, created_at, updated_at`

// StockRepository reads the stock catalog. Stocks are managed outside the engine.
type StockRepository struct {
	pool    DatabasePool
	timeout time.Duration
}

// NewStockRepository creates a new stock repository.
func NewStockRepository(pool DatabasePool, timeout time.Duration) *StockRepository {
	return &StockRepository{pool: pool, timeout: timeout}
}

func scanStock(row pgx.Row) (*models.Stock, error) {
	var s models.Stock
	err := row.Scan(
		&s.ID,
		&s.Symbol,
		&s.CompanyName,
		&s.Sector,
		&s.DifficultyLevel,
		&s.IsFeatured,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStock returns a stock by id.
func (r *StockRepository) GetStock(ctx context.Context, id string) (*models.Stock, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	s, err := scanStock(r.pool.QueryRow(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "stock "+id)
	}
	return s, nil
}

// GetStockBySymbol returns a stock by ticker symbol.
func (r *StockRepository) GetStockBySymbol(ctx context.Context, symbol string) (*models.Stock, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	s, err := scanStock(r.pool.QueryRow(ctx, `SELECT `+stockColumns+` FROM stocks WHERE UPPER(symbol) = UPPER($1)`, symbol))
	if err != nil {
		return nil, mapError(err, "stock "+symbol)
	}
	return s, nil
}

// ListFeaturedStocks returns active featured stocks ordered by symbol.
func (r *StockRepository) ListFeaturedStocks(ctx context.Context) ([]models.Stock, error) {
	return r.list(ctx, "list featured stocks",
		`SELECT `+stockColumns+` FROM stocks WHERE is_featured AND is_active ORDER BY symbol`)
}

// GetStocksByIDs returns the stocks with the given ids, regardless of flags.
func (r *StockRepository) GetStocksByIDs(ctx context.Context, ids []string) ([]models.Stock, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, "get stocks by id",
		`SELECT `+stockColumns+` FROM stocks WHERE id = ANY($1) ORDER BY symbol`, ids)
}

func (r *StockRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.Stock, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	var stocks []models.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, mapError(err, op)
		}
		stocks = append(stocks, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op)
	}
	return stocks, nil
}
