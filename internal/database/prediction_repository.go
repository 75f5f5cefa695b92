package database

import (
	"context"
	"errors"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const predictionColumns = `id, user_id, model_revision, stock_id, contest_id, direction, target_price,
	confidence_level, reasoning, price_at_prediction, created_at,
	realized_price, is_correct, accuracy_score, points_earned, resolved_at`

// PredictionRepository persists human and house predictions.
type PredictionRepository struct {
	pool    DatabasePool
	timeout time.Duration
}

// NewPredictionRepository creates a new prediction repository.
func NewPredictionRepository(pool DatabasePool, timeout time.Duration) *PredictionRepository {
	return &PredictionRepository{pool: pool, timeout: timeout}
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var (
		p             models.Prediction
		userID        *string
		modelRevision *string
		direction     string
	)
	err := row.Scan(
		&p.ID,
		&userID,
		&modelRevision,
		&p.StockID,
		&p.ContestID,
		&direction,
		&p.TargetPrice,
		&p.ConfidenceLevel,
		&p.Reasoning,
		&p.PriceAtPrediction,
		&p.CreatedAt,
		&p.RealizedPrice,
		&p.IsCorrect,
		&p.AccuracyScore,
		&p.PointsEarned,
		&p.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Direction = models.Direction(direction)
	switch {
	case userID != nil:
		p.Author = models.HumanAuthor(*userID)
	case modelRevision != nil:
		p.Author = models.AlgorithmicAuthor(*modelRevision)
	default:
		return nil, utils.Newf(utils.KindStorageFailure, "prediction %s has no author", p.ID)
	}
	return &p, nil
}

// InsertPrediction stores a human prediction. A second prediction for the same
// user, stock and contest fails with DuplicatePrediction.
func (r *PredictionRepository) InsertPrediction(ctx context.Context, p *models.Prediction) error {
	if !p.Author.IsHuman() || p.Author.UserID == "" {
		return utils.NewValidationError("prediction must have a human author")
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO predictions (id, user_id, model_revision, stock_id, contest_id, direction,
			target_price, confidence_level, reasoning, price_at_prediction, created_at)
		VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Author.UserID,
		p.StockID,
		p.ContestID,
		string(p.Direction),
		p.TargetPrice,
		p.ConfidenceLevel,
		p.Reasoning,
		p.PriceAtPrediction,
		p.CreatedAt,
	)
	return mapError(err, "insert prediction")
}

// UpsertHousePrediction stores the single house prediction for a stock and
// contest. Under HouseOverwrite an existing row is replaced only when the model
// revision differs; under HouseKeepFirst an existing row always wins. It
// reports whether a row was written, and on overwrite p.ID becomes the id of
// the existing row.
func (r *PredictionRepository) UpsertHousePrediction(ctx context.Context, p *models.Prediction, policy models.HouseOverwritePolicy) (bool, error) {
	if p.Author.IsHuman() || p.Author.ModelRevision == "" {
		return false, utils.NewValidationError("house prediction must have a model revision")
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	conflict := `DO NOTHING`
	if policy == models.HouseOverwrite {
		conflict = `DO UPDATE SET
			model_revision = EXCLUDED.model_revision,
			direction = EXCLUDED.direction,
			target_price = EXCLUDED.target_price,
			confidence_level = EXCLUDED.confidence_level,
			reasoning = EXCLUDED.reasoning,
			price_at_prediction = EXCLUDED.price_at_prediction,
			created_at = EXCLUDED.created_at
		WHERE predictions.model_revision IS DISTINCT FROM EXCLUDED.model_revision`
	}

	query := `
		INSERT INTO predictions (id, user_id, model_revision, stock_id, contest_id, direction,
			target_price, confidence_level, reasoning, price_at_prediction, created_at)
		VALUES ($1, NULL, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stock_id, contest_id) WHERE user_id IS NULL
		` + conflict + `
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.Author.ModelRevision,
		p.StockID,
		p.ContestID,
		string(p.Direction),
		p.TargetPrice,
		p.ConfidenceLevel,
		p.Reasoning,
		p.PriceAtPrediction,
		p.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "upsert house prediction")
	}
	p.ID = id
	return true, nil
}

// ListContestPredictions returns every prediction in a contest, oldest first.
func (r *PredictionRepository) ListContestPredictions(ctx context.Context, contestID string) ([]models.Prediction, error) {
	return r.list(ctx, "list contest predictions",
		`SELECT `+predictionColumns+` FROM predictions WHERE contest_id = $1 ORDER BY created_at, id`,
		contestID)
}

// ListUserPredictions returns a user's predictions in a contest, oldest first.
func (r *PredictionRepository) ListUserPredictions(ctx context.Context, contestID, userID string) ([]models.Prediction, error) {
	return r.list(ctx, "list user predictions",
		`SELECT `+predictionColumns+` FROM predictions WHERE contest_id = $1 AND user_id = $2 ORDER BY created_at, id`,
		contestID, userID)
}

// GetHousePrediction returns the house prediction for a stock in a contest.
func (r *PredictionRepository) GetHousePrediction(ctx context.Context, contestID, stockID string) (*models.Prediction, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	p, err := scanPrediction(r.pool.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE contest_id = $1 AND stock_id = $2 AND user_id IS NULL`,
		contestID, stockID))
	if err != nil {
		return nil, mapError(err, "house prediction for stock "+stockID)
	}
	return p, nil
}

// GetStockStats aggregates participant predictions for a stock in a contest.
func (r *PredictionRepository) GetStockStats(ctx context.Context, contestID, stockID string) (*models.StockStats, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT COUNT(*) FILTER (WHERE direction = 'up'),
			COUNT(*) FILTER (WHERE direction = 'down'),
			AVG(target_price)
		FROM predictions
		WHERE contest_id = $1 AND stock_id = $2 AND user_id IS NOT NULL
	`

	var (
		bullish, bearish int
		avgTarget        *decimal.Decimal
	)
	if err := r.pool.QueryRow(ctx, query, contestID, stockID).Scan(&bullish, &bearish, &avgTarget); err != nil {
		return nil, mapError(err, "stock stats")
	}
	stats := models.NewStockStats(stockID, contestID, bullish, bearish, avgTarget)
	return &stats, nil
}

func (r *PredictionRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.Prediction, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	var predictions []models.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, mapError(err, op)
		}
		predictions = append(predictions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op)
	}
	return predictions, nil
}
