package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// schemaStatements are applied in order at startup. Every statement is
// idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		id               TEXT PRIMARY KEY,
		symbol           TEXT NOT NULL UNIQUE,
		company_name     TEXT NOT NULL,
		sector           TEXT,
		difficulty_level INTEGER NOT NULL DEFAULT 1 CHECK (difficulty_level BETWEEN 1 AND 5),
		is_featured      BOOLEAN NOT NULL DEFAULT FALSE,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS contest_periods (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		start_date          TIMESTAMPTZ NOT NULL,
		end_date            TIMESTAMPTZ NOT NULL,
		prediction_deadline TIMESTAMPTZ NOT NULL,
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (start_date <= prediction_deadline AND prediction_deadline <= end_date)
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT,
		model_revision      TEXT,
		stock_id            TEXT NOT NULL REFERENCES stocks(id),
		contest_id          TEXT NOT NULL REFERENCES contest_periods(id),
		direction           TEXT NOT NULL CHECK (direction IN ('up', 'down')),
		target_price        NUMERIC(18, 4),
		confidence_level    INTEGER NOT NULL CHECK (confidence_level BETWEEN 1 AND 10),
		reasoning           TEXT,
		price_at_prediction NUMERIC(18, 4) NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		realized_price      NUMERIC(18, 4),
		is_correct          BOOLEAN,
		accuracy_score      DOUBLE PRECISION,
		points_earned       INTEGER,
		resolved_at         TIMESTAMPTZ,
		CHECK ((user_id IS NULL) <> (model_revision IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS predictions_user_stock_contest_key
		ON predictions (user_id, stock_id, contest_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS predictions_house_stock_contest_key
		ON predictions (stock_id, contest_id) WHERE user_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS predictions_contest_idx ON predictions (contest_id)`,
	`CREATE TABLE IF NOT EXISTS contest_settlements (
		contest_id     TEXT NOT NULL REFERENCES contest_periods(id),
		stock_id       TEXT NOT NULL REFERENCES stocks(id),
		realized_price NUMERIC(18, 4) NOT NULL CHECK (realized_price > 0),
		settled_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (contest_id, stock_id)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_entries (
		contest_id          TEXT NOT NULL REFERENCES contest_periods(id),
		user_id             TEXT NOT NULL,
		total_predictions   INTEGER NOT NULL,
		correct_predictions INTEGER NOT NULL,
		accuracy_percentage DOUBLE PRECISION NOT NULL,
		total_points        INTEGER NOT NULL,
		rank_position       INTEGER NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (contest_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS leaderboard_entries_rank_idx
		ON leaderboard_entries (contest_id, rank_position)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool DatabasePool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	logrus.WithField("statements", len(schemaStatements)).Info("Database schema is up to date")
	return nil
}
