package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/models"
)

// DemoStocks are the featured stocks inserted by SeedDemoData.
var DemoStocks = []models.Stock{
	{ID: "stk-aapl", Symbol: "AAPL", CompanyName: "Apple Inc.", DifficultyLevel: 2, IsFeatured: true, IsActive: true},
	{ID: "stk-msft", Symbol: "MSFT", CompanyName: "Microsoft Corporation", DifficultyLevel: 2, IsFeatured: true, IsActive: true},
	{ID: "stk-nvda", Symbol: "NVDA", CompanyName: "NVIDIA Corporation", DifficultyLevel: 4, IsFeatured: true, IsActive: true},
	{ID: "stk-tsla", Symbol: "TSLA", CompanyName: "Tesla, Inc.", DifficultyLevel: 5, IsFeatured: true, IsActive: true},
	{ID: "stk-amzn", Symbol: "AMZN", CompanyName: "Amazon.com, Inc.", DifficultyLevel: 3, IsFeatured: true, IsActive: true},
}

// DemoContest returns a contest starting at the UTC day of now, closing for
// predictions four days later and ending the day after.
func DemoContest(now time.Time) models.ContestPeriod {
	start := now.UTC().Truncate(24 * time.Hour)
	return models.ContestPeriod{
		ID:                 "contest-" + start.Format("2006-01-02"),
		Name:               "Week of " + start.Format("Jan 2, 2006"),
		StartDate:          start,
		PredictionDeadline: start.Add(4*24*time.Hour + 13*time.Hour + 30*time.Minute),
		EndDate:            start.Add(4*24*time.Hour + 21*time.Hour),
		IsActive:           true,
	}
}

// SeedDemoData inserts the demo stocks and a contest for now. Existing rows
// are left alone.
func SeedDemoData(ctx context.Context, pool DatabasePool, now time.Time) (models.ContestPeriod, error) {
	for _, st := range DemoStocks {
		if _, err := pool.Exec(ctx, `
			INSERT INTO stocks (id, symbol, company_name, difficulty_level, is_featured, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (symbol) DO NOTHING`,
			st.ID, st.Symbol, st.CompanyName, st.DifficultyLevel, st.IsFeatured, st.IsActive,
		); err != nil {
			return models.ContestPeriod{}, fmt.Errorf("seed stock %s: %w", st.Symbol, err)
		}
	}

	contest := DemoContest(now)
	if _, err := pool.Exec(ctx, `
		INSERT INTO contest_periods (id, name, start_date, end_date, prediction_deadline, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO NOTHING`,
		contest.ID, contest.Name, contest.StartDate, contest.EndDate, contest.PredictionDeadline,
	); err != nil {
		return models.ContestPeriod{}, fmt.Errorf("seed contest %s: %w", contest.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"stocks":     len(DemoStocks),
		"contest_id": contest.ID,
	}).Info("Demo data seeded")
	return contest, nil
}
