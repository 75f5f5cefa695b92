package main

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/predictarena-go/internal/config"
	"github.com/irfndi/predictarena-go/internal/database"
)

func runSeeder() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	contest, err := database.SeedDemoData(ctx, db.Pool, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d featured stocks and contest %s (predictions close %s)\n",
		len(database.DemoStocks), contest.ID, contest.PredictionDeadline.Format(time.RFC3339))
	return nil
}
