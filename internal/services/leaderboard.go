package services

import (
	"sort"
	"time"

	"github.com/irfndi/predictarena-go/internal/models"
)

// RankLeaderboard aggregates scored human predictions into a ranked
// leaderboard. House predictions and unscored predictions are ignored.
//
// Entries are ordered by total points, then accuracy, both descending, then
// user id ascending. Equal (points, accuracy) pairs share a rank and the
// next distinct pair skips ahead (1, 2, 2, 4).
func RankLeaderboard(contestID string, predictions []models.Prediction, now time.Time) []models.LeaderboardEntry {
	byUser := make(map[string]*models.LeaderboardEntry)
	for _, p := range predictions {
		if !p.Author.IsHuman() || p.IsCorrect == nil {
			continue
		}
		e, ok := byUser[p.Author.UserID]
		if !ok {
			e = &models.LeaderboardEntry{UserID: p.Author.UserID, ContestID: contestID, UpdatedAt: now}
			byUser[p.Author.UserID] = e
		}
		e.TotalPredictions++
		if *p.IsCorrect {
			e.CorrectPredictions++
		}
		if p.PointsEarned != nil {
			e.TotalPoints += *p.PointsEarned
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		if e.TotalPredictions > 0 {
			e.AccuracyPercentage = float64(e.CorrectPredictions*100) / float64(e.TotalPredictions)
		}
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.AccuracyPercentage != b.AccuracyPercentage {
			return a.AccuracyPercentage > b.AccuracyPercentage
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		if i > 0 && entries[i].TotalPoints == entries[i-1].TotalPoints &&
			entries[i].AccuracyPercentage == entries[i-1].AccuracyPercentage {
			entries[i].RankPosition = entries[i-1].RankPosition
			continue
		}
		entries[i].RankPosition = i + 1
	}
	return entries
}

// ApplyOutcomes returns copies of predictions with their outcome fields set.
func ApplyOutcomes(predictions []models.Prediction, outcomes []models.PredictionOutcome, resolvedAt time.Time) []models.Prediction {
	byID := make(map[string]models.PredictionOutcome, len(outcomes))
	for _, o := range outcomes {
		byID[o.PredictionID] = o
	}

	out := make([]models.Prediction, len(predictions))
	for i, p := range predictions {
		if o, ok := byID[p.ID]; ok {
			realized, correct, accuracy, points, at := o.RealizedPrice, o.IsCorrect, o.AccuracyScore, o.PointsEarned, resolvedAt
			p.RealizedPrice, p.IsCorrect, p.AccuracyScore, p.PointsEarned, p.ResolvedAt = &realized, &correct, &accuracy, &points, &at
		}
		out[i] = p
	}
	return out
}
