package services

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
)

// ComputeContestState derives the state of a contest at now. settled reports
// whether realized prices have been recorded for every featured stock.
func ComputeContestState(c models.ContestPeriod, now time.Time, settled bool) models.ContestState {
	switch {
	case now.Before(c.StartDate):
		return models.ContestUpcoming
	case now.Before(c.PredictionDeadline):
		return models.ContestOpen
	case !now.Before(c.EndDate) && settled:
		return models.ContestResolved
	default:
		return models.ContestLocked
	}
}

// EnsureOpen fails with ContestClosed unless the contest accepts predictions at now.
func EnsureOpen(c models.ContestPeriod, now time.Time) error {
	if state := ComputeContestState(c, now, false); state != models.ContestOpen {
		return utils.Newf(utils.KindContestClosed, "contest %s is %s", c.ID, state).WithCode(string(state))
	}
	return nil
}

// Selection is the outcome of picking the current contest.
type Selection struct {
	Contest *models.ContestPeriod
	State   models.ContestState
	// Overlapping lists the other contests that were open at the same time.
	Overlapping []string
}

// SelectCurrentContest picks the contest callers should see at now. Open
// contests win, earliest deadline first with id as tie-break; more than one
// open contest is a data anomaly that is logged and otherwise tolerated.
// Without an open contest, a locked contest still inside its window is
// returned, then the nearest upcoming one. A nil Contest means none applies.
func SelectCurrentContest(periods []models.ContestPeriod, now time.Time, settled func(id string) bool, logger *logrus.Logger) Selection {
	var open, locked, upcoming []models.ContestPeriod
	for _, c := range periods {
		switch ComputeContestState(c, now, settled != nil && settled(c.ID)) {
		case models.ContestOpen:
			open = append(open, c)
		case models.ContestLocked:
			if now.Before(c.EndDate) {
				locked = append(locked, c)
			}
		case models.ContestUpcoming:
			upcoming = append(upcoming, c)
		}
	}

	byKey := func(list []models.ContestPeriod, key func(models.ContestPeriod) time.Time) {
		sort.Slice(list, func(i, j int) bool {
			ki, kj := key(list[i]), key(list[j])
			if !ki.Equal(kj) {
				return ki.Before(kj)
			}
			return list[i].ID < list[j].ID
		})
	}

	switch {
	case len(open) > 0:
		byKey(open, func(c models.ContestPeriod) time.Time { return c.PredictionDeadline })
		sel := Selection{Contest: &open[0], State: models.ContestOpen}
		for _, c := range open[1:] {
			sel.Overlapping = append(sel.Overlapping, c.ID)
		}
		if len(sel.Overlapping) > 0 && logger != nil {
			logger.WithFields(logrus.Fields{
				"kind":        utils.KindDataIntegrityAnomaly,
				"selected":    sel.Contest.ID,
				"overlapping": sel.Overlapping,
			}).Warn("Multiple contests open at once, using earliest deadline")
		}
		return sel
	case len(locked) > 0:
		byKey(locked, func(c models.ContestPeriod) time.Time { return c.EndDate })
		return Selection{Contest: &locked[0], State: models.ContestLocked}
	case len(upcoming) > 0:
		byKey(upcoming, func(c models.ContestPeriod) time.Time { return c.StartDate })
		return Selection{Contest: &upcoming[0], State: models.ContestUpcoming}
	}
	return Selection{}
}
