package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/utils"
)

const maxReasoningLength = 1000

// LedgerOptions configures the prediction ledger.
type LedgerOptions struct {
	Scoring         ScoringPolicy
	OverwritePolicy models.HouseOverwritePolicy
	LeaseTTL        time.Duration
}

// PredictionLedger records user and house predictions and resolves contests.
type PredictionLedger struct {
	store  Store
	quotes QuoteSource
	lease  ContestLease
	events EventPublisher
	opts   LedgerOptions
	logger *logrus.Logger
	now    func() time.Time
}

// NewPredictionLedger creates a ledger. lease and events may be nil.
func NewPredictionLedger(store Store, quotes QuoteSource, lease ContestLease, events EventPublisher, opts LedgerOptions, logger *logrus.Logger) *PredictionLedger {
	if opts.Scoring.MaxErrorBand.IsZero() {
		opts.Scoring = DefaultScoringPolicy()
	}
	if !opts.OverwritePolicy.Valid() {
		opts.OverwritePolicy = models.HouseOverwrite
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 2 * time.Minute
	}
	return &PredictionLedger{
		store:  store,
		quotes: quotes,
		lease:  lease,
		events: events,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a participant's prediction. The price at prediction is read
// from the provider during the call and the contest must still be open after
// that read.
func (l *PredictionLedger) Submit(ctx context.Context, req models.SubmitPredictionRequest) (*models.Prediction, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	contest, err := l.store.GetContest(ctx, req.ContestID)
	if err != nil {
		return nil, err
	}
	if err := EnsureOpen(*contest, l.now()); err != nil {
		return nil, err
	}

	stock, err := l.store.GetStock(ctx, req.StockID)
	if err != nil {
		return nil, err
	}
	if !stock.IsActive {
		return nil, utils.NewValidationErrorf("stock %s is not available for predictions", stock.Symbol)
	}

	quote, err := l.quotes.FreshQuote(ctx, stock.Symbol)
	if err != nil {
		return nil, err
	}
	if quote == nil || quote.Price <= 0 {
		return nil, utils.Newf(utils.KindUpstreamUnavailable, "no usable price for %s", stock.Symbol)
	}

	now := l.now()
	if err := EnsureOpen(*contest, now); err != nil {
		return nil, err
	}

	p := &models.Prediction{
		ID:                uuid.NewString(),
		Author:            models.HumanAuthor(req.UserID),
		StockID:           req.StockID,
		ContestID:         req.ContestID,
		Direction:         req.Direction,
		TargetPrice:       req.TargetPrice,
		ConfidenceLevel:   req.ConfidenceLevel,
		Reasoning:         req.Reasoning,
		PriceAtPrediction: decimal.NewFromFloat(quote.Price),
		CreatedAt:         now,
	}
	if err := l.store.InsertPrediction(ctx, p); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"prediction_id": p.ID,
		"user_id":       req.UserID,
		"contest_id":    req.ContestID,
		"stock_id":      req.StockID,
		"direction":     req.Direction,
	}).Info("Prediction submitted")

	l.publish(ctx, NewEvent(models.EventPredictionSubmitted, p.ContestID, models.PredictionSubmittedPayload{
		PredictionID:    p.ID,
		UserID:          req.UserID,
		StockID:         p.StockID,
		Direction:       p.Direction,
		ConfidenceLevel: p.ConfidenceLevel,
	}))
	return p, nil
}

func validateSubmission(req models.SubmitPredictionRequest) error {
	switch {
	case strings.TrimSpace(req.UserID) == "":
		return utils.NewValidationError("user id is required")
	case req.StockID == "":
		return utils.NewValidationError("stock_id is required")
	case req.ContestID == "":
		return utils.NewValidationError("contest_id is required")
	case !req.Direction.Valid():
		return utils.NewValidationErrorf("direction must be %q or %q", models.DirectionUp, models.DirectionDown)
	case req.ConfidenceLevel < 1 || req.ConfidenceLevel > 10:
		return utils.ErrInvalidConfidence
	case req.TargetPrice != nil && !req.TargetPrice.IsPositive():
		return utils.NewValidationError("target_price must be positive")
	case req.Reasoning != nil && len(*req.Reasoning) > maxReasoningLength:
		return utils.NewValidationErrorf("reasoning must be at most %d characters", maxReasoningLength)
	}
	return nil
}

// RecordHousePrediction upserts the house prediction for (stock, contest).
// Re-recording the same model revision is a no-op; a different revision is
// applied according to the overwrite policy. It reports whether a row changed.
func (l *PredictionLedger) RecordHousePrediction(ctx context.Context, stockID, contestID string, currentPrice decimal.Decimal, out models.HousePredictionOutput) (bool, error) {
	if out.ModelRevision == "" {
		return false, utils.NewValidationError("house prediction requires a model revision")
	}
	if !currentPrice.IsPositive() {
		return false, utils.NewValidationError("current price must be positive")
	}

	contest, err := l.store.GetContest(ctx, contestID)
	if err != nil {
		return false, err
	}
	now := l.now()
	if !now.Before(contest.PredictionDeadline) {
		return false, utils.Newf(utils.KindContestClosed, "contest %s no longer accepts house predictions", contestID)
	}

	target := out.TargetPrice
	reasoning := out.Reasoning
	p := &models.Prediction{
		ID:                uuid.NewString(),
		Author:            models.AlgorithmicAuthor(out.ModelRevision),
		StockID:           stockID,
		ContestID:         contestID,
		Direction:         HouseDirection(out, currentPrice),
		TargetPrice:       &target,
		ConfidenceLevel:   HouseConfidenceLevel(out.Confidence),
		Reasoning:         &reasoning,
		PriceAtPrediction: currentPrice,
		CreatedAt:         now,
	}
	return l.store.UpsertHousePrediction(ctx, p, l.opts.OverwritePolicy)
}

// Resolve scores every prediction of an ended contest against realized
// prices (by stock id) and replaces its leaderboard. All featured and all
// predicted stocks need a price; otherwise nothing is written.
func (l *PredictionLedger) Resolve(ctx context.Context, contestID string, realized map[string]decimal.Decimal) (_ *models.ResolveContestResponse, err error) {
	ctx, span := otel.Tracer("predictarena/services").Start(ctx, "PredictionLedger.Resolve")
	span.SetAttributes(attribute.String("contest.id", contestID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	contest, err := l.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	if now.Before(contest.EndDate) {
		return nil, utils.Newf(utils.KindInvalidInput, "contest %s ends at %s", contestID, contest.EndDate.Format(time.RFC3339)).WithCode("contest_not_ended")
	}

	if l.lease != nil {
		release, err := l.lease.Acquire(ctx, contestID, l.opts.LeaseTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				l.logger.WithError(rerr).WithField("contest_id", contestID).Warn("Failed to release resolution lease")
			}
		}()
	}

	featured, err := l.store.ListFeaturedStocks(ctx)
	if err != nil {
		return nil, err
	}
	predictions, err := l.store.ListContestPredictions(ctx, contestID)
	if err != nil {
		return nil, err
	}
	wasSettled, err := l.store.IsSettled(ctx, contestID)
	if err != nil {
		return nil, err
	}

	required := RequiredStockIDs(featured, predictions)
	var missing, invalid []string
	for _, id := range required {
		price, ok := realized[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case !price.IsPositive():
			invalid = append(invalid, id)
		}
	}
	// Invalid prices are reported before missing ones.
	if len(invalid) > 0 {
		return nil, utils.NewValidationErrorf("realized prices must be positive for: %s", strings.Join(invalid, ", "))
	}
	if len(missing) > 0 {
		return nil, &utils.Error{
			Kind:    utils.KindIncompleteMarketData,
			Message: fmt.Sprintf("missing realized prices for: %s", strings.Join(missing, ", ")),
		}
	}

	outcomes := make([]models.PredictionOutcome, 0, len(predictions))
	for _, p := range predictions {
		outcomes = append(outcomes, l.opts.Scoring.Score(p, realized[p.StockID]))
	}
	leaderboard := RankLeaderboard(contestID, ApplyOutcomes(predictions, outcomes, now), now)

	settlements := make([]models.ContestSettlement, 0, len(required))
	for _, id := range required {
		settlements = append(settlements, models.ContestSettlement{ContestID: contestID, StockID: id, RealizedPrice: realized[id], SettledAt: now})
	}

	if err := l.store.ApplyResolution(ctx, models.ContestResolution{
		ContestID:   contestID,
		Settlements: settlements,
		Outcomes:    outcomes,
		Leaderboard: leaderboard,
		ResolvedAt:  now,
	}); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"contest_id":           contestID,
		"predictions_resolved": len(outcomes),
		"leaderboard_size":     len(leaderboard),
		"re_resolution":        wasSettled,
	}).Info("Contest resolved")

	if !wasSettled {
		l.publish(ctx, NewEvent(models.EventContestStateChanged, contestID, models.ContestStateChangedPayload{From: models.ContestLocked, To: models.ContestResolved}))
	}
	if contest.IsActive {
		l.publish(ctx, NewEvent(models.EventContestDeactivationRequested, contestID, nil))
	}
	l.publish(ctx, NewEvent(models.EventContestResolved, contestID, models.ContestResolvedPayload{
		PredictionsResolved: len(outcomes),
		Leaderboard:         leaderboard[:min(len(leaderboard), 10)],
	}))

	return &models.ResolveContestResponse{
		ContestID:           contestID,
		PredictionsResolved: len(outcomes),
		Leaderboard:         leaderboard,
		ResolvedAt:          now,
	}, nil
}

// RequiredStockIDs returns the sorted union of featured stock ids and stock
// ids referenced by predictions.
func RequiredStockIDs(featured []models.Stock, predictions []models.Prediction) []string {
	set := make(map[string]struct{}, len(featured))
	for _, s := range featured {
		set[s.ID] = struct{}{}
	}
	for _, p := range predictions {
		set[p.StockID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *PredictionLedger) publish(ctx context.Context, event models.DomainEvent) {
	if l.events == nil {
		return
	}
	if err := l.events.Publish(ctx, event); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"contest_id": event.ContestID,
		}).Warn("Failed to publish domain event")
	}
}
