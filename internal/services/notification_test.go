package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/predictarena-go/internal/models"
)

// MockMessageSender is a mock implementation of MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgmodels.Message), args.Error(1)
}

func resolvedEvent() models.DomainEvent {
	return NewEvent(models.EventContestResolved, "week-23", models.ContestResolvedPayload{
		PredictionsResolved: 12,
		Leaderboard: []models.LeaderboardEntry{
			{UserID: "alice", TotalPoints: 140, CorrectPredictions: 2, TotalPredictions: 2, AccuracyPercentage: 100, RankPosition: 1},
			{UserID: "bob", TotalPoints: 30, CorrectPredictions: 1, TotalPredictions: 3, AccuracyPercentage: 100.0 / 3, RankPosition: 2},
		},
	})
}

func TestNotificationService_FormatResolutionMessage(t *testing.T) {
	ns := NewNotificationService(new(MockMessageSender), 42, quietLogger())
	event := resolvedEvent()

	msg := ns.formatResolutionMessage(event, event.Payload.(models.ContestResolvedPayload))
	assert.Contains(t, msg, "Contest Resolved: week-23")
	assert.Contains(t, msg, "12 predictions scored")
	assert.Contains(t, msg, "1. alice  140 pts  (2/2, 100.0%)")
	assert.Contains(t, msg, "2. bob  30 pts  (1/3, 33.3%)")

	empty := ns.formatResolutionMessage(event, models.ContestResolvedPayload{})
	assert.Contains(t, empty, "No participants this round.")
}

func TestNotificationService_HandleSendsResolution(t *testing.T) {
	sender := new(MockMessageSender)
	sender.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(42)
	})).Return(&tgmodels.Message{ID: 1}, nil).Once()

	ns := NewNotificationService(sender, 42, quietLogger())
	require.NoError(t, ns.Handle(context.Background(), resolvedEvent()))
	sender.AssertExpectations(t)
}

func TestNotificationService_HandleIgnoresOtherEvents(t *testing.T) {
	sender := new(MockMessageSender)
	ns := NewNotificationService(sender, 42, quietLogger())

	require.NoError(t, ns.Handle(context.Background(), NewEvent(models.EventPredictionSubmitted, "c1", models.PredictionSubmittedPayload{})))
	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestNotificationService_HandleErrors(t *testing.T) {
	sender := new(MockMessageSender)
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("chat not found"))
	ns := NewNotificationService(sender, 42, quietLogger())

	err := ns.Handle(context.Background(), resolvedEvent())
	assert.ErrorContains(t, err, "chat not found")

	err = ns.Handle(context.Background(), NewEvent(models.EventContestResolved, "c1", "garbage"))
	assert.ErrorContains(t, err, "unexpected payload")
}

func TestNotificationService_RunStopsWhenChannelCloses(t *testing.T) {
	sender := new(MockMessageSender)
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(&tgmodels.Message{ID: 1}, nil)

	bus := NewChannelBus(4, quietLogger())
	events := bus.Subscribe()
	ns := NewNotificationService(sender, 42, quietLogger())

	done := make(chan struct{})
	go func() {
		ns.Run(context.Background(), events)
		close(done)
	}()

	require.NoError(t, bus.Publish(context.Background(), resolvedEvent()))
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the bus closed")
	}
	sender.AssertNumberOfCalls(t, "SendMessage", 1)
}
