package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/predictarena-go/internal/models"
)

// MessageSender is the part of the Telegram bot used for broadcasting.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// NotificationService posts contest resolution summaries to a Telegram chat.
type NotificationService struct {
	sender MessageSender
	chatID int64
	logger *logrus.Logger
	title  cases.Caser
}

// NewTelegramNotificationService connects a bot for token. The bot is created
// without a startup round-trip; a bad token surfaces on the first send.
func NewTelegramNotificationService(token string, chatID int64, logger *logrus.Logger) (*NotificationService, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewNotificationService(b, chatID, logger), nil
}

// NewNotificationService creates a new notification service
func NewNotificationService(sender MessageSender, chatID int64, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		sender: sender,
		chatID: chatID,
		logger: logger,
		title:  cases.Title(language.English),
	}
}

// Run consumes events until the channel closes or ctx is done.
func (ns *NotificationService) Run(ctx context.Context, events <-chan models.DomainEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := ns.Handle(ctx, event); err != nil {
				ns.logger.WithError(err).WithFields(logrus.Fields{
					"event_type": event.Type,
					"contest_id": event.ContestID,
				}).Warn("Failed to send telegram notification")
			}
		}
	}
}

// Handle sends a message for events worth broadcasting and ignores the rest.
func (ns *NotificationService) Handle(ctx context.Context, event models.DomainEvent) error {
	if event.Type != models.EventContestResolved {
		return nil
	}

	var payload models.ContestResolvedPayload
	switch p := event.Payload.(type) {
	case models.ContestResolvedPayload:
		payload = p
	case *models.ContestResolvedPayload:
		payload = *p
	default:
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	_, err := ns.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: ns.chatID,
		Text:   ns.formatResolutionMessage(event, payload),
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (ns *NotificationService) formatResolutionMessage(event models.DomainEvent, payload models.ContestResolvedPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 %s: %s\n", ns.title.String(strings.ReplaceAll(string(event.Type), "_", " ")), event.ContestID)
	fmt.Fprintf(&sb, "%d predictions scored\n", payload.PredictionsResolved)

	if len(payload.Leaderboard) == 0 {
		sb.WriteString("\nNo participants this round.")
		return sb.String()
	}

	sb.WriteString("\nTop players:\n")
	for _, e := range payload.Leaderboard {
		fmt.Fprintf(&sb, "%d. %s  %d pts  (%d/%d, %.1f%%)\n",
			e.RankPosition, e.UserID, e.TotalPoints, e.CorrectPredictions, e.TotalPredictions, e.AccuracyPercentage)
	}
	return strings.TrimRight(sb.String(), "\n")
}
