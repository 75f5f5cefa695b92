// Command telegram-check verifies that the contest notifier can reach its
// Telegram chat before the server is deployed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/irfndi/predictarena-go/internal/config"
)

type botClient interface {
	GetMe(ctx context.Context) (*tgmodels.User, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

func main() {
	sendTest := len(os.Args) > 1 && os.Args[1] == "--send"

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := checkConfig(cfg.Telegram); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.WithSkipGetMe())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create Telegram bot: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := verify(ctx, b, cfg.Telegram.ChatID, sendTest, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func checkConfig(tg config.TelegramConfig) error {
	if tg.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not configured")
	}
	if tg.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is not configured")
	}
	return nil
}

// verify calls getMe and, when sendTest is set, posts a message to chatID.
func verify(ctx context.Context, client botClient, chatID int64, sendTest bool, out io.Writer) error {
	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach Telegram API: %w", err)
	}
	fmt.Fprintf(out, "bot @%s (id %d) is reachable\n", me.Username, me.ID)

	if !sendTest {
		return nil
	}

	_, err = client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "Prediction Arena notifier check: contest results will be posted here.",
	})
	if err != nil {
		return fmt.Errorf("failed to post to chat %d: %w", chatID, err)
	}
	fmt.Fprintf(out, "test message sent to chat %d\n", chatID)
	return nil
}
