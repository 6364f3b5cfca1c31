// grbwatch/notifier/telegram.go
package notifier

import (
	"context"
	"fmt"

	"github.com/gewnthar/grbwatch/config"
	"github.com/gewnthar/grbwatch/models"
	"github.com/go-telegram/bot"
)

// Telegram mirrors alert summaries to one chat. Messages are sent as plain
// text because listing URLs contain underscores that break Markdown parsing.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegram validates the bot token with getMe and returns the notifier.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("missing Telegram bot_token")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("missing Telegram chat_id")
	}

	var opts []bot.Option
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: cfg.ChatID}, nil
}

func (t *Telegram) Post(ctx context.Context, payload models.NotificationPayload) error {
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   FormatMessage(payload),
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send trigger %s to Telegram chat_id %d: %w", payload.Trig, t.chatID, err)
	}
	log.Infof("Sent trigger %s to Telegram chat %d", payload.Trig, t.chatID)
	return nil
}
