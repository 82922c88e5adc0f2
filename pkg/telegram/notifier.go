package telegram

import (
	"context"
	"krx-autotrade/config"
	"krx-autotrade/pkg/logger"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
	"time"
)

// Notifier is a send-only wrapper around the bot API used to push trade
// events (fills, stops, desync warnings) to the account holder's chat.
// There is no inbound command surface.
type Notifier struct {
	cfg     *config.TelegramConfig
	log     *logger.Logger
	bot     *telebot.Bot
	chat    *telebot.Chat
	limiter *rate.Limiter
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger) (*Notifier, error) {
	if cfg.BotToken == "" {
		// Notifications disabled; Send becomes a no-op.
		return &Notifier{cfg: cfg, log: log}, nil
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: false,
	})
	if err != nil {
		return nil, err
	}

	perMessage := time.Minute / time.Duration(cfg.MaxMessagePerMinute)
	return &Notifier{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		chat:    &telebot.Chat{ID: cfg.ChatID},
		limiter: rate.NewLimiter(rate.Every(perMessage), 1),
	}, nil
}

// Send delivers a message to the configured chat, honoring the rate limit.
// Delivery failures are logged, never propagated; a missed notification must
// not affect trading.
func (n *Notifier) Send(ctx context.Context, message string) {
	if n.bot == nil {
		return
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return
	}

	if _, err := n.bot.Send(n.chat, message, telebot.ModeHTML); err != nil {
		n.log.WarnContext(ctx, "Failed to send telegram notification", logger.ErrorField(err))
	}
}
