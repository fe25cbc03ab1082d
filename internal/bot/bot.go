// Package bot implements the Telegram transport over the engine.
//
// The transport owns all user-facing phrasing and delivery; every state
// change goes through the engine's typed operations. Channel posts feed the
// catalog, commands and callbacks drive the ledger and request tracker, and
// broadcast fan-out is rate-limited so the API never throttles the loop.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/shared"
)

// broadcastRate caps outbound fan-out messages per second.
const broadcastRate = 20

// Sender is the slice of the Telegram API the bot uses. [tgbotapi.BotAPI]
// satisfies it; tests substitute a recording double.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// pendingState tracks a multi-step admin flow awaiting its next message.
type pendingState int

const (
	pendingNone pendingState = iota
	pendingQRPhoto
	pendingBroadcast
)

// Bot dispatches Telegram updates to the engine.
type Bot struct {
	api     Sender
	engine  *engine.Engine
	config  shared.TelegramConfig
	logger  *log.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	pending map[int64]pendingState
}

// New creates a Bot over an established API client.
func New(api Sender, eng *engine.Engine, config shared.TelegramConfig, logger *log.Logger) *Bot {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Bot{
		api:     api,
		engine:  eng,
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(broadcastRate), 1),
		pending: make(map[int64]pendingState),
	}
}

// Connect dials the Telegram API with the configured token and returns a Bot
// ready to run.
func Connect(eng *engine.Engine, config shared.TelegramConfig, logger *log.Logger) (*Bot, *tgbotapi.BotAPI, error) {
	if config.Token == "" {
		return nil, nil, fmt.Errorf("%w: telegram token is required", shared.ErrMissingConfig)
	}

	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return New(api, eng, config, logger), api, nil
}

// Run consumes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.logger.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping", "reason", ctx.Err())
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Dispatch(ctx, update)
		}
	}
}

// Dispatch routes a single update to its handler.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.ChannelPost != nil:
		b.handleChannelPost(update.ChannelPost)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.config.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", "chat", chatID, "err", err)
	}
}

// userKey converts a Telegram user ID into the engine's string user key.
func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// chatID parses an engine user key back into a Telegram chat ID.
func chatID(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}

// escapeMarkdown neutralizes the characters Telegram's legacy Markdown mode
// treats as formatting.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(text)
}
