// Package bot is the Telegram side of FlashPod: it links chats to users,
// answers a few read-only commands and delivers due-card reminders.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/stats"
	"github.com/example/flashpod/internal/timezone"
	"github.com/example/flashpod/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Study is what the bot needs from the study engine
type Study interface {
	LinkTelegramChat(ctx context.Context, code string, chatID int64) (*models.User, error)
	UserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error)
	SetNotifications(ctx context.Context, userID int64, enabled bool) error
	DueSummary(ctx context.Context, userID int64) (stats.DueInfo, error)
	Dashboard(ctx context.Context, userID int64) (stats.DashboardStats, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api   *tgbotapi.BotAPI
	cfg   Config
	study Study
	tz    *timezone.Normalizer
	log   *logger.Logger
}

// New authorizes against the Bot API with cfg.Token
func New(cfg Config, study Study, tz *timezone.Normalizer, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	api.Debug = cfg.Debug

	b := newBot(api, cfg, study, tz, log)
	b.log.Info("Authorized on account", "username", api.Self.UserName)
	return b, nil
}

func newBot(api *tgbotapi.BotAPI, cfg Config, study Study, tz *timezone.Normalizer, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bot{api: api, cfg: cfg, study: study, tz: tz, log: log.With("service", "TelegramBot")}
}

// Start handles updates until ctx is cancelled or Stop is called
func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.cfg.UpdateTimeout

	updates := b.api.GetUpdatesChan(updateConfig)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.log.Info("Bot stopped")
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(_ context.Context, chatID int64, due stats.DueInfo) error {
	msg := tgbotapi.NewMessage(chatID, reminderText(due))
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to chat %d: %w", chatID, err)
	}
	b.log.Info("Reminder sent", "chat_id", chatID, "cards_due", due.CardsDueNow)
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		chatID int64
		r      reply
	)
	switch {
	case update.Message != nil && update.Message.IsCommand():
		chatID = update.Message.Chat.ID
		r = b.handleCommand(ctx, chatID, update.Message.Command(), update.Message.CommandArguments())
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		r = reply{text: "I only understand commands. Try /help."}
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		r = b.handleCallback(ctx, chatID, update.CallbackQuery.Data)
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			b.log.Warn("Failed to answer callback", "error", err)
		}
	default:
		return
	}

	msg := tgbotapi.NewMessage(chatID, r.text)
	if len(r.keyboard) > 0 {
		msg.ReplyMarkup = createKeyboard(r.keyboard)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}
