package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/internal/stats"
	"github.com/example/flashpod/pkg/models"
)

// Constants for callback data
const (
	callbackNotifyOn  = "notify_on"
	callbackNotifyOff = "notify_off"
)

const helpText = "FlashPod reminders\n\n" +
	"/start <code> - link this chat with a code from the FlashPod app\n" +
	"/due - cards due for review\n" +
	"/stats - your dashboard\n" +
	"/notify on|off - turn reminders on or off\n" +
	"/stop - turn reminders off\n" +
	"/help - show this help"

const notLinkedText = "This chat is not linked yet. Get a link code in the FlashPod app and send /start <code>."

type reply struct {
	text     string
	keyboard [][]MenuButton
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) reply {
	args = strings.TrimSpace(args)
	switch command {
	case "start":
		return b.handleStart(ctx, chatID, args)
	case "help":
		return reply{text: helpText}
	case "due":
		return b.withUser(ctx, chatID, b.handleDue)
	case "stats":
		return b.withUser(ctx, chatID, b.handleStats)
	case "notify":
		return b.withUser(ctx, chatID, func(ctx context.Context, u *models.User) reply {
			return b.handleNotify(ctx, u, args)
		})
	case "stop":
		return b.withUser(ctx, chatID, func(ctx context.Context, u *models.User) reply {
			return b.handleNotify(ctx, u, "off")
		})
	}
	return reply{text: "Unknown command. Use /help to see what I can do."}
}

func (b *Bot) handleCallback(ctx context.Context, chatID int64, data string) reply {
	switch data {
	case callbackNotifyOn:
		return b.withUser(ctx, chatID, func(ctx context.Context, u *models.User) reply {
			return b.handleNotify(ctx, u, "on")
		})
	case callbackNotifyOff:
		return b.withUser(ctx, chatID, func(ctx context.Context, u *models.User) reply {
			return b.handleNotify(ctx, u, "off")
		})
	}
	return reply{text: "Unknown action."}
}

// withUser resolves the user linked to chatID before running fn
func (b *Bot) withUser(ctx context.Context, chatID int64, fn func(context.Context, *models.User) reply) reply {
	u, err := b.study.UserByTelegramChat(ctx, chatID)
	if errors.Is(err, apperr.ErrNotFound) {
		return reply{text: notLinkedText}
	}
	if err != nil {
		return b.failed("load user", err)
	}
	return fn(ctx, u)
}

func (b *Bot) failed(action string, err error) reply {
	b.log.Error("Command failed", "action", action, "error", err)
	return reply{text: "Something went wrong, please try again later."}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, args string) reply {
	if args == "" {
		if u, err := b.study.UserByTelegramChat(ctx, chatID); err == nil {
			return reply{text: fmt.Sprintf("Welcome back, %s!\n\n%s", u.Username, helpText)}
		}
		return reply{text: "Welcome to FlashPod!\n\n" + notLinkedText}
	}

	u, err := b.study.LinkTelegramChat(ctx, args, chatID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return reply{text: "That link code is not valid. Get a new one in the FlashPod app."}
	case errors.Is(err, apperr.ErrValidation):
		return reply{text: "That link code has expired. Get a new one in the FlashPod app."}
	case err != nil:
		return b.failed("link chat", err)
	}
	b.log.Info("Chat linked", "user_id", u.ID, "chat_id", chatID)
	return reply{text: fmt.Sprintf("Linked to %s. You will get a reminder when cards are due.", u.Username)}
}

func (b *Bot) handleDue(ctx context.Context, u *models.User) reply {
	due, err := b.study.DueSummary(ctx, u.ID)
	if err != nil {
		return b.failed("due", err)
	}
	return reply{text: b.dueText(due)}
}

func (b *Bot) handleStats(ctx context.Context, u *models.User) reply {
	d, err := b.study.Dashboard(ctx, u.ID)
	if err != nil {
		return b.failed("stats", err)
	}
	text := fmt.Sprintf("📊 Your statistics\n\n"+
		"Cards learned: %s\n"+
		"Retention: %s\n"+
		"Reviews: %s\n"+
		"Study time: %s",
		d.Formatted.CardsLearned, d.Formatted.RetentionRate, d.Formatted.TotalReviews, d.Formatted.StudyTime)
	return reply{text: text}
}

func (b *Bot) handleNotify(ctx context.Context, u *models.User, arg string) reply {
	var enabled bool
	switch strings.ToLower(arg) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return reply{
			text: fmt.Sprintf("Reminders are %s.", boolToEnabledString(u.NotificationsEnabled)),
			keyboard: [][]MenuButton{{
				{Text: "🔔 On", CallbackData: callbackNotifyOn},
				{Text: "🔕 Off", CallbackData: callbackNotifyOff},
			}},
		}
	}
	if err := b.study.SetNotifications(ctx, u.ID, enabled); err != nil {
		return b.failed("notify", err)
	}
	return reply{text: fmt.Sprintf("✅ Reminders %s", boolToEnabledString(enabled))}
}

func boolToEnabledString(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func cardsWord(n int) string {
	if n == 1 {
		return "card"
	}
	return "cards"
}

func (b *Bot) dueText(due stats.DueInfo) string {
	if due.CardsDueNow > 0 {
		return fmt.Sprintf("%d %s due now.", due.CardsDueNow, cardsWord(due.CardsDueNow))
	}
	if due.NextReviewAt == nil {
		return "You have no cards yet."
	}
	next := b.tz.ToLocal(*due.NextReviewAt)
	return fmt.Sprintf("Nothing due. Next review: %s (%d %s).",
		next.Format("Mon 2 Jan 15:04"), due.CardsAtNextSession, cardsWord(due.CardsAtNextSession))
}

func reminderText(due stats.DueInfo) string {
	text := fmt.Sprintf("🔔 You have %d %s due for review.", due.CardsDueNow, cardsWord(due.CardsDueNow))
	if due.Overdue {
		text += " Some are overdue."
	}
	return text + " Open FlashPod to start a session."
}
