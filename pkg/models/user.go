package models

import "time"

// User is a FlashPod account. Authentication lives outside this service;
// the row only carries what reminders need.
type User struct {
	ID                   int64     `json:"id" db:"id"`
	Username             string    `json:"username" db:"username"`
	TelegramChatID       *int64    `json:"telegram_chat_id" db:"telegram_chat_id"`
	NotificationsEnabled bool      `json:"notifications_enabled" db:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// TelegramLinkCode is a one-time code a user sends to the bot to prove the
// chat is theirs
type TelegramLinkCode struct {
	Code      string    `json:"code" db:"code"`
	UserID    int64     `json:"-" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}
