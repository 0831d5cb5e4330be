package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/pkg/models"
)

const userColumns = `id, username, telegram_chat_id, notifications_enabled, created_at`

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, q Queryer, user *models.User) error {
	user.CreatedAt = time.Now().UTC()
	query := q.Rebind(`INSERT INTO users (username, telegram_chat_id, notifications_enabled, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		user.Username, user.TelegramChatID, user.NotificationsEnabled, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, q Queryer, id int64) (*models.User, error) {
	return r.getOne(ctx, q, "users.GetByID", `id = ?`, id)
}

// GetByTelegramChatID returns the user linked to a Telegram chat
func (r *UserRepository) GetByTelegramChatID(ctx context.Context, q Queryer, chatID int64) (*models.User, error) {
	return r.getOne(ctx, q, "users.GetByTelegramChatID", `telegram_chat_id = ?`, chatID)
}

func (r *UserRepository) getOne(ctx context.Context, q Queryer, op, condition string, arg interface{}) (*models.User, error) {
	var user models.User
	query := q.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + condition)
	err := sqlx.GetContext(ctx, q, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateLinkCode stores a new link code, dropping the user's earlier codes
// and any code that has expired
func (r *UserRepository) CreateLinkCode(ctx context.Context, q Queryer, lc *models.TelegramLinkCode) error {
	cleanup := q.Rebind(`DELETE FROM telegram_link_codes WHERE user_id = ? OR expires_at <= ?`)
	if _, err := q.ExecContext(ctx, cleanup, lc.UserID, lc.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to clean up link codes: %w", err)
	}
	query := q.Rebind(`INSERT INTO telegram_link_codes (code, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query, lc.Code, lc.UserID, lc.ExpiresAt.UTC(), lc.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to create link code: %w", err)
	}
	return nil
}

// TakeLinkCode deletes a link code and returns it. Expiry is left to the
// caller.
func (r *UserRepository) TakeLinkCode(ctx context.Context, q Queryer, code string) (*models.TelegramLinkCode, error) {
	const op = "users.TakeLinkCode"
	var lc models.TelegramLinkCode
	query := q.Rebind(`SELECT code, user_id, expires_at, created_at FROM telegram_link_codes WHERE code = ?`)
	err := sqlx.GetContext(ctx, q, &lc, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "link code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link code: %w", err)
	}
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM telegram_link_codes WHERE code = ?`), code)
	if err != nil {
		return nil, fmt.Errorf("failed to delete link code: %w", err)
	}
	// Someone else redeemed it in between.
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound(op, "link code not found")
	}
	return &lc, nil
}

// LinkTelegramChat attaches a Telegram chat to a user. A chat already
// linked to another user is moved.
func (r *UserRepository) LinkTelegramChat(ctx context.Context, q Queryer, userID, chatID int64) error {
	unlink := q.Rebind(`UPDATE users SET telegram_chat_id = NULL WHERE telegram_chat_id = ? AND id <> ?`)
	if _, err := q.ExecContext(ctx, unlink, chatID, userID); err != nil {
		return fmt.Errorf("failed to unlink telegram chat: %w", err)
	}
	link := q.Rebind(`UPDATE users SET telegram_chat_id = ? WHERE id = ?`)
	res, err := q.ExecContext(ctx, link, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to link telegram chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("users.LinkTelegramChat", "user %d not found", userID)
	}
	return nil
}

// SetNotifications turns reminders on or off for a user
func (r *UserRepository) SetNotifications(ctx context.Context, q Queryer, userID int64, enabled bool) error {
	query := q.Rebind(`UPDATE users SET notifications_enabled = ? WHERE id = ?`)
	res, err := q.ExecContext(ctx, query, enabled, userID)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("users.SetNotifications", "user %d not found", userID)
	}
	return nil
}

// ListNotifiable returns users with a linked chat and reminders enabled
func (r *UserRepository) ListNotifiable(ctx context.Context, q Queryer) ([]models.User, error) {
	var users []models.User
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE telegram_chat_id IS NOT NULL AND notifications_enabled = TRUE
		ORDER BY id`
	if err := sqlx.SelectContext(ctx, q, &users, query); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
