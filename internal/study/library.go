package study

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/pkg/models"
)

// CreateUser registers a user. Authentication happens elsewhere.
func (e *Engine) CreateUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("study.CreateUser", "username is required")
	}
	u := &models.User{Username: username, NotificationsEnabled: true}
	if err := e.store.Users.Create(ctx, e.store.DB, u); err != nil {
		return nil, apperr.Store("study.CreateUser", err)
	}
	return u, nil
}

func (e *Engine) CreateDeck(ctx context.Context, userID int64, name, description string) (*models.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("study.CreateDeck", "deck name is required")
	}
	d := &models.Deck{UserID: userID, Name: name, Description: description}
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Users.GetByID(ctx, tx, userID); err != nil {
			return err
		}
		return e.store.Decks.CreateDeck(ctx, tx, d)
	})
	if err != nil {
		return nil, apperr.Store("study.CreateDeck", err)
	}
	return d, nil
}

func (e *Engine) CreatePod(ctx context.Context, userID int64, name, description string) (*models.Pod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("study.CreatePod", "pod name is required")
	}
	p := &models.Pod{UserID: userID, Name: name, Description: description}
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Users.GetByID(ctx, tx, userID); err != nil {
			return err
		}
		return e.store.Decks.CreatePod(ctx, tx, p)
	})
	if err != nil {
		return nil, apperr.Store("study.CreatePod", err)
	}
	return p, nil
}

// AddDeckToPod places one of the user's decks in one of the user's pods
func (e *Engine) AddDeckToPod(ctx context.Context, userID, podID, deckID int64) (*models.PodDeck, error) {
	var pd *models.PodDeck
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Decks.GetOwnedPod(ctx, tx, userID, podID); err != nil {
			return err
		}
		if _, err := e.store.Decks.GetOwnedDeck(ctx, tx, userID, deckID); err != nil {
			return err
		}
		var err error
		pd, err = e.store.Decks.AddDeckToPod(ctx, tx, podID, deckID)
		return err
	})
	if err != nil {
		return nil, apperr.Store("study.AddDeckToPod", err)
	}
	return pd, nil
}

// CardInput is the editable content of a card
type CardInput struct {
	FrontContent string
	BackContent  string
	Tags         string
}

// AddCards appends cards to the end of a deck the user owns
func (e *Engine) AddCards(ctx context.Context, userID, deckID int64, inputs []CardInput) ([]models.Card, error) {
	const op = "study.AddCards"
	for i, in := range inputs {
		if strings.TrimSpace(in.FrontContent) == "" || strings.TrimSpace(in.BackContent) == "" {
			return nil, apperr.Validation(op, "card %d needs both front and back content", i+1)
		}
	}

	created := make([]models.Card, 0, len(inputs))
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Decks.GetOwnedDeck(ctx, tx, userID, deckID); err != nil {
			return err
		}
		order, err := e.store.Cards.NextDisplayOrder(ctx, tx, deckID)
		if err != nil {
			return err
		}
		for i, in := range inputs {
			c := models.Card{
				DeckID:       deckID,
				FrontContent: strings.TrimSpace(in.FrontContent),
				BackContent:  strings.TrimSpace(in.BackContent),
				Tags:         strings.TrimSpace(in.Tags),
				DisplayOrder: order + i,
			}
			if err := e.store.Cards.Create(ctx, tx, &c); err != nil {
				return err
			}
			created = append(created, c)
		}
		return e.store.Decks.RefreshCardCount(ctx, tx, deckID)
	})
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	e.log.Info("Cards added", "deck_id", deckID, "count", len(created))
	return created, nil
}

// RemoveCard deactivates a card. Its review history stays.
func (e *Engine) RemoveCard(ctx context.Context, userID, cardID int64) error {
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		card, err := e.store.Cards.GetOwned(ctx, tx, userID, cardID)
		if err != nil {
			return err
		}
		if !card.IsActive {
			return nil
		}
		if err := e.store.Cards.Deactivate(ctx, tx, cardID); err != nil {
			return err
		}
		return e.store.Decks.RefreshCardCount(ctx, tx, card.DeckID)
	})
	if err != nil {
		return apperr.Store("study.RemoveCard", err)
	}
	return nil
}

// DeckExport is a deck with its active cards in display order
type DeckExport struct {
	Deck  *models.Deck
	Cards []models.Card
}

func (e *Engine) ExportDeck(ctx context.Context, userID, deckID int64) (*DeckExport, error) {
	const op = "study.ExportDeck"
	deck, err := e.store.Decks.GetOwnedDeck(ctx, e.store.DB, userID, deckID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	cards, err := e.store.Cards.ListActiveByDeck(ctx, e.store.DB, deckID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return &DeckExport{Deck: deck, Cards: cards}, nil
}

// linkCodeTTL is how long a Telegram link code can be redeemed
const linkCodeTTL = 10 * time.Minute

// IssueTelegramLinkCode creates a one-time code the user sends to the bot as
// /start <code>. Issuing a new code invalidates the previous one.
func (e *Engine) IssueTelegramLinkCode(ctx context.Context, userID int64) (*models.TelegramLinkCode, error) {
	now := e.tz.NowUTC()
	lc := &models.TelegramLinkCode{
		Code:      strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    userID,
		ExpiresAt: now.Add(linkCodeTTL),
		CreatedAt: now,
	}
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Users.GetByID(ctx, tx, userID); err != nil {
			return err
		}
		return e.store.Users.CreateLinkCode(ctx, tx, lc)
	})
	if err != nil {
		return nil, apperr.Store("study.IssueTelegramLinkCode", err)
	}
	e.log.Debug("Telegram link code issued", "user_id", userID, "expires_at", lc.ExpiresAt)
	return lc, nil
}

// LinkTelegramChat redeems a link code and points the code owner's
// reminders at chatID. A code works once; unknown codes are NotFound and
// expired ones a Validation error.
func (e *Engine) LinkTelegramChat(ctx context.Context, code string, chatID int64) (*models.User, error) {
	const op = "study.LinkTelegramChat"
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation(op, "link code is required")
	}

	var (
		u       *models.User
		expired bool
	)
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		lc, err := e.store.Users.TakeLinkCode(ctx, tx, code)
		if err != nil {
			return err
		}
		// The used-up code is deleted either way.
		if !e.tz.NowUTC().Before(lc.ExpiresAt) {
			expired = true
			return nil
		}
		if err := e.store.Users.LinkTelegramChat(ctx, tx, lc.UserID, chatID); err != nil {
			return err
		}
		u, err = e.store.Users.GetByID(ctx, tx, lc.UserID)
		return err
	})
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	if expired {
		return nil, apperr.Validation(op, "link code has expired")
	}
	return u, nil
}

// UserByTelegramChat returns the user a chat is linked to
func (e *Engine) UserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := e.store.Users.GetByTelegramChatID(ctx, e.store.DB, chatID)
	if err != nil {
		return nil, apperr.Store("study.UserByTelegramChat", err)
	}
	return u, nil
}

// SetNotifications turns due-card reminders on or off
func (e *Engine) SetNotifications(ctx context.Context, userID int64, enabled bool) error {
	if err := e.store.Users.SetNotifications(ctx, e.store.DB, userID, enabled); err != nil {
		return apperr.Store("study.SetNotifications", err)
	}
	return nil
}

// NotifiableUsers lists users who should receive reminders
func (e *Engine) NotifiableUsers(ctx context.Context) ([]models.User, error) {
	users, err := e.store.Users.ListNotifiable(ctx, e.store.DB)
	if err != nil {
		return nil, apperr.Store("study.NotifiableUsers", err)
	}
	return users, nil
}
