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

const cardColumns = `c.id, c.deck_id, c.front_content, c.back_content, c.tags,
	c.display_order, c.is_active, c.created_at, c.updated_at`

// CardRepository handles database operations for cards
type CardRepository struct{}

// NewCardRepository creates a new repository instance
func NewCardRepository() *CardRepository {
	return &CardRepository{}
}

// GetOwned returns a card whose deck belongs to userID
func (r *CardRepository) GetOwned(ctx context.Context, q Queryer, userID, cardID int64) (*models.Card, error) {
	var card models.Card
	query := q.Rebind(`SELECT ` + cardColumns + `
		FROM cards c JOIN decks d ON d.id = c.deck_id
		WHERE c.id = ? AND d.user_id = ?`)
	err := sqlx.GetContext(ctx, q, &card, query, cardID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cards.GetOwned", "card %d not found", cardID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// ListActiveByDeck returns the active cards of a deck in display order
func (r *CardRepository) ListActiveByDeck(ctx context.Context, q Queryer, deckID int64) ([]models.Card, error) {
	var cards []models.Card
	query := q.Rebind(`SELECT ` + cardColumns + `
		FROM cards c
		WHERE c.deck_id = ? AND c.is_active = TRUE
		ORDER BY c.display_order, c.id`)
	if err := sqlx.SelectContext(ctx, q, &cards, query, deckID); err != nil {
		return nil, fmt.Errorf("failed to list cards by deck: %w", err)
	}
	return cards, nil
}

// ListActiveByPod returns the active cards of every deck in a pod, deck by
// deck in pod order
func (r *CardRepository) ListActiveByPod(ctx context.Context, q Queryer, podID int64) ([]models.Card, error) {
	var cards []models.Card
	query := q.Rebind(`SELECT ` + cardColumns + `
		FROM cards c JOIN pod_decks pd ON pd.deck_id = c.deck_id
		WHERE pd.pod_id = ? AND c.is_active = TRUE
		ORDER BY pd.display_order, c.display_order, c.id`)
	if err := sqlx.SelectContext(ctx, q, &cards, query, podID); err != nil {
		return nil, fmt.Errorf("failed to list cards by pod: %w", err)
	}
	return cards, nil
}

// ActiveIDsByUser returns the IDs of every active card in the user's decks
func (r *CardRepository) ActiveIDsByUser(ctx context.Context, q Queryer, userID int64) ([]int64, error) {
	var ids []int64
	query := q.Rebind(`SELECT c.id
		FROM cards c JOIN decks d ON d.id = c.deck_id
		WHERE d.user_id = ? AND c.is_active = TRUE
		ORDER BY c.id`)
	if err := sqlx.SelectContext(ctx, q, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list card ids by user: %w", err)
	}
	return ids, nil
}

// ActiveIDsByDeck returns the IDs of a deck's active cards
func (r *CardRepository) ActiveIDsByDeck(ctx context.Context, q Queryer, deckID int64) ([]int64, error) {
	var ids []int64
	query := q.Rebind(`SELECT id FROM cards WHERE deck_id = ? AND is_active = TRUE ORDER BY display_order, id`)
	if err := sqlx.SelectContext(ctx, q, &ids, query, deckID); err != nil {
		return nil, fmt.Errorf("failed to list card ids by deck: %w", err)
	}
	return ids, nil
}

// ActiveIDsByPod returns the IDs of the active cards of every deck in a pod
func (r *CardRepository) ActiveIDsByPod(ctx context.Context, q Queryer, podID int64) ([]int64, error) {
	var ids []int64
	query := q.Rebind(`SELECT c.id
		FROM cards c JOIN pod_decks pd ON pd.deck_id = c.deck_id
		WHERE pd.pod_id = ? AND c.is_active = TRUE
		ORDER BY pd.display_order, c.display_order, c.id`)
	if err := sqlx.SelectContext(ctx, q, &ids, query, podID); err != nil {
		return nil, fmt.Errorf("failed to list card ids by pod: %w", err)
	}
	return ids, nil
}

// ListActiveByPodWithDeck is ListActiveByPod with each card's deck name
func (r *CardRepository) ListActiveByPodWithDeck(ctx context.Context, q Queryer, podID int64) ([]models.PodCard, error) {
	cards := []models.PodCard{}
	query := q.Rebind(`SELECT ` + cardColumns + `, d.name AS deck_name
		FROM cards c
		JOIN pod_decks pd ON pd.deck_id = c.deck_id
		JOIN decks d ON d.id = c.deck_id
		WHERE pd.pod_id = ? AND c.is_active = TRUE
		ORDER BY pd.display_order, c.display_order, c.id`)
	if err := sqlx.SelectContext(ctx, q, &cards, query, podID); err != nil {
		return nil, fmt.Errorf("failed to list pod cards: %w", err)
	}
	return cards, nil
}

// NextDisplayOrder is the position after the last card of a deck
func (r *CardRepository) NextDisplayOrder(ctx context.Context, q Queryer, deckID int64) (int, error) {
	var next int
	query := q.Rebind(`SELECT COALESCE(MAX(display_order), 0) + 1 FROM cards WHERE deck_id = ?`)
	if err := sqlx.GetContext(ctx, q, &next, query, deckID); err != nil {
		return 0, fmt.Errorf("failed to get next display order: %w", err)
	}
	return next, nil
}

// Create inserts a new card
func (r *CardRepository) Create(ctx context.Context, q Queryer, card *models.Card) error {
	now := time.Now().UTC()
	card.CreatedAt, card.UpdatedAt = now, now
	card.IsActive = true
	query := q.Rebind(`
		INSERT INTO cards (deck_id, front_content, back_content, tags, display_order, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		card.DeckID,
		card.FrontContent,
		card.BackContent,
		card.Tags,
		card.DisplayOrder,
		card.IsActive,
		card.CreatedAt,
		card.UpdatedAt,
	).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// Deactivate removes a card from study. Its reviews are kept.
func (r *CardRepository) Deactivate(ctx context.Context, q Queryer, cardID int64) error {
	query := q.Rebind(`UPDATE cards SET is_active = FALSE, updated_at = ? WHERE id = ?`)
	res, err := q.ExecContext(ctx, query, time.Now().UTC(), cardID)
	if err != nil {
		return fmt.Errorf("failed to deactivate card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("cards.Deactivate", "card %d not found", cardID)
	}
	return nil
}

// Update stores the editable fields of a card
func (r *CardRepository) Update(ctx context.Context, q Queryer, card *models.Card) error {
	card.UpdatedAt = time.Now().UTC()
	query := q.Rebind(`UPDATE cards SET
			front_content = ?,
			back_content = ?,
			tags = ?,
			display_order = ?,
			updated_at = ?
		WHERE id = ?`)
	res, err := q.ExecContext(ctx, query,
		card.FrontContent,
		card.BackContent,
		card.Tags,
		card.DisplayOrder,
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("cards.Update", "card %d not found", card.ID)
	}
	return nil
}

// SetDisplayOrder moves a card within its deck. It reports false when the
// card is not in the deck.
func (r *CardRepository) SetDisplayOrder(ctx context.Context, q Queryer, deckID, cardID int64, order int) (bool, error) {
	query := q.Rebind(`UPDATE cards SET display_order = ?, updated_at = ? WHERE id = ? AND deck_id = ?`)
	res, err := q.ExecContext(ctx, query, order, time.Now().UTC(), cardID, deckID)
	if err != nil {
		return false, fmt.Errorf("failed to reorder card: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
