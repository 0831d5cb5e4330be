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

// DeckRepository handles database operations for decks, pods and the
// membership of decks in pods
type DeckRepository struct{}

// NewDeckRepository creates a new repository instance
func NewDeckRepository() *DeckRepository {
	return &DeckRepository{}
}

// CreateDeck inserts a new deck
func (r *DeckRepository) CreateDeck(ctx context.Context, q Queryer, deck *models.Deck) error {
	now := time.Now().UTC()
	deck.CreatedAt, deck.UpdatedAt = now, now
	query := q.Rebind(`
		INSERT INTO decks (user_id, name, description, is_public, card_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		deck.UserID, deck.Name, deck.Description, deck.IsPublic, deck.CreatedAt, deck.UpdatedAt,
	).Scan(&deck.ID)
	if err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}
	return nil
}

// GetOwnedDeck returns a deck owned by userID
func (r *DeckRepository) GetOwnedDeck(ctx context.Context, q Queryer, userID, deckID int64) (*models.Deck, error) {
	var deck models.Deck
	query := q.Rebind(`SELECT id, user_id, name, description, is_public, card_count, created_at, updated_at
		FROM decks WHERE id = ? AND user_id = ?`)
	err := sqlx.GetContext(ctx, q, &deck, query, deckID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("decks.GetOwned", "deck %d not found", deckID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return &deck, nil
}

// ListDecksByUser returns a user's decks, newest first
func (r *DeckRepository) ListDecksByUser(ctx context.Context, q Queryer, userID int64) ([]models.Deck, error) {
	decks := []models.Deck{}
	query := q.Rebind(`SELECT id, user_id, name, description, is_public, card_count, created_at, updated_at
		FROM decks WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`)
	if err := sqlx.SelectContext(ctx, q, &decks, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// RefreshCardCount recomputes card_count of a deck and total_card_count of
// every pod containing it
func (r *DeckRepository) RefreshCardCount(ctx context.Context, q Queryer, deckID int64) error {
	now := time.Now().UTC()
	query := q.Rebind(`UPDATE decks SET
			card_count = (SELECT COUNT(*) FROM cards WHERE deck_id = ? AND is_active = TRUE),
			updated_at = ?
		WHERE id = ?`)
	if _, err := q.ExecContext(ctx, query, deckID, now, deckID); err != nil {
		return fmt.Errorf("failed to refresh deck card count: %w", err)
	}

	query = q.Rebind(`UPDATE pods SET
			total_card_count = (
				SELECT COUNT(*) FROM cards c JOIN pod_decks pd ON pd.deck_id = c.deck_id
				WHERE pd.pod_id = pods.id AND c.is_active = TRUE
			),
			updated_at = ?
		WHERE id IN (SELECT pod_id FROM pod_decks WHERE deck_id = ?)`)
	if _, err := q.ExecContext(ctx, query, now, deckID); err != nil {
		return fmt.Errorf("failed to refresh pod card counts: %w", err)
	}
	return nil
}

// CreatePod inserts a new, empty pod
func (r *DeckRepository) CreatePod(ctx context.Context, q Queryer, pod *models.Pod) error {
	now := time.Now().UTC()
	pod.CreatedAt, pod.UpdatedAt = now, now
	query := q.Rebind(`
		INSERT INTO pods (user_id, name, description, is_public, deck_count, total_card_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		pod.UserID, pod.Name, pod.Description, pod.IsPublic, pod.CreatedAt, pod.UpdatedAt,
	).Scan(&pod.ID)
	if err != nil {
		return fmt.Errorf("failed to create pod: %w", err)
	}
	return nil
}

// GetOwnedPod returns a pod owned by userID
func (r *DeckRepository) GetOwnedPod(ctx context.Context, q Queryer, userID, podID int64) (*models.Pod, error) {
	var pod models.Pod
	query := q.Rebind(`SELECT id, user_id, name, description, is_public, deck_count, total_card_count, created_at, updated_at
		FROM pods WHERE id = ? AND user_id = ?`)
	err := sqlx.GetContext(ctx, q, &pod, query, podID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("pods.GetOwned", "pod %d not found", podID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pod: %w", err)
	}
	return &pod, nil
}

// ListPodsByUser returns a user's pods, newest first
func (r *DeckRepository) ListPodsByUser(ctx context.Context, q Queryer, userID int64) ([]models.Pod, error) {
	pods := []models.Pod{}
	query := q.Rebind(`SELECT id, user_id, name, description, is_public, deck_count, total_card_count, created_at, updated_at
		FROM pods WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`)
	if err := sqlx.SelectContext(ctx, q, &pods, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	return pods, nil
}

// ListPodDecks returns the decks of a pod in pod order
func (r *DeckRepository) ListPodDecks(ctx context.Context, q Queryer, podID int64) ([]models.PodDeckEntry, error) {
	entries := []models.PodDeckEntry{}
	query := q.Rebind(`SELECT d.id, d.user_id, d.name, d.description, d.is_public, d.card_count,
			d.created_at, d.updated_at, pd.display_order
		FROM pod_decks pd JOIN decks d ON d.id = pd.deck_id
		WHERE pd.pod_id = ?
		ORDER BY pd.display_order, pd.id`)
	if err := sqlx.SelectContext(ctx, q, &entries, query, podID); err != nil {
		return nil, fmt.Errorf("failed to list pod decks: %w", err)
	}
	return entries, nil
}

// AddDeckToPod appends a deck to a pod. Adding the same deck twice is a
// conflict.
func (r *DeckRepository) AddDeckToPod(ctx context.Context, q Queryer, podID, deckID int64) (*models.PodDeck, error) {
	pd := &models.PodDeck{PodID: podID, DeckID: deckID, AddedAt: time.Now().UTC()}
	order := q.Rebind(`SELECT COALESCE(MAX(display_order), 0) + 1 FROM pod_decks WHERE pod_id = ?`)
	if err := sqlx.GetContext(ctx, q, &pd.DisplayOrder, order, podID); err != nil {
		return nil, fmt.Errorf("failed to get pod deck order: %w", err)
	}

	query := q.Rebind(`INSERT INTO pod_decks (pod_id, deck_id, display_order, added_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query, pd.PodID, pd.DeckID, pd.DisplayOrder, pd.AddedAt).Scan(&pd.ID)
	if IsUniqueViolation(err) {
		return nil, apperr.Conflict("pods.AddDeck", "deck %d is already in pod %d", deckID, podID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add deck to pod: %w", err)
	}
	if err := r.RefreshPodCounts(ctx, q, podID); err != nil {
		return nil, err
	}
	return pd, nil
}

// RefreshPodCounts recomputes deck_count and total_card_count of a pod
func (r *DeckRepository) RefreshPodCounts(ctx context.Context, q Queryer, podID int64) error {
	query := q.Rebind(`UPDATE pods SET
			deck_count = (SELECT COUNT(*) FROM pod_decks WHERE pod_id = ?),
			total_card_count = (
				SELECT COUNT(*) FROM cards c JOIN pod_decks pd ON pd.deck_id = c.deck_id
				WHERE pd.pod_id = ? AND c.is_active = TRUE
			),
			updated_at = ?
		WHERE id = ?`)
	if _, err := q.ExecContext(ctx, query, podID, podID, time.Now().UTC(), podID); err != nil {
		return fmt.Errorf("failed to refresh pod counts: %w", err)
	}
	return nil
}

// RemoveDeckFromPod takes a deck out of a pod and refreshes the pod's counts.
// The deck itself is untouched.
func (r *DeckRepository) RemoveDeckFromPod(ctx context.Context, q Queryer, podID, deckID int64) error {
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM pod_decks WHERE pod_id = ? AND deck_id = ?`), podID, deckID)
	if err != nil {
		return fmt.Errorf("failed to remove deck from pod: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("pods.RemoveDeck", "deck %d is not in pod %d", deckID, podID)
	}
	return r.RefreshPodCounts(ctx, q, podID)
}

// SetPodDeckOrder moves a deck within a pod. It reports false when the deck
// is not in the pod.
func (r *DeckRepository) SetPodDeckOrder(ctx context.Context, q Queryer, podID, deckID int64, order int) (bool, error) {
	query := q.Rebind(`UPDATE pod_decks SET display_order = ? WHERE pod_id = ? AND deck_id = ?`)
	res, err := q.ExecContext(ctx, query, order, podID, deckID)
	if err != nil {
		return false, fmt.Errorf("failed to reorder pod deck: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
