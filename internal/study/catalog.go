package study

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/pkg/models"
)

// ListDecks returns the user's decks, newest first
func (e *Engine) ListDecks(ctx context.Context, userID int64) ([]models.Deck, error) {
	decks, err := e.store.Decks.ListDecksByUser(ctx, e.store.DB, userID)
	if err != nil {
		return nil, apperr.Store("study.ListDecks", err)
	}
	return decks, nil
}

// ListPods returns the user's pods, newest first
func (e *Engine) ListPods(ctx context.Context, userID int64) ([]models.Pod, error) {
	pods, err := e.store.Decks.ListPodsByUser(ctx, e.store.DB, userID)
	if err != nil {
		return nil, apperr.Store("study.ListPods", err)
	}
	return pods, nil
}

// PodDetail is a pod with its decks in pod order
type PodDetail struct {
	Pod   *models.Pod           `json:"pod"`
	Decks []models.PodDeckEntry `json:"decks"`
}

func (e *Engine) GetPod(ctx context.Context, userID, podID int64) (*PodDetail, error) {
	const op = "study.GetPod"
	pod, err := e.store.Decks.GetOwnedPod(ctx, e.store.DB, userID, podID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	decks, err := e.store.Decks.ListPodDecks(ctx, e.store.DB, podID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return &PodDetail{Pod: pod, Decks: decks}, nil
}

// DeckCards returns the active cards of a deck in display order
func (e *Engine) DeckCards(ctx context.Context, userID, deckID int64) ([]models.Card, error) {
	export, err := e.ExportDeck(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}
	return export.Cards, nil
}

// PodCards returns the active cards of every deck in a pod, deck by deck in
// pod order, each with the name of its deck
func (e *Engine) PodCards(ctx context.Context, userID, podID int64) ([]models.PodCard, error) {
	const op = "study.PodCards"
	if _, err := e.store.Decks.GetOwnedPod(ctx, e.store.DB, userID, podID); err != nil {
		return nil, apperr.Store(op, err)
	}
	cards, err := e.store.Cards.ListActiveByPodWithDeck(ctx, e.store.DB, podID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return cards, nil
}

// RemoveDeckFromPod takes a deck out of a pod. The deck, its cards and
// their reviews are kept.
func (e *Engine) RemoveDeckFromPod(ctx context.Context, userID, podID, deckID int64) error {
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Decks.GetOwnedPod(ctx, tx, userID, podID); err != nil {
			return err
		}
		return e.store.Decks.RemoveDeckFromPod(ctx, tx, podID, deckID)
	})
	if err != nil {
		return apperr.Store("study.RemoveDeckFromPod", err)
	}
	e.log.Info("Deck removed from pod", "pod_id", podID, "deck_id", deckID)
	return nil
}

// Position places one item at a display order
type Position struct {
	ID    int64
	Order int
}

func checkPositions(op string, positions []Position) error {
	if len(positions) == 0 {
		return apperr.Validation(op, "at least one position is required")
	}
	for _, p := range positions {
		if p.Order < 0 {
			return apperr.Validation(op, "order must not be negative, got %d for %d", p.Order, p.ID)
		}
	}
	return nil
}

// ReorderPodDecks sets the display order of decks in a pod. Every deck must
// already be in the pod; nothing changes otherwise.
func (e *Engine) ReorderPodDecks(ctx context.Context, userID, podID int64, positions []Position) error {
	const op = "study.ReorderPodDecks"
	if err := checkPositions(op, positions); err != nil {
		return err
	}
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Decks.GetOwnedPod(ctx, tx, userID, podID); err != nil {
			return err
		}
		for _, p := range positions {
			ok, err := e.store.Decks.SetPodDeckOrder(ctx, tx, podID, p.ID, p.Order)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation(op, "deck %d is not in pod %d", p.ID, podID)
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Store(op, err)
	}
	return nil
}

// ReorderDeckCards sets the display order of cards in a deck. Every card
// must belong to the deck; nothing changes otherwise.
func (e *Engine) ReorderDeckCards(ctx context.Context, userID, deckID int64, positions []Position) error {
	const op = "study.ReorderDeckCards"
	if err := checkPositions(op, positions); err != nil {
		return err
	}
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := e.store.Decks.GetOwnedDeck(ctx, tx, userID, deckID); err != nil {
			return err
		}
		for _, p := range positions {
			ok, err := e.store.Cards.SetDisplayOrder(ctx, tx, deckID, p.ID, p.Order)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation(op, "card %d is not in deck %d", p.ID, deckID)
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Store(op, err)
	}
	return nil
}

// CardUpdate holds the fields to change; nil fields are left alone
type CardUpdate struct {
	FrontContent *string
	BackContent  *string
	Tags         *string
	DisplayOrder *int
}

// UpdateCard edits an active card the user owns. Its review history is kept.
func (e *Engine) UpdateCard(ctx context.Context, userID, cardID int64, upd CardUpdate) (*models.Card, error) {
	const op = "study.UpdateCard"
	var card *models.Card
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		card, err = e.store.Cards.GetOwned(ctx, tx, userID, cardID)
		if err != nil {
			return err
		}
		if !card.IsActive {
			return apperr.Validation(op, "card %d has been removed", cardID)
		}
		if err := applyCardUpdate(op, card, upd); err != nil {
			return err
		}
		return e.store.Cards.Update(ctx, tx, card)
	})
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return card, nil
}

func applyCardUpdate(op string, card *models.Card, upd CardUpdate) error {
	if upd.FrontContent != nil {
		front := strings.TrimSpace(*upd.FrontContent)
		if front == "" {
			return apperr.Validation(op, "front content must not be empty")
		}
		card.FrontContent = front
	}
	if upd.BackContent != nil {
		back := strings.TrimSpace(*upd.BackContent)
		if back == "" {
			return apperr.Validation(op, "back content must not be empty")
		}
		card.BackContent = back
	}
	if upd.Tags != nil {
		card.Tags = strings.TrimSpace(*upd.Tags)
	}
	if upd.DisplayOrder != nil {
		if *upd.DisplayOrder < 0 {
			return apperr.Validation(op, "display order must not be negative")
		}
		card.DisplayOrder = *upd.DisplayOrder
	}
	return nil
}
