// Package study runs every scheduling, aggregation and session operation
// against the store, one transaction per operation.
package study

import (
	"context"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/internal/database"
	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/spaced_repetition"
	"github.com/example/flashpod/internal/stats"
	"github.com/example/flashpod/internal/timezone"
	"github.com/example/flashpod/pkg/models"
)

// Engine is safe for concurrent use. It holds no per-user state.
type Engine struct {
	store      *database.Store
	sm2        *spaced_repetition.SM2
	tz         *timezone.Normalizer
	log        *logger.Logger
	windowDays int
}

type Option func(*Engine)

// WithRetentionWindow sets the window used when a caller passes 0 days
func WithRetentionWindow(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

func NewEngine(store *database.Store, sm2 *spaced_repetition.SM2, tz *timezone.Normalizer, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	e := &Engine{
		store:      store,
		sm2:        sm2,
		tz:         tz,
		log:        log.With("service", "StudyEngine"),
		windowDays: stats.DefaultWindowDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timezone returns the display zone the engine judges due dates in
func (e *Engine) Timezone() *timezone.Normalizer { return e.tz }

// cardIDs resolves a deck or pod the user owns to its active card IDs
func (e *Engine) cardIDs(ctx context.Context, q database.Queryer, userID int64, scope models.Scope) ([]int64, error) {
	switch scope.Type {
	case models.ScopeDeck:
		if _, err := e.store.Decks.GetOwnedDeck(ctx, q, userID, scope.ID); err != nil {
			return nil, err
		}
		return e.store.Cards.ActiveIDsByDeck(ctx, q, scope.ID)
	case models.ScopePod:
		if _, err := e.store.Decks.GetOwnedPod(ctx, q, userID, scope.ID); err != nil {
			return nil, err
		}
		return e.store.Cards.ActiveIDsByPod(ctx, q, scope.ID)
	}
	return nil, apperr.Validation("study.cardIDs", "scope type must be deck or pod, got %q", scope.Type)
}

func (e *Engine) cards(ctx context.Context, q database.Queryer, scope models.Scope) ([]models.Card, error) {
	if scope.Type == models.ScopePod {
		return e.store.Cards.ListActiveByPod(ctx, q, scope.ID)
	}
	return e.store.Cards.ListActiveByDeck(ctx, q, scope.ID)
}

func (e *Engine) window(days int) (int, error) {
	switch {
	case days < 0:
		return 0, apperr.Validation("study.window", "window must not be negative, got %d days", days)
	case days == 0:
		return e.windowDays, nil
	}
	return days, nil
}
