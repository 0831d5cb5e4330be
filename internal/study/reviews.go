package study

import (
	"context"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/internal/session"
	"github.com/example/flashpod/pkg/models"
)

// ReviewInput is one answer given by a user
type ReviewInput struct {
	UserID         int64
	CardID         int64
	Quality        int
	ResponseTimeMs *int
	SessionID      *int64
}

// RecordReview schedules the card's next review from its latest review and
// appends the result.
func (e *Engine) RecordReview(ctx context.Context, in ReviewInput) (*models.CardReview, error) {
	const op = "study.RecordReview"
	if err := e.sm2.ValidateQuality(in.Quality); err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	if in.ResponseTimeMs != nil && *in.ResponseTimeMs < 0 {
		return nil, apperr.Validation(op, "response time must not be negative")
	}

	var review *models.CardReview
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		card, err := e.store.Cards.GetOwned(ctx, tx, in.UserID, in.CardID)
		if err != nil {
			return err
		}
		if !card.IsActive {
			return apperr.Validation(op, "card %d is inactive", card.ID)
		}
		if in.SessionID != nil {
			if err := e.checkReviewSession(ctx, tx, in.UserID, *in.SessionID, card); err != nil {
				return err
			}
		}

		latest, err := e.store.Reviews.Latest(ctx, tx, in.UserID, card.ID)
		if err != nil {
			return err
		}
		now := e.tz.NowUTC()
		next, err := e.sm2.ComputeNextSchedule(e.sm2.StateFromReview(latest), in.Quality, now)
		if err != nil {
			return apperr.Validation(op, "%v", err)
		}

		nextDate := next.NextReviewDate
		review = &models.CardReview{
			CardID:         card.ID,
			UserID:         in.UserID,
			SessionID:      in.SessionID,
			ReviewedAt:     now,
			Quality:        in.Quality,
			ResponseTimeMs: in.ResponseTimeMs,
			EaseFactor:     next.EaseFactor,
			IntervalDays:   next.IntervalDays,
			NextReviewDate: &nextDate,
			Repetitions:    next.Repetitions,
		}
		return e.store.Reviews.Create(ctx, tx, review)
	})
	if err != nil {
		return nil, apperr.Store(op, err)
	}

	e.log.Debug("Review recorded",
		"user_id", in.UserID,
		"card_id", review.CardID,
		"quality", review.Quality,
		"interval_days", review.IntervalDays,
		"ease_factor", review.EaseFactor,
	)
	return review, nil
}

// checkReviewSession lazily resumes the session a review is attached to and
// makes sure the card belongs to its deck or pod
func (e *Engine) checkReviewSession(ctx context.Context, tx *sqlx.Tx, userID, sessionID int64, card *models.Card) error {
	const op = "study.RecordReview"
	s, err := e.store.Sessions.GetOwned(ctx, tx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.StateOf(s) == session.Completed {
		return apperr.Conflict(op, "session %d is already completed", s.ID)
	}
	if _, resumed := session.Resume(s, e.tz.NowUTC()); resumed {
		if err := e.store.Sessions.Update(ctx, tx, s); err != nil {
			return err
		}
	}

	scope := s.Scope()
	if scope.Type == models.ScopeDeck {
		if card.DeckID != scope.ID {
			return apperr.Validation(op, "card %d is not in deck %d", card.ID, scope.ID)
		}
		return nil
	}
	ids, err := e.store.Cards.ActiveIDsByPod(ctx, tx, scope.ID)
	if err != nil {
		return err
	}
	if !slices.Contains(ids, card.ID) {
		return apperr.Validation(op, "card %d is not in pod %d", card.ID, scope.ID)
	}
	return nil
}

// CardHistory lists every review of a card the user owns, newest first
func (e *Engine) CardHistory(ctx context.Context, userID, cardID int64) ([]models.CardReview, error) {
	const op = "study.CardHistory"
	if _, err := e.store.Cards.GetOwned(ctx, e.store.DB, userID, cardID); err != nil {
		return nil, apperr.Store(op, err)
	}
	history, err := e.store.Reviews.History(ctx, e.store.DB, userID, cardID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return history, nil
}
