package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/pkg/models"
)

const reviewColumns = `cr.id, cr.card_id, cr.user_id, cr.session_id, cr.reviewed_at,
	cr.response_quality, cr.response_time, cr.ease_factor, cr.interval_days,
	cr.next_review_date, cr.repetitions`

// ReviewRepository handles database operations for card reviews. Reviews
// are append-only.
type ReviewRepository struct{}

// NewReviewRepository creates a new repository instance
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

// Create appends a review
func (r *ReviewRepository) Create(ctx context.Context, q Queryer, rev *models.CardReview) error {
	query := q.Rebind(`
		INSERT INTO card_reviews (
			card_id, user_id, session_id, reviewed_at, response_quality, response_time,
			ease_factor, interval_days, next_review_date, repetitions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		rev.CardID,
		rev.UserID,
		rev.SessionID,
		rev.ReviewedAt.UTC(),
		rev.Quality,
		rev.ResponseTimeMs,
		rev.EaseFactor,
		rev.IntervalDays,
		utcPtr(rev.NextReviewDate),
		rev.Repetitions,
	).Scan(&rev.ID)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Latest returns the most recent review of a card by a user, or nil when
// the card was never reviewed
func (r *ReviewRepository) Latest(ctx context.Context, q Queryer, userID, cardID int64) (*models.CardReview, error) {
	latest, err := r.LatestByCards(ctx, q, userID, []int64{cardID})
	if err != nil {
		return nil, err
	}
	return latest[cardID], nil
}

// LatestByCards returns the most recent review of each card, keyed by card
// ID. Cards never reviewed are absent from the map. Ties on reviewed_at are
// broken by the higher review ID.
func (r *ReviewRepository) LatestByCards(ctx context.Context, q Queryer, userID int64, cardIDs []int64) (map[int64]*models.CardReview, error) {
	latest := make(map[int64]*models.CardReview, len(cardIDs))
	if len(cardIDs) == 0 {
		return latest, nil
	}
	query, args, err := sqlx.In(`SELECT `+reviewColumns+`
		FROM card_reviews cr
		WHERE cr.user_id = ? AND cr.card_id IN (?)
		AND NOT EXISTS (
			SELECT 1 FROM card_reviews newer
			WHERE newer.user_id = cr.user_id AND newer.card_id = cr.card_id
			AND (newer.reviewed_at > cr.reviewed_at
				OR (newer.reviewed_at = cr.reviewed_at AND newer.id > cr.id))
		)`, userID, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build latest reviews query: %w", err)
	}
	var reviews []models.CardReview
	if err := sqlx.SelectContext(ctx, q, &reviews, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get latest reviews: %w", err)
	}
	for i := range reviews {
		latest[reviews[i].CardID] = &reviews[i]
	}
	return latest, nil
}

// ListByCardsSince returns a user's reviews of the given cards at or after since
func (r *ReviewRepository) ListByCardsSince(ctx context.Context, q Queryer, userID int64, cardIDs []int64, since time.Time) ([]models.CardReview, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+reviewColumns+`
		FROM card_reviews cr
		WHERE cr.user_id = ? AND cr.card_id IN (?) AND cr.reviewed_at >= ?
		ORDER BY cr.reviewed_at, cr.id`, userID, cardIDs, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to build reviews query: %w", err)
	}
	var reviews []models.CardReview
	if err := sqlx.SelectContext(ctx, q, &reviews, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// ListBySessions returns the reviews recorded against the given sessions
func (r *ReviewRepository) ListBySessions(ctx context.Context, q Queryer, sessionIDs []int64) ([]models.CardReview, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+reviewColumns+`
		FROM card_reviews cr
		WHERE cr.session_id IN (?)
		ORDER BY cr.reviewed_at, cr.id`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build session reviews query: %w", err)
	}
	var reviews []models.CardReview
	if err := sqlx.SelectContext(ctx, q, &reviews, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list session reviews: %w", err)
	}
	return reviews, nil
}

// History returns every review of a card by a user, newest first
func (r *ReviewRepository) History(ctx context.Context, q Queryer, userID, cardID int64) ([]models.CardReview, error) {
	reviews := []models.CardReview{}
	query := q.Rebind(`SELECT ` + reviewColumns + `
		FROM card_reviews cr
		WHERE cr.user_id = ? AND cr.card_id = ?
		ORDER BY cr.reviewed_at DESC, cr.id DESC`)
	if err := sqlx.SelectContext(ctx, q, &reviews, query, userID, cardID); err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	return reviews, nil
}

// ListByUserSince returns all reviews by a user at or after since
func (r *ReviewRepository) ListByUserSince(ctx context.Context, q Queryer, userID int64, since time.Time) ([]models.CardReview, error) {
	var reviews []models.CardReview
	query := q.Rebind(`SELECT ` + reviewColumns + `
		FROM card_reviews cr
		WHERE cr.user_id = ? AND cr.reviewed_at >= ?
		ORDER BY cr.reviewed_at, cr.id`)
	if err := sqlx.SelectContext(ctx, q, &reviews, query, userID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list user reviews: %w", err)
	}
	return reviews, nil
}

// CountLearned counts distinct cards the user ever answered with quality 3 or more
func (r *ReviewRepository) CountLearned(ctx context.Context, q Queryer, userID int64) (int, error) {
	var n int
	query := q.Rebind(`SELECT COUNT(DISTINCT card_id) FROM card_reviews WHERE user_id = ? AND response_quality >= 3`)
	if err := sqlx.GetContext(ctx, q, &n, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count learned cards: %w", err)
	}
	return n, nil
}

// CountByUser counts every review a user recorded
func (r *ReviewRepository) CountByUser(ctx context.Context, q Queryer, userID int64) (int, error) {
	var n int
	query := q.Rebind(`SELECT COUNT(*) FROM card_reviews WHERE user_id = ?`)
	if err := sqlx.GetContext(ctx, q, &n, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
