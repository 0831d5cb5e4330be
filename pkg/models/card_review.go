package models

import "time"

// CardReview records one review event. Rows are append-only: the latest
// review for a card is found by querying, never by updating an older row.
type CardReview struct {
	ID             int64      `json:"id" db:"id"`
	CardID         int64      `json:"card_id" db:"card_id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	SessionID      *int64     `json:"session_id" db:"session_id"`
	ReviewedAt     time.Time  `json:"reviewed_at" db:"reviewed_at"`
	Quality        int        `json:"response_quality" db:"response_quality"` // 1-5 (1 = again, 5 = easy)
	ResponseTimeMs *int       `json:"response_time" db:"response_time"`
	EaseFactor     float64    `json:"ease_factor" db:"ease_factor"`
	IntervalDays   int        `json:"interval_days" db:"interval_days"`
	NextReviewDate *time.Time `json:"next_review_date" db:"next_review_date"`
	Repetitions    int        `json:"repetitions" db:"repetitions"`
}
