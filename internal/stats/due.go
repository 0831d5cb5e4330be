// Package stats aggregates review history into due counts, retention
// percentages and dashboard figures. Functions here are pure; callers load
// the rows.
package stats

import (
	"time"

	"github.com/example/flashpod/internal/timezone"
	"github.com/example/flashpod/pkg/models"
)

// DueInfo answers "what is due" for a card set
type DueInfo struct {
	CardsDueNow int `json:"cards_due_now"`
	// When cards are due: the earliest review whose local date is before
	// today, or now when none is. Otherwise the earliest future review.
	NextReviewAt *time.Time `json:"next_review_at"`
	// Cards sharing NextReviewAt's local date; equals CardsDueNow when cards are due.
	CardsAtNextSession int `json:"cards_at_next_session"`
	// Set when some due card was scheduled for an earlier local date.
	Overdue bool `json:"overdue"`
}

// Due computes due information for cardIDs. latest maps a card ID to its most
// recent review for the user; absent cards have never been reviewed.
func Due(cardIDs []int64, latest map[int64]*models.CardReview, tz *timezone.Normalizer) DueInfo {
	var (
		info            DueInfo
		earliestOverdue *time.Time
		earliestAhead   *time.Time
	)
	today := tz.Today()

	for _, id := range cardIDs {
		r := latest[id]
		if r == nil || r.NextReviewDate == nil {
			info.CardsDueNow++
			continue
		}
		next := *r.NextReviewDate
		switch day := tz.LocalDate(next); {
		case day.Compare(today) < 0:
			info.CardsDueNow++
			if earliestOverdue == nil || next.Before(*earliestOverdue) {
				earliestOverdue = &next
			}
			continue
		case day == today:
			info.CardsDueNow++
			continue
		}
		if earliestAhead == nil || next.Before(*earliestAhead) {
			earliestAhead = &next
		}
	}

	switch {
	case info.CardsDueNow > 0:
		ref := tz.Now()
		if earliestOverdue != nil {
			ref = tz.ToLocal(*earliestOverdue)
			info.Overdue = true
		}
		info.NextReviewAt = &ref
		info.CardsAtNextSession = info.CardsDueNow
	case earliestAhead != nil:
		ref := tz.ToLocal(*earliestAhead)
		info.NextReviewAt = &ref
		day := tz.LocalDate(ref)
		for _, id := range cardIDs {
			if r := latest[id]; r != nil && r.NextReviewDate != nil && tz.LocalDate(*r.NextReviewDate) == day {
				info.CardsAtNextSession++
			}
		}
	}
	return info
}
