package spaced_repetition

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/flashpod/pkg/models"
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Answers at or above this quality count as a successful recall
	PassThreshold int
	// Ease factor never drops below this value
	MinEaseFactor float64
	// Ease factor of a card that has never been reviewed
	DefaultEaseFactor float64
	// Intervals for the first and second successful repetition, in days
	FirstInterval  int
	SecondInterval int
}

// NewSM2 creates a new SM2 instance with the classic parameters
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:     3,
		MinEaseFactor:     1.3,
		DefaultEaseFactor: 2.5,
		FirstInterval:     1,
		SecondInterval:    6,
	}
}

// QualityResponse represents the quality of a response, 1 (failed) to 5 (easiest)
type QualityResponse int

const (
	// Forgotten, had to see the answer
	QualityAgain QualityResponse = 1
	// Wrong, but the answer felt familiar
	QualityHard QualityResponse = 2
	// Correct with significant effort
	QualityGood QualityResponse = 3
	// Correct after some hesitation
	QualityEasy QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// State is the part of a review that carries into the next one
type State struct {
	Repetitions  int     `json:"repetitions"`
	IntervalDays int     `json:"interval_days"`
	EaseFactor   float64 `json:"ease_factor"`
}

// Schedule is the outcome of a review
type Schedule struct {
	State
	NextReviewDate time.Time `json:"next_review_date"`
}

// InitialState is the state of a card that has never been reviewed
func (sm *SM2) InitialState() State {
	return State{Repetitions: 0, IntervalDays: 1, EaseFactor: sm.DefaultEaseFactor}
}

// StateFromReview extracts the carried-over state of a stored review.
// A nil review yields the initial state.
func (sm *SM2) StateFromReview(r *models.CardReview) State {
	if r == nil {
		return sm.InitialState()
	}
	return State{Repetitions: r.Repetitions, IntervalDays: r.IntervalDays, EaseFactor: r.EaseFactor}
}

// ValidateQuality rejects qualities outside 1..5
func (sm *SM2) ValidateQuality(quality int) error {
	if quality < int(QualityAgain) || quality > int(QualityPerfect) {
		return fmt.Errorf("quality must be between %d and %d, got %d", QualityAgain, QualityPerfect, quality)
	}
	return nil
}

// IsSuccess reports whether quality counts as a successful recall
func (sm *SM2) IsSuccess(quality int) bool {
	return quality >= sm.PassThreshold
}

// ComputeNextSchedule applies one review of the given quality to previous.
// It has no side effects; now is converted to UTC.
func (sm *SM2) ComputeNextSchedule(previous State, quality int, now time.Time) (Schedule, error) {
	if err := sm.ValidateQuality(quality); err != nil {
		return Schedule{}, err
	}

	prevInterval := previous.IntervalDays
	if prevInterval < 1 {
		prevInterval = 1
	}
	prevEF := previous.EasinessOrDefault(sm.DefaultEaseFactor)

	var next State
	if sm.IsSuccess(quality) {
		switch previous.Repetitions {
		case 0:
			next.IntervalDays = sm.FirstInterval
		case 1:
			next.IntervalDays = sm.SecondInterval
		default:
			next.IntervalDays = int(math.Round(float64(prevInterval) * prevEF))
		}
		next.Repetitions = previous.Repetitions + 1
	} else {
		// Failed recall starts the card over
		next.Repetitions = 0
		next.IntervalDays = 1
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}

	q := 5.0 - float64(quality)
	next.EaseFactor = math.Max(sm.MinEaseFactor, prevEF+(0.1-q*(0.08+q*0.02)))

	return Schedule{
		State:          next,
		NextReviewDate: now.UTC().AddDate(0, 0, next.IntervalDays),
	}, nil
}

// EasinessOrDefault guards against unset ease factors in stored rows
func (s State) EasinessOrDefault(def float64) float64 {
	if s.EaseFactor <= 0 {
		return def
	}
	return s.EaseFactor
}

// Candidate is a card together with its latest review, if any
type Candidate struct {
	Card   models.Card
	Latest *models.CardReview
}

// Prioritize orders cards for a spaced study run:
// 1. cards that have never been reviewed
// 2. cards with the lowest ease factor (hardest cards)
// 3. cards that are the most overdue
// Remaining ties keep their input order.
func (sm *SM2) Prioritize(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Latest, out[j].Latest
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		if a.EaseFactor != b.EaseFactor {
			return a.EaseFactor < b.EaseFactor
		}
		switch {
		case a.NextReviewDate != nil && b.NextReviewDate != nil:
			return a.NextReviewDate.Before(*b.NextReviewDate)
		case a.NextReviewDate == nil && b.NextReviewDate != nil:
			return true
		}
		return false
	})

	return out
}
