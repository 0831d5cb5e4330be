// Package session is the study session state machine.
//
//	Active --Pause--> Paused --Resume--> Active --Complete--> Completed
//
// Resume is lazy: every path that loads a session must call Resume before
// using it, so a paused session becomes active again on its next read.
// Transitions mutate the session in place and never touch storage.
package session

import (
	"math"
	"time"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/pkg/models"
)

type State string

const (
	Active    State = "active"
	Paused    State = "paused"
	Completed State = "completed"
)

// StateOf derives the state from the session's timestamps
func StateOf(s *models.StudySession) State {
	switch {
	case s.EndedAt != nil:
		return Completed
	case s.PausedAt != nil:
		return Paused
	}
	return Active
}

// New builds an active session for scope. Mode is fixed here for the
// session's lifetime.
func New(userID int64, scope models.Scope, mode models.Mode, now time.Time) (*models.StudySession, error) {
	s := &models.StudySession{
		UserID:      userID,
		StartedAt:   now.UTC(),
		SessionType: "review",
		Mode:        mode,
	}
	id := scope.ID
	switch scope.Type {
	case models.ScopeDeck:
		s.DeckID = &id
	case models.ScopePod:
		s.PodID = &id
	default:
		return nil, apperr.Validation("session.New", "scope type must be deck or pod, got %q", scope.Type)
	}
	if err := ValidateScope(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateScope enforces that exactly one of deck and pod is set
func ValidateScope(s *models.StudySession) error {
	if (s.DeckID == nil) == (s.PodID == nil) {
		return apperr.Validation("session.ValidateScope", "exactly one of deck_id and pod_id must be set")
	}
	return nil
}

// Pause moves an active session to paused. Pausing a paused session is a
// no-op; pausing a completed one is a conflict.
func Pause(s *models.StudySession, now time.Time) (bool, error) {
	switch StateOf(s) {
	case Completed:
		return false, apperr.Conflict("session.Pause", "session %d is already completed", s.ID)
	case Paused:
		return false, nil
	}
	t := now.UTC()
	s.PausedAt = &t
	return true, nil
}

// Resume folds the time spent paused into TotalPausedMinutes and clears
// PausedAt. It returns the minutes added and whether anything changed.
func Resume(s *models.StudySession, now time.Time) (int, bool) {
	if StateOf(s) != Paused {
		return 0, false
	}
	elapsed := now.Sub(*s.PausedAt).Minutes()
	minutes := 0
	if elapsed > 0 {
		minutes = int(math.RoundToEven(elapsed))
	}
	s.TotalPausedMinutes += minutes
	s.PausedAt = nil
	return minutes, true
}

// UpdateProgress overwrites the counters that are provided. Only active
// sessions accept progress.
func UpdateProgress(s *models.StudySession, cardsStudied, cardsCorrect *int) error {
	if st := StateOf(s); st != Active {
		return apperr.Conflict("session.UpdateProgress", "session %d is %s", s.ID, st)
	}
	if cardsStudied != nil {
		if *cardsStudied < 0 {
			return apperr.Validation("session.UpdateProgress", "cards_studied must not be negative")
		}
		s.CardsStudied = *cardsStudied
	}
	if cardsCorrect != nil {
		if *cardsCorrect < 0 {
			return apperr.Validation("session.UpdateProgress", "cards_correct must not be negative")
		}
		s.CardsCorrect = *cardsCorrect
	}
	if s.CardsCorrect > s.CardsStudied {
		return apperr.Validation("session.UpdateProgress", "cards_correct (%d) exceeds cards_studied (%d)", s.CardsCorrect, s.CardsStudied)
	}
	return nil
}

// Complete ends the session. A paused session is resumed first so the pause
// counts towards TotalPausedMinutes. Completing twice succeeds without change.
func Complete(s *models.StudySession, now time.Time) bool {
	if StateOf(s) == Completed {
		return false
	}
	Resume(s, now)
	t := now.UTC()
	s.EndedAt = &t
	return true
}

// DurationMinutes is the active study time of a completed session, rounded
// to two decimals and floored at zero. Sessions still running report 0.
func DurationMinutes(s *models.StudySession) float64 {
	if s.EndedAt == nil {
		return 0
	}
	active := s.EndedAt.Sub(s.StartedAt).Minutes() - float64(s.TotalPausedMinutes)
	if active < 0 {
		return 0
	}
	return math.Round(active*100) / 100
}

// Accuracy is cards_correct/cards_studied as a percentage with two decimals
func Accuracy(s *models.StudySession) float64 {
	if s.CardsStudied == 0 {
		return 0
	}
	return math.Round(float64(s.CardsCorrect)/float64(s.CardsStudied)*10000) / 100
}
