package models

import (
	"fmt"
	"time"
)

// Mode selects the scheduling and retention rules applied to a session's history
type Mode string

const (
	ModeBasic        Mode = "basic"
	ModeSimpleSpaced Mode = "simple-spaced"
	ModeFullSpaced   Mode = "full-spaced"
)

// ParseMode validates a mode tag. An empty string selects basic mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeBasic, nil
	case ModeBasic, ModeSimpleSpaced, ModeFullSpaced:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown study mode %q", s)
}

// ScopeType names the container a session or card set is drawn from
type ScopeType string

const (
	ScopeDeck ScopeType = "deck"
	ScopePod  ScopeType = "pod"
)

// Scope identifies a deck or a pod
type Scope struct {
	Type ScopeType `json:"type"`
	ID   int64     `json:"id"`
}

// DeckScope returns the scope of a single deck
func DeckScope(id int64) Scope { return Scope{Type: ScopeDeck, ID: id} }

// PodScope returns the scope of a pod
func PodScope(id int64) Scope { return Scope{Type: ScopePod, ID: id} }

// StudySession tracks one timed study activity over a deck or a pod.
// Exactly one of DeckID and PodID is set.
type StudySession struct {
	ID                 int64      `json:"id" db:"id"`
	UserID             int64      `json:"user_id" db:"user_id"`
	DeckID             *int64     `json:"deck_id" db:"deck_id"`
	PodID              *int64     `json:"pod_id" db:"pod_id"`
	StartedAt          time.Time  `json:"started_at" db:"started_at"`
	EndedAt            *time.Time `json:"ended_at" db:"ended_at"`
	PausedAt           *time.Time `json:"paused_at" db:"paused_at"`
	TotalPausedMinutes int        `json:"total_paused_minutes" db:"total_paused_minutes"`
	CardsStudied       int        `json:"cards_studied" db:"cards_studied"`
	CardsCorrect       int        `json:"cards_correct" db:"cards_correct"`
	SessionType        string     `json:"session_type" db:"session_type"`
	Mode               Mode       `json:"mode" db:"mode"`
}

// Scope returns the deck or pod the session belongs to
func (s *StudySession) Scope() Scope {
	if s.DeckID != nil {
		return DeckScope(*s.DeckID)
	}
	if s.PodID != nil {
		return PodScope(*s.PodID)
	}
	return Scope{}
}
