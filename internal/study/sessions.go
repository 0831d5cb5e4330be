package study

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/internal/database"
	"github.com/example/flashpod/internal/session"
	"github.com/example/flashpod/internal/spaced_repetition"
	"github.com/example/flashpod/pkg/models"
)

// SessionState is a session as seen by the client after any pending
// transition has been applied
type SessionState struct {
	Session         *models.StudySession `json:"session"`
	State           session.State        `json:"state"`
	Resumed         bool                 `json:"resumed"`
	DurationMinutes float64              `json:"duration_minutes"`
	Accuracy        float64              `json:"accuracy"`
	Cards           []models.Card        `json:"cards,omitempty"`
	TotalCards      int                  `json:"total_cards"`
}

func newSessionState(s *models.StudySession) *SessionState {
	return &SessionState{
		Session:         s,
		State:           session.StateOf(s),
		DurationMinutes: session.DurationMinutes(s),
		Accuracy:        session.Accuracy(s),
	}
}

// errLostRace means another request created the active session between our
// lookup and our insert
var errLostRace = errors.New("active session created concurrently")

// StartOrResumeSession returns the user's unfinished session on scope,
// resuming it if paused, or starts a new one in mode. An existing session
// keeps the mode it was created with. The returned state carries the cards
// to study, ordered for the session's mode.
func (e *Engine) StartOrResumeSession(ctx context.Context, userID int64, scope models.Scope, mode models.Mode) (*SessionState, error) {
	const op = "study.StartOrResumeSession"
	mode, err := models.ParseMode(string(mode))
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	var st *SessionState
	for attempt := 0; attempt < 2; attempt++ {
		err = e.store.InTx(ctx, func(tx *sqlx.Tx) error {
			var err error
			st, err = e.startOrResume(ctx, tx, userID, scope, mode)
			return err
		})
		if !errors.Is(err, errLostRace) {
			break
		}
		e.log.Debug("Lost active session race, refetching", "user_id", userID, "scope", scope.Type, "scope_id", scope.ID)
	}
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return st, nil
}

func (e *Engine) startOrResume(ctx context.Context, tx *sqlx.Tx, userID int64, scope models.Scope, mode models.Mode) (*SessionState, error) {
	const op = "study.StartOrResumeSession"
	ids, err := e.cardIDs(ctx, tx, userID, scope)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.NotFound(op, "no cards found in %s %d", scope.Type, scope.ID)
	}

	now := e.tz.NowUTC()
	s, err := e.store.Sessions.FindActive(ctx, tx, userID, scope)
	if err != nil {
		return nil, err
	}

	resumed := s != nil
	if s != nil {
		if minutes, changed := session.Resume(s, now); changed {
			if err := e.store.Sessions.Update(ctx, tx, s); err != nil {
				return nil, err
			}
			e.log.Info("Study session resumed", "session_id", s.ID, "paused_minutes", minutes)
		}
		if s.Mode != mode {
			e.log.Debug("Keeping mode of existing session", "session_id", s.ID, "mode", s.Mode, "requested", mode)
		}
	} else {
		s, err = session.New(userID, scope, mode, now)
		if err != nil {
			return nil, err
		}
		if err := e.store.Sessions.Create(ctx, tx, s); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, errLostRace
			}
			return nil, err
		}
		e.log.Info("Study session started", "session_id", s.ID, "user_id", userID, "scope", scope.Type, "scope_id", scope.ID, "mode", mode)
	}

	cards, err := e.studyQueue(ctx, tx, userID, scope, s.Mode)
	if err != nil {
		return nil, err
	}
	st := newSessionState(s)
	st.Resumed = resumed
	st.Cards = cards
	st.TotalCards = len(cards)
	return st, nil
}

// studyQueue orders the scope's cards: display order for basic review,
// SM-2 priority for the spaced modes
func (e *Engine) studyQueue(ctx context.Context, q database.Queryer, userID int64, scope models.Scope, mode models.Mode) ([]models.Card, error) {
	cards, err := e.cards(ctx, q, scope)
	if err != nil || mode == models.ModeBasic {
		return cards, err
	}

	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	latest, err := e.store.Reviews.LatestByCards(ctx, q, userID, ids)
	if err != nil {
		return nil, err
	}
	cands := make([]spaced_repetition.Candidate, len(cards))
	for i, c := range cards {
		cands[i] = spaced_repetition.Candidate{Card: c, Latest: latest[c.ID]}
	}
	for i, c := range e.sm2.Prioritize(cands) {
		cards[i] = c.Card
	}
	return cards, nil
}

// GetSession loads a session, resuming it if it was paused
func (e *Engine) GetSession(ctx context.Context, userID, sessionID int64) (*SessionState, error) {
	var st *SessionState
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		s, err := e.loadResumed(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		st = newSessionState(s)
		return nil
	})
	if err != nil {
		return nil, apperr.Store("study.GetSession", err)
	}
	return st, nil
}

func (e *Engine) loadResumed(ctx context.Context, tx *sqlx.Tx, userID, sessionID int64) (*models.StudySession, error) {
	s, err := e.store.Sessions.GetOwned(ctx, tx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, changed := session.Resume(s, e.tz.NowUTC()); changed {
		if err := e.store.Sessions.Update(ctx, tx, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// PauseSession pauses an active session. Pausing twice keeps the first
// pause time.
func (e *Engine) PauseSession(ctx context.Context, userID, sessionID int64) error {
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		s, err := e.store.Sessions.GetOwned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		changed, err := session.Pause(s, e.tz.NowUTC())
		if err != nil || !changed {
			return err
		}
		return e.store.Sessions.Update(ctx, tx, s)
	})
	if err != nil {
		return apperr.Store("study.PauseSession", err)
	}
	e.log.Debug("Study session paused", "session_id", sessionID)
	return nil
}

// UpdateSessionProgress overwrites the provided counters. A paused session
// is resumed first; a completed one rejects progress.
func (e *Engine) UpdateSessionProgress(ctx context.Context, userID, sessionID int64, cardsStudied, cardsCorrect *int) error {
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		s, err := e.loadResumed(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if err := session.UpdateProgress(s, cardsStudied, cardsCorrect); err != nil {
			return err
		}
		return e.store.Sessions.Update(ctx, tx, s)
	})
	if err != nil {
		return apperr.Store("study.UpdateSessionProgress", err)
	}
	return nil
}

// CompleteSession ends a session. Completing a completed session returns
// it unchanged.
func (e *Engine) CompleteSession(ctx context.Context, userID, sessionID int64) (*SessionState, error) {
	var st *SessionState
	err := e.store.InTx(ctx, func(tx *sqlx.Tx) error {
		s, err := e.store.Sessions.GetOwned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Complete(s, e.tz.NowUTC()) {
			if err := e.store.Sessions.Update(ctx, tx, s); err != nil {
				return err
			}
			e.log.Info("Study session completed",
				"session_id", s.ID,
				"cards_studied", s.CardsStudied,
				"cards_correct", s.CardsCorrect,
				"duration_minutes", session.DurationMinutes(s),
			)
		}
		st = newSessionState(s)
		return nil
	})
	if err != nil {
		return nil, apperr.Store("study.CompleteSession", err)
	}
	return st, nil
}
