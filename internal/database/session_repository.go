package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/pkg/models"
)

const sessionColumns = `id, user_id, deck_id, pod_id, started_at, ended_at, paused_at,
	total_paused_minutes, cards_studied, cards_correct, session_type, mode`

// SessionRepository handles database operations for study sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Create inserts a new session. A second unfinished session for the same
// user and scope fails with a unique violation, see IsUniqueViolation.
func (r *SessionRepository) Create(ctx context.Context, q Queryer, s *models.StudySession) error {
	query := q.Rebind(`
		INSERT INTO study_sessions (
			user_id, deck_id, pod_id, started_at, ended_at, paused_at,
			total_paused_minutes, cards_studied, cards_correct, session_type, mode
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		s.UserID,
		s.DeckID,
		s.PodID,
		s.StartedAt.UTC(),
		utcPtr(s.EndedAt),
		utcPtr(s.PausedAt),
		s.TotalPausedMinutes,
		s.CardsStudied,
		s.CardsCorrect,
		s.SessionType,
		s.Mode,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create study session: %w", err)
	}
	return nil
}

// GetOwned returns a session that belongs to userID
func (r *SessionRepository) GetOwned(ctx context.Context, q Queryer, userID, sessionID int64) (*models.StudySession, error) {
	var s models.StudySession
	query := q.Rebind(`SELECT ` + sessionColumns + ` FROM study_sessions WHERE id = ? AND user_id = ?`)
	err := sqlx.GetContext(ctx, q, &s, query, sessionID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("sessions.GetOwned", "session %d not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study session: %w", err)
	}
	return &s, nil
}

// FindActive returns the unfinished session of a user on scope, or nil
func (r *SessionRepository) FindActive(ctx context.Context, q Queryer, userID int64, scope models.Scope) (*models.StudySession, error) {
	column := "deck_id"
	if scope.Type == models.ScopePod {
		column = "pod_id"
	}
	var s models.StudySession
	query := q.Rebind(`SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE user_id = ? AND ` + column + ` = ? AND ended_at IS NULL
		ORDER BY started_at DESC, id DESC
		LIMIT 1`)
	err := sqlx.GetContext(ctx, q, &s, query, userID, scope.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return &s, nil
}

// Update stores the mutable state of a session
func (r *SessionRepository) Update(ctx context.Context, q Queryer, s *models.StudySession) error {
	query := q.Rebind(`UPDATE study_sessions SET
			ended_at = ?,
			paused_at = ?,
			total_paused_minutes = ?,
			cards_studied = ?,
			cards_correct = ?
		WHERE id = ? AND user_id = ?`)
	res, err := q.ExecContext(ctx, query,
		utcPtr(s.EndedAt),
		utcPtr(s.PausedAt),
		s.TotalPausedMinutes,
		s.CardsStudied,
		s.CardsCorrect,
		s.ID,
		s.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update study session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("sessions.Update", "session %d not found", s.ID)
	}
	return nil
}

// ListByPodSince returns a user's sessions on a pod started at or after since
func (r *SessionRepository) ListByPodSince(ctx context.Context, q Queryer, userID, podID int64, since time.Time) ([]models.StudySession, error) {
	var sessions []models.StudySession
	query := q.Rebind(`SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE user_id = ? AND pod_id = ? AND started_at >= ?
		ORDER BY started_at, id`)
	if err := sqlx.SelectContext(ctx, q, &sessions, query, userID, podID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list pod sessions: %w", err)
	}
	return sessions, nil
}

// ListCompletedByUser returns every finished session of a user
func (r *SessionRepository) ListCompletedByUser(ctx context.Context, q Queryer, userID int64) ([]models.StudySession, error) {
	var sessions []models.StudySession
	query := q.Rebind(`SELECT ` + sessionColumns + `
		FROM study_sessions
		WHERE user_id = ? AND ended_at IS NOT NULL
		ORDER BY started_at, id`)
	if err := sqlx.SelectContext(ctx, q, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}
	return sessions, nil
}
