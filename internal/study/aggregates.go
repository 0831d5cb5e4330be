package study

import (
	"context"

	"github.com/example/flashpod/internal/apperr"
	"github.com/example/flashpod/internal/stats"
	"github.com/example/flashpod/pkg/models"
)

// podStatsDays is the look-back of the pod study summary
const podStatsDays = 30

// GetDueInfo reports how many cards of a deck or pod are due today in the
// display zone, and when the next review falls otherwise
func (e *Engine) GetDueInfo(ctx context.Context, userID int64, scope models.Scope) (stats.DueInfo, error) {
	const op = "study.GetDueInfo"
	ids, err := e.cardIDs(ctx, e.store.DB, userID, scope)
	if err != nil {
		return stats.DueInfo{}, apperr.Store(op, err)
	}
	latest, err := e.store.Reviews.LatestByCards(ctx, e.store.DB, userID, ids)
	if err != nil {
		return stats.DueInfo{}, apperr.Store(op, err)
	}
	return stats.Due(ids, latest, e.tz), nil
}

// GetRetention applies mode's retention formula to the user's reviews of
// the deck or pod within the last windowDays. Zero selects the default
// window.
func (e *Engine) GetRetention(ctx context.Context, userID int64, scope models.Scope, mode models.Mode, windowDays int) (int, error) {
	const op = "study.GetRetention"
	mode, err := models.ParseMode(string(mode))
	if err != nil {
		return 0, apperr.Validation(op, "%v", err)
	}
	days, err := e.window(windowDays)
	if err != nil {
		return 0, err
	}
	ids, err := e.cardIDs(ctx, e.store.DB, userID, scope)
	if err != nil {
		return 0, apperr.Store(op, err)
	}
	since := e.tz.NowUTC().AddDate(0, 0, -days)
	reviews, err := e.store.Reviews.ListByCardsSince(ctx, e.store.DB, userID, ids, since)
	if err != nil {
		return 0, apperr.Store(op, err)
	}
	return stats.StrategyFor(mode).Retention(reviews), nil
}

// PodRetention pools the retention of a pod's recent sessions across modes
func (e *Engine) PodRetention(ctx context.Context, userID, podID int64, windowDays int) (int, error) {
	const op = "study.PodRetention"
	days, err := e.window(windowDays)
	if err != nil {
		return 0, err
	}
	sessions, reviews, err := e.podHistory(ctx, userID, podID, days)
	if err != nil {
		return 0, apperr.Store(op, err)
	}
	return stats.PooledRetention(sessions, reviews), nil
}

// PodStudyStats summarizes the user's sessions on a pod over the last 30 days
func (e *Engine) PodStudyStats(ctx context.Context, userID, podID int64) (stats.PodStudyStats, error) {
	sessions, reviews, err := e.podHistory(ctx, userID, podID, podStatsDays)
	if err != nil {
		return stats.PodStudyStats{}, apperr.Store("study.PodStudyStats", err)
	}
	return stats.SummarizePod(sessions, reviews), nil
}

func (e *Engine) podHistory(ctx context.Context, userID, podID int64, days int) ([]models.StudySession, []models.CardReview, error) {
	if _, err := e.store.Decks.GetOwnedPod(ctx, e.store.DB, userID, podID); err != nil {
		return nil, nil, err
	}
	since := e.tz.NowUTC().AddDate(0, 0, -days)
	sessions, err := e.store.Sessions.ListByPodSince(ctx, e.store.DB, userID, podID, since)
	if err != nil {
		return nil, nil, err
	}
	var simple []int64
	for _, s := range sessions {
		if s.Mode == models.ModeSimpleSpaced {
			simple = append(simple, s.ID)
		}
	}
	reviews, err := e.store.Reviews.ListBySessions(ctx, e.store.DB, simple)
	if err != nil {
		return nil, nil, err
	}
	return sessions, reviews, nil
}

// Dashboard returns the user's headline metrics
func (e *Engine) Dashboard(ctx context.Context, userID int64) (stats.DashboardStats, error) {
	d, err := e.headline(ctx, userID, e.windowDays)
	if err != nil {
		return stats.DashboardStats{}, apperr.Store("study.Dashboard", err)
	}
	return stats.NewDashboardStats(d.CardsLearned, d.RetentionRate, d.TotalReviews, d.StudyTimeHours), nil
}

// DetailedStats is Dashboard with retention over the last days days; 0
// selects the default window
func (e *Engine) DetailedStats(ctx context.Context, userID int64, days int) (stats.DetailedStats, error) {
	days, err := e.window(days)
	if err != nil {
		return stats.DetailedStats{}, err
	}
	d, err := e.headline(ctx, userID, days)
	if err != nil {
		return stats.DetailedStats{}, apperr.Store("study.DetailedStats", err)
	}
	return d, nil
}

func (e *Engine) headline(ctx context.Context, userID int64, days int) (stats.DetailedStats, error) {
	d := stats.DetailedStats{TimeframeDays: days}
	if _, err := e.store.Users.GetByID(ctx, e.store.DB, userID); err != nil {
		return d, err
	}
	var err error
	if d.CardsLearned, err = e.store.Reviews.CountLearned(ctx, e.store.DB, userID); err != nil {
		return d, err
	}
	if d.TotalReviews, err = e.store.Reviews.CountByUser(ctx, e.store.DB, userID); err != nil {
		return d, err
	}
	recent, err := e.store.Reviews.ListByUserSince(ctx, e.store.DB, userID, e.tz.NowUTC().AddDate(0, 0, -days))
	if err != nil {
		return d, err
	}
	completed, err := e.store.Sessions.ListCompletedByUser(ctx, e.store.DB, userID)
	if err != nil {
		return d, err
	}
	d.RetentionRate = stats.UniqueCardRecall{}.Retention(recent)
	d.StudyTimeHours = stats.StudyTimeHours(completed)
	return d, nil
}

// DueSummary is the due-card picture across every deck the user owns
func (e *Engine) DueSummary(ctx context.Context, userID int64) (stats.DueInfo, error) {
	const op = "study.DueSummary"
	ids, err := e.store.Cards.ActiveIDsByUser(ctx, e.store.DB, userID)
	if err != nil {
		return stats.DueInfo{}, apperr.Store(op, err)
	}
	latest, err := e.store.Reviews.LatestByCards(ctx, e.store.DB, userID, ids)
	if err != nil {
		return stats.DueInfo{}, apperr.Store(op, err)
	}
	return stats.Due(ids, latest, e.tz), nil
}
