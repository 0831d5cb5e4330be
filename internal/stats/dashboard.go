package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/example/flashpod/internal/session"
	"github.com/example/flashpod/pkg/models"
)

// DashboardStats holds the four headline metrics of a user
type DashboardStats struct {
	CardsLearned   int             `json:"cards_learned"`
	RetentionRate  int             `json:"retention_rate"`
	TotalReviews   int             `json:"total_reviews"`
	StudyTimeHours float64         `json:"study_time_hours"`
	Formatted      FormattedTotals `json:"formatted"`
}

// DetailedStats is the dashboard with retention over a chosen window
type DetailedStats struct {
	CardsLearned   int     `json:"cards_learned"`
	RetentionRate  int     `json:"retention_rate"`
	TotalReviews   int     `json:"total_reviews"`
	StudyTimeHours float64 `json:"study_time_hours"`
	TimeframeDays  int     `json:"timeframe_days"`
}

// FormattedTotals are the dashboard metrics ready for display
type FormattedTotals struct {
	CardsLearned  string `json:"cards_learned"`
	RetentionRate string `json:"retention_rate"`
	TotalReviews  string `json:"total_reviews"`
	StudyTime     string `json:"study_time"`
}

func NewDashboardStats(learned, retention, reviews int, hours float64) DashboardStats {
	return DashboardStats{
		CardsLearned:   learned,
		RetentionRate:  retention,
		TotalReviews:   reviews,
		StudyTimeHours: hours,
		Formatted: FormattedTotals{
			CardsLearned:  fmt.Sprintf("%d", learned),
			RetentionRate: fmt.Sprintf("%d%%", retention),
			TotalReviews:  FormatLargeNumber(reviews),
			StudyTime:     FormatStudyTime(hours),
		},
	}
}

// FormatLargeNumber abbreviates counts: 1200 -> "1.2k", 2500000 -> "2.5M"
func FormatLargeNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatStudyTime renders hours as "2.3h", or whole minutes below one hour
func FormatStudyTime(hours float64) string {
	if hours >= 1 {
		return fmt.Sprintf("%.1fh", hours)
	}
	return fmt.Sprintf("%dm", int(hours*60))
}

// StudyTimeHours sums the active time of completed sessions, in hours with
// one decimal.
func StudyTimeHours(sessions []models.StudySession) float64 {
	total := 0.0
	for i := range sessions {
		total += session.DurationMinutes(&sessions[i])
	}
	return math.Round(total/60*10) / 10
}

// PodStudyStats summarizes a pod's recent sessions
type PodStudyStats struct {
	TotalSessions         int        `json:"total_sessions"`
	TotalCardsStudied     int        `json:"total_cards_studied"`
	AverageAccuracy       float64    `json:"average_accuracy"`
	TotalStudyTimeMinutes float64    `json:"total_study_time_minutes"`
	RetentionRate         int        `json:"retention_rate"`
	LastStudied           *time.Time `json:"last_studied"`
}

// SummarizePod aggregates sessions (already limited to the window) and the
// reviews recorded against them.
func SummarizePod(sessions []models.StudySession, reviews []models.CardReview) PodStudyStats {
	st := PodStudyStats{TotalSessions: len(sessions)}
	correct := 0
	for i := range sessions {
		s := &sessions[i]
		st.TotalCardsStudied += s.CardsStudied
		correct += s.CardsCorrect
		st.TotalStudyTimeMinutes += session.DurationMinutes(s)
		if st.LastStudied == nil || s.StartedAt.After(*st.LastStudied) {
			started := s.StartedAt
			st.LastStudied = &started
		}
	}
	if st.TotalCardsStudied > 0 {
		st.AverageAccuracy = math.Round(float64(correct)/float64(st.TotalCardsStudied)*1000) / 10
	}
	st.TotalStudyTimeMinutes = math.Round(st.TotalStudyTimeMinutes*100) / 100
	st.RetentionRate = PooledRetention(sessions, reviews)
	return st
}
