package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashpod/pkg/models"
)

func completed(start time.Time, minutes, paused, studied, correct int, mode models.Mode) models.StudySession {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return models.StudySession{
		StartedAt:          start,
		EndedAt:            &end,
		TotalPausedMinutes: paused,
		CardsStudied:       studied,
		CardsCorrect:       correct,
		Mode:               mode,
	}
}

func TestFormatLargeNumber(t *testing.T) {
	assert.Equal(t, "999", FormatLargeNumber(999))
	assert.Equal(t, "1.2k", FormatLargeNumber(1234))
	assert.Equal(t, "2.5M", FormatLargeNumber(2_500_000))
}

func TestFormatStudyTime(t *testing.T) {
	assert.Equal(t, "2.3h", FormatStudyTime(2.3))
	assert.Equal(t, "2.0h", FormatStudyTime(2))
	assert.Equal(t, "1.0h", FormatStudyTime(1))
	assert.Equal(t, "45m", FormatStudyTime(0.75))
	assert.Equal(t, "0m", FormatStudyTime(0))
}

func TestNewDashboardStats(t *testing.T) {
	d := NewDashboardStats(12, 75, 1500, 0.5)
	assert.Equal(t, "12", d.Formatted.CardsLearned)
	assert.Equal(t, "75%", d.Formatted.RetentionRate)
	assert.Equal(t, "1.5k", d.Formatted.TotalReviews)
	assert.Equal(t, "30m", d.Formatted.StudyTime)
}

func TestStudyTimeHours(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	sessions := []models.StudySession{
		completed(base, 90, 10, 0, 0, models.ModeBasic),
		completed(base, 70, 0, 0, 0, models.ModeBasic),
		{StartedAt: base}, // still running
	}
	assert.Equal(t, 2.5, StudyTimeHours(sessions))
}

func TestSummarizePod(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	sessions := []models.StudySession{
		completed(base, 30, 5, 10, 7, models.ModeFullSpaced),
		completed(base.Add(24*time.Hour), 20, 0, 6, 3, models.ModeBasic),
	}
	sessions[0].ID, sessions[1].ID = 1, 2

	st := SummarizePod(sessions, nil)
	assert.Equal(t, 2, st.TotalSessions)
	assert.Equal(t, 16, st.TotalCardsStudied)
	assert.Equal(t, 62.5, st.AverageAccuracy)
	assert.Equal(t, 45.0, st.TotalStudyTimeMinutes)
	assert.Equal(t, 70, st.RetentionRate)
	require.NotNil(t, st.LastStudied)
	assert.Equal(t, base.Add(24*time.Hour), *st.LastStudied)

	empty := SummarizePod(nil, nil)
	assert.Zero(t, empty.TotalSessions)
	assert.Nil(t, empty.LastStudied)
}
