package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashpod/internal/timezone"
	"github.com/example/flashpod/pkg/models"
)

// 20:00 on 2024-06-10 in New York
var now = time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)

func newYork() *timezone.Normalizer {
	return timezone.New("America/New_York", nil).WithClock(func() time.Time { return now })
}

func reviewDue(cardID int64, quality int, next time.Time) *models.CardReview {
	return &models.CardReview{CardID: cardID, Quality: quality, NextReviewDate: &next}
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestDueEmptySet(t *testing.T) {
	info := Due(nil, nil, newYork())
	assert.Zero(t, info.CardsDueNow)
	assert.Nil(t, info.NextReviewAt)
	assert.Zero(t, info.CardsAtNextSession)
}

func TestDueNeverReviewedCountsAsDue(t *testing.T) {
	tz := newYork()
	info := Due(ids(3), map[int64]*models.CardReview{}, tz)
	assert.Equal(t, 3, info.CardsDueNow)
	require.NotNil(t, info.NextReviewAt)
	assert.True(t, info.NextReviewAt.Equal(now), "reference is now when nothing is strictly overdue")
	assert.Equal(t, 3, info.CardsAtNextSession)
	assert.False(t, info.Overdue)
}

func TestDueLaterTodayIsNotOverdue(t *testing.T) {
	tz := newYork()
	// 23:00 on the 10th in New York, three hours after now
	laterTonight := time.Date(2024, 6, 11, 3, 0, 0, 0, time.UTC)
	latest := map[int64]*models.CardReview{1: reviewDue(1, 4, laterTonight)}

	info := Due(ids(2), latest, tz)
	assert.Equal(t, 2, info.CardsDueNow)
	assert.Equal(t, 2, info.CardsAtNextSession)
	require.NotNil(t, info.NextReviewAt)
	assert.True(t, info.NextReviewAt.Equal(now), "reference falls back to now")
	assert.False(t, info.NextReviewAt.After(now))
	assert.False(t, info.Overdue)
}

func TestDueComparesLocalCalendarDates(t *testing.T) {
	tz := newYork()
	// 03:00 UTC on the 11th is 23:00 on the 10th in New York: due today,
	// although the instant is still in the future.
	laterTonight := time.Date(2024, 6, 11, 3, 0, 0, 0, time.UTC)
	// 05:00 UTC on the 11th is 01:00 on the 11th in New York: tomorrow.
	tomorrow := time.Date(2024, 6, 11, 5, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

	latest := map[int64]*models.CardReview{
		1: reviewDue(1, 4, laterTonight),
		2: reviewDue(2, 4, tomorrow),
		3: reviewDue(3, 2, lastWeek),
	}
	info := Due(ids(3), latest, tz)
	assert.Equal(t, 2, info.CardsDueNow)
	require.NotNil(t, info.NextReviewAt)
	assert.True(t, info.NextReviewAt.Equal(lastWeek), "earliest overdue date is reported")
	assert.True(t, info.Overdue)
}

func TestDueNextSession(t *testing.T) {
	tz := newYork()
	d1 := time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC)
	d1Evening := time.Date(2024, 6, 12, 23, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 6, 20, 14, 0, 0, 0, time.UTC)

	latest := map[int64]*models.CardReview{
		1: reviewDue(1, 4, d1Evening),
		2: reviewDue(2, 4, d1),
		3: reviewDue(3, 5, d2),
	}
	info := Due(ids(3), latest, tz)
	assert.Zero(t, info.CardsDueNow)
	require.NotNil(t, info.NextReviewAt)
	assert.True(t, info.NextReviewAt.Equal(d1))
	assert.Equal(t, "America/New_York", info.NextReviewAt.Location().String())
	assert.Equal(t, 2, info.CardsAtNextSession)
	assert.False(t, info.Overdue)
}

func TestDueUnscheduledReviewCountsAsDue(t *testing.T) {
	latest := map[int64]*models.CardReview{1: {CardID: 1, Quality: 3}}
	info := Due(ids(1), latest, newYork())
	assert.Equal(t, 1, info.CardsDueNow)
}

func TestSimpleSpacedDeckScenario(t *testing.T) {
	// Ten cards, four reviewed in the window (three passing), six never reviewed.
	tz := newYork()
	future := now.AddDate(0, 0, 5)
	past := now.AddDate(0, 0, -2)
	reviews := []models.CardReview{
		{CardID: 1, Quality: 4},
		{CardID: 2, Quality: 3},
		{CardID: 3, Quality: 5},
		{CardID: 4, Quality: 1},
	}
	latest := map[int64]*models.CardReview{
		1: reviewDue(1, 4, future),
		2: reviewDue(2, 3, future),
		3: reviewDue(3, 5, future),
		4: reviewDue(4, 1, past),
	}

	assert.Equal(t, 75, StrategyFor(models.ModeSimpleSpaced).Retention(reviews))
	assert.Equal(t, 7, Due(ids(10), latest, tz).CardsDueNow)
}

func TestUniqueCardRecallCountsCardsNotEvents(t *testing.T) {
	reviews := []models.CardReview{
		{CardID: 1, Quality: 1},
		{CardID: 1, Quality: 1},
		{CardID: 1, Quality: 4},
		{CardID: 2, Quality: 2},
	}
	assert.Equal(t, 50, UniqueCardRecall{}.Retention(reviews))
	assert.Zero(t, UniqueCardRecall{}.Retention(nil))
}

func TestQualityAverage(t *testing.T) {
	reviews := []models.CardReview{
		{CardID: 1, Quality: 1},
		{CardID: 2, Quality: 2},
		{CardID: 3, Quality: 3},
		{CardID: 4, Quality: 4},
	}
	assert.Equal(t, 62, QualityAverage{}.Retention(reviews)) // 62.5 rounds to even
	assert.Equal(t, 100, QualityAverage{}.Retention([]models.CardReview{{Quality: 5}, {Quality: 4}}))
	assert.Zero(t, QualityAverage{}.Retention(nil))
	assert.IsType(t, QualityAverage{}, StrategyFor(models.ModeFullSpaced))
	assert.IsType(t, UniqueCardRecall{}, StrategyFor(models.ModeBasic))
}

func TestRetentionIsDeterministic(t *testing.T) {
	reviews := []models.CardReview{{CardID: 1, Quality: 3}, {CardID: 2, Quality: 1}, {CardID: 3, Quality: 4}}
	for _, mode := range []models.Mode{models.ModeBasic, models.ModeSimpleSpaced, models.ModeFullSpaced} {
		s := StrategyFor(mode)
		assert.Equal(t, s.Retention(reviews), s.Retention(reviews))
	}
}

func TestPooledRetention(t *testing.T) {
	simpleID := int64(2)
	otherID := int64(3)
	sessions := []models.StudySession{
		{ID: 1, Mode: models.ModeFullSpaced, CardsStudied: 10, CardsCorrect: 7},
		{ID: 2, Mode: models.ModeSimpleSpaced, CardsStudied: 99, CardsCorrect: 99},
		{ID: 3, Mode: models.ModeBasic, CardsStudied: 40, CardsCorrect: 0},
	}
	reviews := []models.CardReview{
		{CardID: 1, Quality: 4, SessionID: &simpleID},
		{CardID: 2, Quality: 3, SessionID: &simpleID},
		{CardID: 3, Quality: 5, SessionID: &simpleID},
		{CardID: 4, Quality: 2, SessionID: &simpleID},
		{CardID: 5, Quality: 1, SessionID: &simpleID},
		{CardID: 6, Quality: 5, SessionID: &otherID},
		{CardID: 7, Quality: 5},
	}
	assert.Equal(t, 67, PooledRetention(sessions, reviews))
	assert.Zero(t, PooledRetention(nil, nil))
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(3, 0))
	assert.Equal(t, 100, Percent(4, 4))
	assert.Equal(t, 33, Percent(1, 3))
}
