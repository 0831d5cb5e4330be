package spaced_repetition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashpod/pkg/models"
)

var reviewTime = time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)

func TestComputeNextSchedule(t *testing.T) {
	sm := NewSM2()

	tests := []struct {
		name     string
		previous State
		quality  int
		wantReps int
		wantDays int
		wantEF   float64
	}{
		{"first success", sm.InitialState(), 3, 1, 1, 2.36},
		{"second success", State{1, 1, 2.5}, 4, 2, 6, 2.5},
		{"third success grows by ease", State{2, 6, 2.5}, 5, 3, 15, 2.6},
		{"failure resets", State{5, 40, 2.2}, 1, 0, 1, 1.66},
		{"hard failure resets", State{3, 12, 2.5}, 2, 0, 1, 2.18},
		{"ease floor", State{4, 20, 1.35}, 1, 0, 1, 1.3},
		{"zero interval treated as one", State{2, 0, 2.5}, 5, 3, 3, 2.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sm.ComputeNextSchedule(tt.previous, tt.quality, reviewTime)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReps, got.Repetitions)
			assert.Equal(t, tt.wantDays, got.IntervalDays)
			assert.InDelta(t, tt.wantEF, got.EaseFactor, 1e-9)
			assert.Equal(t, reviewTime.AddDate(0, 0, tt.wantDays), got.NextReviewDate)
		})
	}
}

func TestComputeNextScheduleRejectsQuality(t *testing.T) {
	sm := NewSM2()
	for _, q := range []int{-1, 0, 6} {
		_, err := sm.ComputeNextSchedule(sm.InitialState(), q, reviewTime)
		assert.Error(t, err, "quality %d", q)
	}
}

func TestNextReviewDateIsUTC(t *testing.T) {
	sm := NewSM2()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, err := sm.ComputeNextSchedule(sm.InitialState(), 4, reviewTime.In(berlin))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.NextReviewDate.Location())
	assert.True(t, got.NextReviewDate.Equal(reviewTime.AddDate(0, 0, 1)))
}

func TestStateFromReview(t *testing.T) {
	sm := NewSM2()
	assert.Equal(t, State{0, 1, 2.5}, sm.StateFromReview(nil))

	r := &models.CardReview{Repetitions: 2, IntervalDays: 6, EaseFactor: 2.3}
	assert.Equal(t, State{2, 6, 2.3}, sm.StateFromReview(r))
}

func TestPrioritize(t *testing.T) {
	sm := NewSM2()
	early := reviewTime.AddDate(0, 0, -3)
	late := reviewTime.AddDate(0, 0, -1)

	cands := []Candidate{
		{Card: models.Card{ID: 1}, Latest: &models.CardReview{EaseFactor: 2.5, NextReviewDate: &late}},
		{Card: models.Card{ID: 2}},
		{Card: models.Card{ID: 3}, Latest: &models.CardReview{EaseFactor: 1.9, NextReviewDate: &late}},
		{Card: models.Card{ID: 4}, Latest: &models.CardReview{EaseFactor: 2.5, NextReviewDate: &early}},
		{Card: models.Card{ID: 5}},
	}

	got := sm.Prioritize(cands)
	ids := make([]int64, len(got))
	for i, c := range got {
		ids[i] = c.Card.ID
	}
	assert.Equal(t, []int64{2, 5, 3, 4, 1}, ids)
	assert.Equal(t, int64(1), cands[0].Card.ID, "input must not be reordered")
}
