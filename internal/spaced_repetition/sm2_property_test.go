package spaced_repetition

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSM2Properties(t *testing.T) {
	sm := NewSM2()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ease factor never drops below 1.3", prop.ForAll(
		func(reps, interval, quality int, ease float64) bool {
			got, err := sm.ComputeNextSchedule(State{reps, interval, ease}, quality, reviewTime)
			return err == nil && got.EaseFactor >= 1.3
		},
		gen.IntRange(0, 50),
		gen.IntRange(1, 365),
		gen.IntRange(1, 5),
		gen.Float64Range(1.3, 4.0),
	))

	properties.Property("failure resets repetitions and interval", prop.ForAll(
		func(reps, interval, quality int, ease float64) bool {
			got, err := sm.ComputeNextSchedule(State{reps, interval, ease}, quality, reviewTime)
			return err == nil && got.Repetitions == 0 && got.IntervalDays == 1
		},
		gen.IntRange(0, 50),
		gen.IntRange(1, 365),
		gen.IntRange(1, 2),
		gen.Float64Range(1.3, 4.0),
	))

	properties.Property("success on a new card schedules one day", prop.ForAll(
		func(quality int, ease float64) bool {
			got, err := sm.ComputeNextSchedule(State{0, 1, ease}, quality, reviewTime)
			return err == nil && got.IntervalDays == 1 && got.Repetitions == 1
		},
		gen.IntRange(3, 5),
		gen.Float64Range(1.3, 4.0),
	))

	properties.Property("second success schedules six days", prop.ForAll(
		func(quality, interval int, ease float64) bool {
			got, err := sm.ComputeNextSchedule(State{1, interval, ease}, quality, reviewTime)
			return err == nil && got.IntervalDays == 6 && got.Repetitions == 2
		},
		gen.IntRange(3, 5),
		gen.IntRange(1, 365),
		gen.Float64Range(1.3, 4.0),
	))

	properties.Property("next review is exactly interval days after now", prop.ForAll(
		func(reps, interval, quality int) bool {
			got, err := sm.ComputeNextSchedule(State{reps, interval, 2.5}, quality, reviewTime)
			return err == nil && got.NextReviewDate.Equal(reviewTime.AddDate(0, 0, got.IntervalDays)) && got.IntervalDays >= 1
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 365),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
