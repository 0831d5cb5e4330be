package stats

import (
	"math"

	"github.com/example/flashpod/pkg/models"
)

// DefaultWindowDays is the look-back window for retention figures
const DefaultWindowDays = 30

// passQuality is the lowest quality that counts as remembered
const passQuality = 3

// RetentionStrategy turns the reviews of a card set, already limited to the
// retention window, into a percentage.
type RetentionStrategy interface {
	Retention(reviews []models.CardReview) int
}

// StrategyFor returns the retention formula used by mode
func StrategyFor(mode models.Mode) RetentionStrategy {
	switch mode {
	case models.ModeFullSpaced:
		return QualityAverage{}
	default:
		// Basic sessions record no reviews; whatever exists is judged like simple-spaced.
		return UniqueCardRecall{}
	}
}

// QualityAverage is the SM-2 retention: the mean of each review's quality
// mapped to a percentage.
type QualityAverage struct{}

var qualityPercent = map[int]int{1: 25, 2: 50, 3: 75, 4: 100, 5: 100}

func (QualityAverage) Retention(reviews []models.CardReview) int {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range reviews {
		total += qualityPercent[r.Quality]
	}
	return Percent(total, len(reviews)*100)
}

// UniqueCardRecall is the simple-spaced retention: distinct cards with at
// least one passing review out of distinct cards reviewed.
type UniqueCardRecall struct{}

func (UniqueCardRecall) Retention(reviews []models.CardReview) int {
	reviewed := make(map[int64]struct{})
	remembered := make(map[int64]struct{})
	for _, r := range reviews {
		reviewed[r.CardID] = struct{}{}
		if r.Quality >= passQuality {
			remembered[r.CardID] = struct{}{}
		}
	}
	return Percent(len(remembered), len(reviewed))
}

// PooledRetention combines a pod's sessions of different modes into one
// figure. Full-spaced sessions contribute their correct/studied counters,
// simple-spaced sessions contribute the passing/total tallies of the reviews
// recorded against them. Numerators and denominators are summed before the
// single division. Basic sessions do not contribute.
func PooledRetention(sessions []models.StudySession, reviews []models.CardReview) int {
	simple := make(map[int64]bool)
	correct, studied := 0, 0
	for _, s := range sessions {
		switch s.Mode {
		case models.ModeFullSpaced:
			correct += s.CardsCorrect
			studied += s.CardsStudied
		case models.ModeSimpleSpaced:
			simple[s.ID] = true
		}
	}
	for _, r := range reviews {
		if r.SessionID == nil || !simple[*r.SessionID] {
			continue
		}
		studied++
		if r.Quality >= passQuality {
			correct++
		}
	}
	return Percent(correct, studied)
}

// Percent returns part/whole as a whole percentage, 0 for an empty whole.
// Halves round to even.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(part) / float64(whole) * 100))
}
