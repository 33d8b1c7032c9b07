package srs

import (
	"sort"
	"time"

	"github.com/pendlerapp/vokabel/internal/domain"
)

// Intervals is the spacing table in days, indexed by repetition level.
// An item at level L that is answered correctly moves to level L+1 and is
// next due Intervals[L+1] days later; the top level reuses the last entry.
var Intervals = [domain.MaxRepetitionLevel + 1]int{1, 3, 7, 14, 30, 60, 90}

// MasteryLevel is the repetition level at which an item counts as mastered.
const MasteryLevel = 4

// Interval returns the review interval in days for a repetition level,
// clamping out-of-range levels into the table.
func Interval(level int) int {
	if level < 0 {
		level = 0
	}
	if level > domain.MaxRepetitionLevel {
		level = domain.MaxRepetitionLevel
	}
	return Intervals[level]
}

// RecordCorrect applies a correct answer to an item: the repetition level
// advances by one (capped), the answer is tallied, and the next review is
// scheduled Interval(newLevel) days after asOf. The input is not mutated.
func RecordCorrect(it domain.Item, asOf time.Time) domain.Item {
	level := it.RepetitionLevel + 1
	if level > domain.MaxRepetitionLevel {
		level = domain.MaxRepetitionLevel
	}

	it.RepetitionLevel = level
	it.CorrectCount++
	it.LastReviewed = asOf
	it.NextReview = domain.ScheduledAt(asOf.AddDate(0, 0, Interval(level)))
	return it
}

// RecordIncorrect applies an incorrect answer: the repetition level resets
// to zero regardless of prior mastery, forcing near-term re-exposure, and
// the item is due again one day after asOf. The input is not mutated.
func RecordIncorrect(it domain.Item, asOf time.Time) domain.Item {
	it.RepetitionLevel = 0
	it.IncorrectCount++
	it.LastReviewed = asOf
	it.NextReview = domain.ScheduledAt(asOf.AddDate(0, 0, Intervals[0]))
	return it
}

// Due returns the items that should be reviewed as of the given time,
// ordered by ascending due time. Items that were never scheduled sort first.
// The input slice is not modified.
func Due(items []domain.Item, asOf time.Time) []domain.Item {
	var due []domain.Item
	for _, it := range items {
		if it.NextReview.DueBy(asOf) {
			due = append(due, it)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		// Unscheduled items carry the zero time and so sort to the front.
		return due[i].NextReview.At.Before(due[j].NextReview.At)
	})
	return due
}

// State classifies how well-learned an item is.
type State int

const (
	StateNew State = iota
	StateLearning
	StateMastered
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateMastered:
		return "mastered"
	default:
		return "unknown"
	}
}

// StateOf maps an item's repetition level onto the learning state machine:
// level 0 is new, levels 1 through MasteryLevel-1 are learning, and
// MasteryLevel and above is mastered.
func StateOf(it domain.Item) State {
	switch {
	case it.RepetitionLevel >= MasteryLevel:
		return StateMastered
	case it.RepetitionLevel > 0:
		return StateLearning
	default:
		return StateNew
	}
}
