// Package stats derives read-only progress aggregates from the vocabulary
// collection and the per-day review tallies. Nothing here is persisted; the
// numbers are recomputed on demand from their inputs.
package stats

import (
	"time"

	"github.com/pendlerapp/vokabel/internal/domain"
	"github.com/pendlerapp/vokabel/internal/srs"
)

// UserProgress is the aggregate the dashboard renders.
type UserProgress struct {
	TotalItems      int                       `json:"total_items"`
	DueCount        int                       `json:"due_count"`
	NewCount        int                       `json:"new_count"`
	LearningCount   int                       `json:"learning_count"`
	MasteredCount   int                       `json:"mastered_count"`
	TotalReviewed   int                       `json:"total_reviewed"`
	AverageAccuracy float64                   `json:"average_accuracy"`
	Categories      map[string]int            `json:"categories"`
	Difficulties    map[domain.Difficulty]int `json:"difficulties"`
	CompletedToday  int                       `json:"completed_today"`
	DailyGoal       int                       `json:"daily_goal"`
	GoalMet         bool                      `json:"goal_met"`
	StreakDays      int                       `json:"streak_days"`
}

// Compute aggregates the collection into a UserProgress. history carries the
// recent per-day tallies (order does not matter), today is the current day
// key and dailyGoal the configured reviews-per-day target.
func Compute(items, due []domain.Item, history []domain.DailyProgress, today string, dailyGoal int) UserProgress {
	p := UserProgress{
		TotalItems:   len(items),
		DueCount:     len(due),
		Categories:   make(map[string]int),
		Difficulties: make(map[domain.Difficulty]int),
		DailyGoal:    dailyGoal,
	}

	var correct, incorrect int
	for _, it := range items {
		switch srs.StateOf(it) {
		case srs.StateMastered:
			p.MasteredCount++
		case srs.StateLearning:
			p.LearningCount++
		default:
			p.NewCount++
		}
		if it.Category != "" {
			p.Categories[it.Category]++
		}
		if it.Difficulty != "" {
			p.Difficulties[it.Difficulty]++
		}
		correct += it.CorrectCount
		incorrect += it.IncorrectCount
	}

	p.TotalReviewed = correct + incorrect
	if p.TotalReviewed > 0 {
		p.AverageAccuracy = float64(correct) / float64(p.TotalReviewed)
	}

	for _, d := range history {
		if d.Day == today {
			p.CompletedToday = d.Reviewed
			break
		}
	}
	p.GoalMet = dailyGoal > 0 && p.CompletedToday >= dailyGoal
	p.StreakDays = Streak(history, today)
	return p
}

// Streak counts consecutive calendar days with at least one review, walking
// backwards from today. A day without reviews ends the streak; if today has
// none yet, the count starts at yesterday so an unbroken run is not hidden
// mid-day.
func Streak(history []domain.DailyProgress, today string) int {
	reviewed := make(map[string]bool, len(history))
	for _, d := range history {
		if d.Reviewed > 0 {
			reviewed[d.Day] = true
		}
	}

	day, err := time.Parse(domain.DayFormat, today)
	if err != nil {
		return 0
	}
	if !reviewed[today] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for reviewed[day.Format(domain.DayFormat)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
