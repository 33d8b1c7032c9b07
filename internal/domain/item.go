package domain

import (
	"encoding/json"
	"time"
)

// MaxRepetitionLevel is the highest repetition level an item can reach.
// Correct answers beyond this level keep the item at the cap.
const MaxRepetitionLevel = 6

// Difficulty is an optional classification of how hard an item is to learn.
// The empty string means the difficulty was never set.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// NextReview says when an item should next be shown. It is a tagged pair:
// either the item has never been scheduled (Scheduled is false, the item is
// due immediately) or it is due at a specific time. The zero value means
// "unreviewed", so a freshly constructed Item is always due.
type NextReview struct {
	At        time.Time
	Scheduled bool
}

// ScheduledAt returns a NextReview due at the given time.
func ScheduledAt(t time.Time) NextReview {
	return NextReview{At: t, Scheduled: true}
}

// DueBy reports whether the item should be reviewed as of the given time.
// Unscheduled items are always due.
func (n NextReview) DueBy(asOf time.Time) bool {
	return !n.Scheduled || !n.At.After(asOf)
}

// MarshalJSON encodes a scheduled review as an RFC 3339 timestamp and an
// unscheduled one as null.
func (n NextReview) MarshalJSON() ([]byte, error) {
	if !n.Scheduled {
		return []byte("null"), nil
	}
	return json.Marshal(n.At)
}

// UnmarshalJSON accepts null or an RFC 3339 timestamp.
func (n *NextReview) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NextReview{}
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	*n = ScheduledAt(t)
	return nil
}

// Item is a single flashcard-style vocabulary unit.
//
// LastReviewed is the zero time for items that were never reviewed.
// SourceID is 0 for manually added items and the owning deck source's ID for
// imported ones; Fingerprint is the dedup key computed by the deck package
// and is empty for manual items.
type Item struct {
	ID              string     `json:"id"`
	Word            string     `json:"word"`
	Translation     string     `json:"translation"`
	Example         string     `json:"example,omitempty"`
	Category        string     `json:"category,omitempty"`
	Difficulty      Difficulty `json:"difficulty,omitempty"`
	RepetitionLevel int        `json:"repetition_level"`
	CorrectCount    int        `json:"correct_count"`
	IncorrectCount  int        `json:"incorrect_count"`
	LastReviewed    time.Time  `json:"last_reviewed,omitzero"`
	NextReview      NextReview `json:"next_review"`
	SourceID        int64      `json:"source_id,omitempty"`
	Fingerprint     string     `json:"-"`
}

// Reviewed reports whether the item has ever been answered.
func (it Item) Reviewed() bool {
	return !it.LastReviewed.IsZero()
}

// DailyProgress is the per-calendar-day review tally. Day is a local
// ISO-8601 date string (YYYY-MM-DD).
type DailyProgress struct {
	Day       string `json:"day"`
	Reviewed  int    `json:"reviewed"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// DayFormat is the layout used for DailyProgress day keys.
const DayFormat = "2006-01-02"

// Day returns t's local calendar date in the DailyProgress key format.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}
