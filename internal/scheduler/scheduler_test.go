package scheduler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pendlerapp/vokabel/internal/domain"
)

// fakeStore is an in-memory Store that records what was written back.
type fakeStore struct {
	items     []domain.Item
	progress  map[string]domain.DailyProgress
	goal      int
	upserts   int
	replaces  int
	deletes   int
	upsertErr error
}

func newFakeStore(items ...domain.Item) *fakeStore {
	return &fakeStore{items: items, progress: make(map[string]domain.DailyProgress)}
}

func (f *fakeStore) LoadItems() []domain.Item {
	return append([]domain.Item(nil), f.items...)
}

func (f *fakeStore) UpsertItem(it domain.Item) error {
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for i := range f.items {
		if f.items[i].ID == it.ID {
			f.items[i] = it
			return nil
		}
	}
	f.items = append(f.items, it)
	return nil
}

func (f *fakeStore) ReplaceItems(items []domain.Item) error {
	f.replaces++
	f.items = append([]domain.Item(nil), items...)
	return nil
}

func (f *fakeStore) DeleteItem(id string) error {
	f.deletes++
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) BumpDailyProgress(day string, correct bool) error {
	p := f.progress[day]
	p.Day = day
	p.Reviewed++
	if correct {
		p.Correct++
	} else {
		p.Incorrect++
	}
	f.progress[day] = p
	return nil
}

func (f *fakeStore) RecentProgress(days int) ([]domain.DailyProgress, error) {
	var out []domain.DailyProgress
	for _, p := range f.progress {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) DailyGoal() int {
	if f.goal == 0 {
		return 10
	}
	return f.goal
}

func (f *fakeStore) SetDailyGoal(goal int) error {
	f.goal = goal
	return nil
}

var day0 = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestAddAppliesDefaults(t *testing.T) {
	store := newFakeStore()
	s := New(store, fixedClock(day0))

	it, err := s.Add(Draft{Word: "die Steuer", Translation: "daň"})
	if err != nil {
		t.Fatalf("Add returned an unexpected error: %v", err)
	}

	if it.ID == "" {
		t.Error("expected a generated ID")
	}
	if it.RepetitionLevel != 0 || it.CorrectCount != 0 || it.IncorrectCount != 0 {
		t.Errorf("expected zeroed counters, got %+v", it)
	}
	if it.Reviewed() {
		t.Error("new item must have no review history")
	}
	if !it.NextReview.DueBy(day0) {
		t.Error("new item must be immediately due")
	}
	if store.upserts != 1 {
		t.Errorf("expected 1 write-back, got %d", store.upserts)
	}
}

func TestAddGeneratedIDsAreUnique(t *testing.T) {
	s := New(newFakeStore(), fixedClock(day0))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		it, err := s.Add(Draft{Word: fmt.Sprintf("wort-%d", i), Translation: "slovo"})
		if err != nil {
			t.Fatalf("Add returned an unexpected error: %v", err)
		}
		if seen[it.ID] {
			t.Fatalf("duplicate generated ID %s", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestAddRejectsMissingRequiredFields(t *testing.T) {
	s := New(newFakeStore(), fixedClock(day0))

	_, err := s.Add(Draft{Translation: "vlak"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
	if verr.Field != "word" {
		t.Errorf("expected the error to name the word field, got %q", verr.Field)
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := New(newFakeStore(domain.Item{ID: "w1", Word: "gehen", Translation: "jít"}), fixedClock(day0))

	_, err := s.Add(Draft{ID: "w1", Word: "stehen", Translation: "stát"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError for a duplicate ID, got %v", err)
	}
}

func TestRecordCorrectFirstReview(t *testing.T) {
	store := newFakeStore(domain.Item{ID: "w1", Word: "die Pause", Translation: "přestávka"})
	s := New(store, fixedClock(day0))

	it, err := s.RecordCorrect("w1")
	if err != nil {
		t.Fatalf("RecordCorrect returned an unexpected error: %v", err)
	}

	if it.RepetitionLevel != 1 {
		t.Errorf("expected level 1, got %d", it.RepetitionLevel)
	}
	expectedDue := day0.AddDate(0, 0, 3)
	if !it.NextReview.At.Equal(expectedDue) {
		t.Errorf("expected next review on %v (3 days), got %v", expectedDue, it.NextReview.At)
	}
	if p := store.progress["2026-03-01"]; p.Reviewed != 1 || p.Correct != 1 {
		t.Errorf("expected daily progress 1 reviewed / 1 correct, got %+v", p)
	}
}

func TestRecordCorrectAtTopLevelStaysCapped(t *testing.T) {
	store := newFakeStore(domain.Item{ID: "w1", Word: "der Lohn", Translation: "mzda", RepetitionLevel: 6})
	s := New(store, fixedClock(day0))

	it, err := s.RecordCorrect("w1")
	if err != nil {
		t.Fatalf("RecordCorrect returned an unexpected error: %v", err)
	}

	if it.RepetitionLevel != 6 {
		t.Errorf("expected level to stay 6, got %d", it.RepetitionLevel)
	}
	expectedDue := day0.AddDate(0, 0, 90)
	if !it.NextReview.At.Equal(expectedDue) {
		t.Errorf("expected next review +90 days (%v), got %v", expectedDue, it.NextReview.At)
	}
}

func TestRecordIncorrectResets(t *testing.T) {
	store := newFakeStore(domain.Item{ID: "w1", Word: "die Probezeit", Translation: "zkušební doba", RepetitionLevel: 5})
	s := New(store, fixedClock(day0))

	it, err := s.RecordIncorrect("w1")
	if err != nil {
		t.Fatalf("RecordIncorrect returned an unexpected error: %v", err)
	}

	if it.RepetitionLevel != 0 {
		t.Errorf("expected level reset to 0, got %d", it.RepetitionLevel)
	}
	if p := store.progress["2026-03-01"]; p.Incorrect != 1 {
		t.Errorf("expected 1 incorrect in daily progress, got %+v", p)
	}
}

func TestRecordUnknownID(t *testing.T) {
	s := New(newFakeStore(), fixedClock(day0))

	_, err := s.RecordCorrect("missing")
	var nerr *domain.NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected a NotFoundError, got %v", err)
	}
	if nerr.ID != "missing" {
		t.Errorf("expected the error to carry the ID, got %q", nerr.ID)
	}
}

func TestRecordKeepsInMemoryStateOnPersistFailure(t *testing.T) {
	store := newFakeStore(domain.Item{ID: "w1", Word: "der Vertrag", Translation: "smlouva"})
	store.upsertErr = errors.New("disk full")
	s := New(store, fixedClock(day0))

	it, err := s.RecordCorrect("w1")
	if err != nil {
		t.Fatalf("expected the review to succeed despite the persist failure, got %v", err)
	}
	if it.RepetitionLevel != 1 {
		t.Errorf("expected the in-memory transition to apply, got level %d", it.RepetitionLevel)
	}

	got, err := s.Get("w1")
	if err != nil {
		t.Fatalf("Get returned an unexpected error: %v", err)
	}
	if got.RepetitionLevel != 1 {
		t.Errorf("expected the collection to keep the new state, got level %d", got.RepetitionLevel)
	}
}

func TestBulkAddPartialSuccess(t *testing.T) {
	store := newFakeStore()
	s := New(store, fixedClock(day0))

	drafts := make([]Draft, 0, 6)
	for i := 0; i < 5; i++ {
		drafts = append(drafts, Draft{
			Word:        fmt.Sprintf("wort-%d", i),
			Translation: fmt.Sprintf("slovo-%d", i),
		})
	}
	drafts = append(drafts, Draft{Translation: "bez slova"}) // missing word

	report := s.BulkAdd(drafts)

	if report.Accepted != 5 {
		t.Errorf("expected 5 accepted, got %d", report.Accepted)
	}
	if len(report.Rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(report.Rejected))
	}
	if report.Rejected[0].Index != 5 {
		t.Errorf("expected index 5 rejected, got %d", report.Rejected[0].Index)
	}
	if report.Rejected[0].Reason != "missing word" {
		t.Errorf("expected reason 'missing word', got %q", report.Rejected[0].Reason)
	}
	if len(s.Items()) != 5 {
		t.Errorf("expected 5 items in the collection, got %d", len(s.Items()))
	}
	if store.replaces != 1 {
		t.Errorf("expected one overwrite write-back, got %d", store.replaces)
	}
}

func TestRemove(t *testing.T) {
	store := newFakeStore(domain.Item{ID: "w1", Word: "kündigen", Translation: "vypovědět"})
	s := New(store, fixedClock(day0))

	if err := s.Remove("w1"); err != nil {
		t.Fatalf("Remove returned an unexpected error: %v", err)
	}
	if len(s.Items()) != 0 {
		t.Error("expected an empty collection after removal")
	}
	if err := s.Remove("w1"); err == nil {
		t.Error("expected a NotFoundError on second removal")
	}
}

func TestStatisticsGoalMet(t *testing.T) {
	store := newFakeStore(
		domain.Item{ID: "a", Word: "a", Translation: "a", RepetitionLevel: 4},
		domain.Item{ID: "b", Word: "b", Translation: "b", RepetitionLevel: 2},
	)
	s := New(store, fixedClock(day0))
	store.goal = 2

	for i := 0; i < 2; i++ {
		if _, err := s.RecordCorrect("b"); err != nil {
			t.Fatalf("RecordCorrect returned an unexpected error: %v", err)
		}
	}

	p := s.Statistics()
	if p.MasteredCount != 1 {
		t.Errorf("expected 1 mastered item, got %d", p.MasteredCount)
	}
	if p.CompletedToday != 2 {
		t.Errorf("expected 2 completed today, got %d", p.CompletedToday)
	}
	if !p.GoalMet {
		t.Error("expected the daily goal of 2 to be met")
	}
}

func TestFindByFingerprint(t *testing.T) {
	store := newFakeStore(domain.Item{ID: "w1", Word: "die Schicht", Translation: "směna", Fingerprint: "fp1", SourceID: 3})
	s := New(store, fixedClock(day0))

	if _, ok := s.FindByFingerprint("fp1"); !ok {
		t.Error("expected to find the item by fingerprint")
	}
	if _, ok := s.FindByFingerprint("other"); ok {
		t.Error("did not expect a match for an unknown fingerprint")
	}
	if got := s.ItemsBySource(3); len(got) != 1 {
		t.Errorf("expected 1 item for source 3, got %d", len(got))
	}
}
