// Package scheduler owns the in-memory vocabulary collection for a session
// and applies the spaced-repetition transitions to it. State changes are
// computed eagerly; writing them back to the store is a best-effort side
// effect and never a precondition, so the collection stays usable when the
// durable write fails.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pendlerapp/vokabel/internal/domain"
	"github.com/pendlerapp/vokabel/internal/srs"
	"github.com/pendlerapp/vokabel/internal/stats"
)

// historyDays bounds how much per-day history is pulled for streak counting.
const historyDays = 365

// Store is the persistence collaborator. storage.DB satisfies it; tests
// substitute an in-memory fake.
type Store interface {
	LoadItems() []domain.Item
	UpsertItem(it domain.Item) error
	ReplaceItems(items []domain.Item) error
	DeleteItem(id string) error
	BumpDailyProgress(day string, correct bool) error
	RecentProgress(days int) ([]domain.DailyProgress, error)
	DailyGoal() int
	SetDailyGoal(goal int) error
}

// Scheduler maintains the vocabulary collection, decides which items are due
// and processes review outcomes. One instance per session; the mutex guards
// the collection against the HTTP server's concurrent handlers.
type Scheduler struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	items []domain.Item
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock injects the time source, used by tests to pin review times.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler hydrated from the store. Loading fails soft inside
// the store, so a broken database yields an empty but working collection.
func New(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = store.LoadItems()
	return s
}

// find returns the index of the item with the given ID, -1 if absent.
// Callers hold the lock.
func (s *Scheduler) find(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Reload re-hydrates the collection from the store. Used after operations
// that write to storage behind the scheduler's back, e.g. deleting a source.
func (s *Scheduler) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.store.LoadItems()
}

// Items returns a copy of the whole collection.
func (s *Scheduler) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Item(nil), s.items...)
}

// Due returns the items due for review as of now, ordered by ascending due
// time with never-reviewed items first.
func (s *Scheduler) Due() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return srs.Due(s.items, s.now())
}

// Get returns the item with the given ID.
func (s *Scheduler) Get(id string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return domain.Item{}, &domain.NotFoundError{ID: id}
	}
	return s.items[i], nil
}

// RecordCorrect processes a correct answer for the item with the given ID
// and returns the updated item.
func (s *Scheduler) RecordCorrect(id string) (domain.Item, error) {
	return s.record(id, true)
}

// RecordIncorrect processes an incorrect answer for the item with the given
// ID and returns the updated item.
func (s *Scheduler) RecordIncorrect(id string) (domain.Item, error) {
	return s.record(id, false)
}

func (s *Scheduler) record(id string, correct bool) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return domain.Item{}, &domain.NotFoundError{ID: id}
	}

	asOf := s.now()
	if correct {
		s.items[i] = srs.RecordCorrect(s.items[i], asOf)
	} else {
		s.items[i] = srs.RecordIncorrect(s.items[i], asOf)
	}

	it := s.items[i]
	if err := s.store.UpsertItem(it); err != nil {
		slog.Warn("Failed to persist review, in-memory state kept", "id", id, "error", err)
	}
	if err := s.store.BumpDailyProgress(domain.Day(asOf), correct); err != nil {
		slog.Warn("Failed to persist daily progress", "day", domain.Day(asOf), "error", err)
	}
	return it, nil
}

// Draft carries the caller-supplied fields for a new item. Zero-valued
// fields get the documented defaults; an empty ID is generated.
type Draft struct {
	ID          string            `json:"id"`
	Word        string            `json:"word"`
	Translation string            `json:"translation"`
	Example     string            `json:"example"`
	Category    string            `json:"category"`
	Difficulty  domain.Difficulty `json:"difficulty"`
	SourceID    int64             `json:"-"`
	Fingerprint string            `json:"-"`
}

// Add constructs and inserts a single new item. The item starts at
// repetition level 0 with no review history, so it is immediately due.
func (s *Scheduler) Add(d Draft) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.build(d)
	if err != nil {
		return domain.Item{}, err
	}

	s.items = append(s.items, it)
	if err := s.store.UpsertItem(it); err != nil {
		slog.Warn("Failed to persist new item", "id", it.ID, "error", err)
	}
	return it, nil
}

// Rejection names one bulk entry that failed validation.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkReport is the partial-success result of a batch import.
type BulkReport struct {
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

// BulkAdd appends a batch of items. Each entry is validated independently:
// malformed entries are reported in the result instead of aborting the whole
// batch. The accepted items are written back in one overwrite.
func (s *Scheduler) BulkAdd(drafts []Draft) BulkReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report BulkReport
	for i, d := range drafts {
		it, err := s.build(d)
		if err != nil {
			report.Rejected = append(report.Rejected, Rejection{Index: i, Reason: rejectionReason(err)})
			continue
		}
		s.items = append(s.items, it)
		report.Accepted++
	}

	if report.Accepted > 0 {
		if err := s.store.ReplaceItems(s.items); err != nil {
			slog.Warn("Failed to persist bulk import", "accepted", report.Accepted, "error", err)
		}
	}
	return report
}

func rejectionReason(err error) string {
	if verr, ok := err.(*domain.ValidationError); ok {
		return verr.Reason
	}
	return err.Error()
}

// build validates a draft and turns it into an item. Callers hold the lock.
func (s *Scheduler) build(d Draft) (domain.Item, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	} else if s.find(id) >= 0 {
		return domain.Item{}, &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("duplicate id %s", id)}
	}

	it := domain.Item{
		ID:          id,
		Word:        d.Word,
		Translation: d.Translation,
		Example:     d.Example,
		Category:    d.Category,
		Difficulty:  d.Difficulty,
		SourceID:    d.SourceID,
		Fingerprint: d.Fingerprint,
	}
	if err := domain.ValidateItem(it); err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

// Remove deletes an item from the collection and the store.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return &domain.NotFoundError{ID: id}
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	if err := s.store.DeleteItem(id); err != nil {
		slog.Warn("Failed to delete item from store", "id", id, "error", err)
	}
	return nil
}

// ItemsBySource returns the items imported from the given deck source.
func (s *Scheduler) ItemsBySource(sourceID int64) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Item
	for _, it := range s.items {
		if it.SourceID == sourceID {
			out = append(out, it)
		}
	}
	return out
}

// FindByFingerprint looks an item up by its deck dedup key.
func (s *Scheduler) FindByFingerprint(fp string) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.Fingerprint != "" && it.Fingerprint == fp {
			return it, true
		}
	}
	return domain.Item{}, false
}

// Statistics recomputes the progress aggregate over the current collection
// and the stored per-day history.
func (s *Scheduler) Statistics() stats.UserProgress {
	s.mu.Lock()
	items := append([]domain.Item(nil), s.items...)
	now := s.now()
	s.mu.Unlock()

	history, err := s.store.RecentProgress(historyDays)
	if err != nil {
		slog.Warn("Failed to load review history", "error", err)
	}
	due := srs.Due(items, now)
	return stats.Compute(items, due, history, domain.Day(now), s.store.DailyGoal())
}

// DailyGoal returns the configured reviews-per-day target.
func (s *Scheduler) DailyGoal() int {
	return s.store.DailyGoal()
}

// SetDailyGoal updates the reviews-per-day target.
func (s *Scheduler) SetDailyGoal(goal int) error {
	return s.store.SetDailyGoal(goal)
}
