package deck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pendlerapp/vokabel/internal/scheduler"
	"github.com/pendlerapp/vokabel/internal/storage"
)

const twoWordDeck = `W: die Schicht
T: směna
C: work
---
W: der Zug
T: vlak
C: travel
`

const oneWordDeck = `W: die Schicht
T: směna
C: work
`

func TestSyncAllReconcilesLocalSource(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	deckDir := t.TempDir()
	deckFile := filepath.Join(deckDir, "pendler.md")
	if err := os.WriteFile(deckFile, []byte(twoWordDeck), 0o644); err != nil {
		t.Fatalf("Failed to write deck file: %v", err)
	}

	sourceID, err := db.InsertSource(deckDir, TypeLocal)
	if err != nil {
		t.Fatalf("InsertSource returned an unexpected error: %v", err)
	}

	sched := scheduler.New(db)
	reposDir := t.TempDir()

	if err := SyncAll(db, sched, reposDir); err != nil {
		t.Fatalf("SyncAll returned an unexpected error: %v", err)
	}

	items := sched.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items after first sync, got %d", len(items))
	}
	for _, it := range items {
		if it.SourceID != sourceID {
			t.Errorf("expected item %s to be owned by source %d, got %d", it.Word, sourceID, it.SourceID)
		}
		if it.Fingerprint == "" {
			t.Errorf("expected item %s to carry a fingerprint", it.Word)
		}
	}

	// A second sync must not duplicate anything.
	if err := SyncAll(db, sched, reposDir); err != nil {
		t.Fatalf("SyncAll returned an unexpected error: %v", err)
	}
	if got := len(sched.Items()); got != 2 {
		t.Fatalf("expected 2 items after re-sync, got %d", got)
	}

	// Dropping a word from the deck removes the orphaned item.
	if err := os.WriteFile(deckFile, []byte(oneWordDeck), 0o644); err != nil {
		t.Fatalf("Failed to rewrite deck file: %v", err)
	}
	if err := SyncAll(db, sched, reposDir); err != nil {
		t.Fatalf("SyncAll returned an unexpected error: %v", err)
	}

	items = sched.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item after orphan removal, got %d", len(items))
	}
	if items[0].Word != "die Schicht" {
		t.Errorf("expected the surviving item to be 'die Schicht', got %q", items[0].Word)
	}
}

func TestSyncAllDedupsRepeatedDeckEntries(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	const repeatedDeck = `W: die Schicht
T: směna
---
W: der Zug
T: vlak
---
W: die Schicht
T: směna
`
	deckDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(deckDir, "pendler.md"), []byte(repeatedDeck), 0o644); err != nil {
		t.Fatalf("Failed to write deck file: %v", err)
	}
	if _, err := db.InsertSource(deckDir, TypeLocal); err != nil {
		t.Fatalf("InsertSource returned an unexpected error: %v", err)
	}

	sched := scheduler.New(db)
	if err := SyncAll(db, sched, t.TempDir()); err != nil {
		t.Fatalf("SyncAll returned an unexpected error: %v", err)
	}

	items := sched.Items()
	if len(items) != 2 {
		t.Fatalf("expected the repeated entry to be imported once, got %d items", len(items))
	}
	seen := make(map[string]bool)
	for _, it := range items {
		if seen[it.Fingerprint] {
			t.Fatalf("duplicate fingerprint %s in collection", it.Fingerprint)
		}
		seen[it.Fingerprint] = true
	}
}

func TestSyncAllNoSources(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	sched := scheduler.New(db)
	if err := SyncAll(db, sched, t.TempDir()); err != nil {
		t.Fatalf("SyncAll with no sources must be a no-op, got %v", err)
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{url: "https://github.com/user/decks.git", expected: filepath.Join("repos", "github.com", "user", "decks")},
		{url: "http://example.com/decks", expected: filepath.Join("repos", "example.com", "decks")},
		{url: "git@github.com:user/decks.git", expected: filepath.Join("repos", "github.com", "user", "decks")},
		{url: "not a url", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := gitURLToLocalPath("repos", tc.url)
		if tc.wantErr {
			if err == nil {
				t.Errorf("gitURLToLocalPath(%q): expected an error, got %q", tc.url, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("gitURLToLocalPath(%q) returned an unexpected error: %v", tc.url, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("gitURLToLocalPath(%q): expected %s, got %s", tc.url, tc.expected, got)
		}
	}
}

func TestDetectType(t *testing.T) {
	testCases := []struct {
		path     string
		expected string
	}{
		{"/home/user/decks", TypeLocal},
		{"decks", TypeLocal},
		{"https://github.com/user/decks.git", TypeGit},
		{"https://github.com/user/decks", TypeGit},
		{"git@github.com:user/decks.git", TypeGit},
	}

	for _, tc := range testCases {
		if got := DetectType(tc.path); got != tc.expected {
			t.Errorf("DetectType(%q): expected %s, got %s", tc.path, tc.expected, got)
		}
	}
}
