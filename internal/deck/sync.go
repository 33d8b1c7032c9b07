package deck

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pendlerapp/vokabel/internal/gitsource"
	"github.com/pendlerapp/vokabel/internal/parser"
	"github.com/pendlerapp/vokabel/internal/scheduler"
	"github.com/pendlerapp/vokabel/internal/storage"
)

// Source types stored in the sources table.
const (
	TypeLocal = "local"
	TypeGit   = "git"
)

// DetectType classifies a source path as a git URL or a local directory.
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return TypeGit
	}
	return TypeLocal
}

// SyncAll iterates over all configured deck sources and reconciles each one
// into the scheduler's collection. Git sources are cloned or pulled under
// reposDir first. Failures on one source never abort the others.
func SyncAll(db *storage.DB, sched *scheduler.Scheduler, reposDir string) error {
	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		localPath := source.Path
		if source.Type == TypeGit {
			localPath, err = gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}
		}

		reconcile(db, sched, source.ID, localPath)
	}
	slog.Info("Sync process complete.")
	return nil
}

// reconcile walks a local deck directory, bulk-adds entries that are not in
// the collection yet and removes orphaned entries this source used to own.
func reconcile(db *storage.DB, sched *scheduler.Scheduler, sourceID int64, dir string) {
	var parseErrors []error
	var drafts []scheduler.Draft
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, e := range entries {
			fp := Fingerprint(e.Word, e.Translation)
			if found[fp] { // duplicate entry within this scan
				continue
			}
			found[fp] = true

			if _, exists := sched.FindByFingerprint(fp); exists {
				continue
			}
			drafts = append(drafts, scheduler.Draft{
				Word:        e.Word,
				Translation: e.Translation,
				Example:     e.Example,
				Category:    e.Category,
				Difficulty:  e.Difficulty,
				SourceID:    sourceID,
				Fingerprint: fp,
			})
		}
		return nil
	})
	if walkErr != nil {
		slog.Error("Error walking directory", "path", dir, "error", walkErr)
		return
	}

	var report scheduler.BulkReport
	if len(drafts) > 0 {
		report = sched.BulkAdd(drafts)
		for _, rej := range report.Rejected {
			slog.Warn("Deck entry rejected", "path", dir, "index", rej.Index, "reason", rej.Reason)
		}
	}

	var orphaned int
	for _, it := range sched.ItemsBySource(sourceID) {
		if found[it.Fingerprint] {
			continue
		}
		slog.Info("Orphaned entry, removing", "id", it.ID, "word", it.Word)
		orphaned++
		if err := sched.Remove(it.ID); err != nil {
			slog.Warn("Failed to remove orphaned entry", "id", it.ID, "error", err)
		}
	}

	if err := db.UpdateSourceLastScanned(sourceID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", dir,
		"added", report.Accepted,
		"rejected", len(report.Rejected),
		"orphaned_removed", orphaned,
		"parse_errors", len(parseErrors),
	)
}

// gitURLToLocalPath maps a clone URL onto a host/repo directory under
// baseDir. It understands http(s) URLs and scp-style SSH addresses
// (user@host:path.git).
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	if u, err := url.Parse(repoURL); err == nil && (u.Scheme == "https" || u.Scheme == "http") {
		return filepath.Join(baseDir, u.Host, strings.TrimSuffix(u.Path, ".git")), nil
	}

	at := strings.Index(repoURL, "@")
	colon := strings.Index(repoURL, ":")
	if at > 0 && colon > at+1 && colon < len(repoURL)-1 {
		host := repoURL[at+1 : colon]
		repoPath := strings.TrimSuffix(repoURL[colon+1:], ".git")
		return filepath.Join(baseDir, host, repoPath), nil
	}

	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
