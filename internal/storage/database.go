package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pendlerapp/vokabel/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DefaultDailyGoal is returned when no goal was ever configured.
const DefaultDailyGoal = 10

const dailyGoalKey = "daily_goal"

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const itemColumns = `id, word, translation, example, category, difficulty,
	repetition_level, correct_count, incorrect_count, last_reviewed,
	next_review, fingerprint, source_id`

// LoadItems returns every valid stored item. It fails soft: a read error
// yields an empty slice, and rows that no longer pass validation are
// quarantined (skipped and logged) rather than trusted into the collection.
func (db *DB) LoadItems() []domain.Item {
	rows, err := db.conn.Query(`SELECT ` + itemColumns + ` FROM items`)
	if err != nil {
		slog.Warn("Failed to load items, starting empty", "error", err)
		return nil
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			slog.Warn("Skipping unreadable item row", "error", err)
			continue
		}
		if verr := domain.ValidateItem(it); verr != nil {
			slog.Warn("Quarantining malformed stored item", "id", it.ID, "error", verr)
			continue
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		slog.Warn("Item scan aborted", "error", err)
	}
	return items
}

func scanItem(rows *sql.Rows) (domain.Item, error) {
	var (
		it           domain.Item
		lastReviewed sql.NullTime
		nextReview   sql.NullTime
		sourceID     sql.NullInt64
	)
	err := rows.Scan(
		&it.ID,
		&it.Word,
		&it.Translation,
		&it.Example,
		&it.Category,
		&it.Difficulty,
		&it.RepetitionLevel,
		&it.CorrectCount,
		&it.IncorrectCount,
		&lastReviewed,
		&nextReview,
		&it.Fingerprint,
		&sourceID,
	)
	if err != nil {
		return domain.Item{}, err
	}
	if lastReviewed.Valid {
		it.LastReviewed = lastReviewed.Time
	}
	if nextReview.Valid {
		it.NextReview = domain.ScheduledAt(nextReview.Time)
	}
	if sourceID.Valid {
		it.SourceID = sourceID.Int64
	}
	return it, nil
}

func itemArgs(it domain.Item) []any {
	var lastReviewed, nextReview sql.NullTime
	if it.Reviewed() {
		lastReviewed = sql.NullTime{Time: it.LastReviewed, Valid: true}
	}
	if it.NextReview.Scheduled {
		nextReview = sql.NullTime{Time: it.NextReview.At, Valid: true}
	}
	var sourceID sql.NullInt64
	if it.SourceID != 0 {
		sourceID = sql.NullInt64{Int64: it.SourceID, Valid: true}
	}
	return []any{
		it.ID,
		it.Word,
		it.Translation,
		it.Example,
		it.Category,
		it.Difficulty,
		it.RepetitionLevel,
		it.CorrectCount,
		it.IncorrectCount,
		lastReviewed,
		nextReview,
		it.Fingerprint,
		sourceID,
	}
}

const upsertItemSQL = `
	INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		word = excluded.word,
		translation = excluded.translation,
		example = excluded.example,
		category = excluded.category,
		difficulty = excluded.difficulty,
		repetition_level = excluded.repetition_level,
		correct_count = excluded.correct_count,
		incorrect_count = excluded.incorrect_count,
		last_reviewed = excluded.last_reviewed,
		next_review = excluded.next_review,
		fingerprint = excluded.fingerprint,
		source_id = excluded.source_id
`

// UpsertItem inserts or updates a single item.
func (db *DB) UpsertItem(it domain.Item) error {
	if _, err := db.conn.Exec(upsertItemSQL, itemArgs(it)...); err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", it.ID, err)
	}
	return nil
}

// ReplaceItems overwrites the whole stored collection in one transaction.
// There is no merging with what was on disk: the last writer wins.
func (db *DB) ReplaceItems(items []domain.Item) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	for _, it := range items {
		if _, err := tx.Exec(upsertItemSQL, itemArgs(it)...); err != nil {
			return fmt.Errorf("failed to write item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace transaction: %w", err)
	}
	return nil
}

// DeleteItem removes an item by ID.
func (db *DB) DeleteItem(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// BumpDailyProgress records one completed review on the given day.
func (db *DB) BumpDailyProgress(day string, correct bool) error {
	correctInc, incorrectInc := 0, 1
	if correct {
		correctInc, incorrectInc = 1, 0
	}
	_, err := db.conn.Exec(`
		INSERT INTO daily_progress (day, reviewed, correct, incorrect)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			reviewed = reviewed + 1,
			correct = correct + excluded.correct,
			incorrect = incorrect + excluded.incorrect
	`, day, correctInc, incorrectInc)
	if err != nil {
		return fmt.Errorf("failed to bump daily progress for %s: %w", day, err)
	}
	return nil
}

// DailyProgress returns the tally for one day, zero-valued if absent.
func (db *DB) DailyProgress(day string) (domain.DailyProgress, error) {
	p := domain.DailyProgress{Day: day}
	row := db.conn.QueryRow(`
		SELECT reviewed, correct, incorrect FROM daily_progress WHERE day = ?
	`, day)
	err := row.Scan(&p.Reviewed, &p.Correct, &p.Incorrect)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read daily progress for %s: %w", day, err)
	}
	return p, nil
}

// RecentProgress returns the most recent per-day tallies, newest first,
// limited to the given number of days.
func (db *DB) RecentProgress(days int) ([]domain.DailyProgress, error) {
	rows, err := db.conn.Query(`
		SELECT day, reviewed, correct, incorrect
		FROM daily_progress
		ORDER BY day DESC
		LIMIT ?
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent progress: %w", err)
	}
	defer rows.Close()

	var history []domain.DailyProgress
	for rows.Next() {
		var p domain.DailyProgress
		if err := rows.Scan(&p.Day, &p.Reviewed, &p.Correct, &p.Incorrect); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		history = append(history, p)
	}
	return history, rows.Err()
}

// DailyGoal returns the configured reviews-per-day target, falling back to
// DefaultDailyGoal when unset or unreadable.
func (db *DB) DailyGoal() int {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, dailyGoalKey).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Warn("Failed to read daily goal, using default", "error", err)
		}
		return DefaultDailyGoal
	}
	goal, err := strconv.Atoi(value)
	if err != nil || goal <= 0 {
		slog.Warn("Ignoring malformed stored daily goal", "value", value)
		return DefaultDailyGoal
	}
	return goal
}

// SetDailyGoal stores the reviews-per-day target.
func (db *DB) SetDailyGoal(goal int) error {
	if goal <= 0 {
		return fmt.Errorf("daily goal must be positive, got %d", goal)
	}
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, dailyGoalKey, strconv.Itoa(goal))
	if err != nil {
		return fmt.Errorf("failed to store daily goal: %w", err)
	}
	return nil
}

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type) VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, nil if absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned FROM sources WHERE path = ?
	`, path)
	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`SELECT id, path, type, last_scanned FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source together with the items it imported.
func (db *DB) DeleteSource(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin source delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete items for source %d: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit source delete: %w", err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
