package storage

const schema = `
-- The 'items' table stores the vocabulary collection together with its
-- spaced-repetition state.
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    word TEXT NOT NULL,
    translation TEXT NOT NULL,
    example TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT '',
    repetition_level INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,
    incorrect_count INTEGER NOT NULL DEFAULT 0,
    last_reviewed DATETIME,
    next_review DATETIME,
    fingerprint TEXT NOT NULL DEFAULT '',
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Per-calendar-day review tallies. 'day' is a local ISO date (YYYY-MM-DD).
CREATE TABLE IF NOT EXISTS daily_progress (
    day TEXT PRIMARY KEY,
    reviewed INTEGER NOT NULL DEFAULT 0,
    correct INTEGER NOT NULL DEFAULT 0,
    incorrect INTEGER NOT NULL DEFAULT 0
);

-- Single-value settings such as the daily review goal.
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- The 'sources' table tracks where imported decks come from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
