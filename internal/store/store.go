// Package store is the SQLite-backed local cache for time entries, projects,
// and tags. All dashboard and query reads run against this database; the
// vendor API is only consulted during sync operations.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"trackdash/internal/model"
	"trackdash/internal/timecalc"
)

// Store owns all persisted state. It assumes a single writer at a time;
// concurrent readers are served through SQLite's WAL mode.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS time_entries (
	id              INTEGER PRIMARY KEY,
	description     TEXT,
	start           TEXT NOT NULL,
	stop            TEXT,
	duration        INTEGER NOT NULL,
	project_id      INTEGER,
	project_name    TEXT,
	workspace_id    INTEGER,
	tags            TEXT,           -- JSON array of tag names
	tag_ids         TEXT,           -- JSON array of tag IDs
	billable        INTEGER DEFAULT 0,
	at              TEXT,           -- last updated timestamp
	-- Derived columns for fast querying
	start_date      TEXT,           -- YYYY-MM-DD extracted from start
	start_year      INTEGER,
	start_month     INTEGER,
	start_day       INTEGER,
	start_week      INTEGER,        -- ISO week number
	duration_hours  REAL            -- duration in hours
);

CREATE TABLE IF NOT EXISTS projects (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL,
	workspace_id    INTEGER,
	color           TEXT,
	active          INTEGER DEFAULT 1,
	at              TEXT
);

CREATE TABLE IF NOT EXISTS tags (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL,
	workspace_id    INTEGER
);

CREATE TABLE IF NOT EXISTS sync_meta (
	key             TEXT PRIMARY KEY,
	value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_start_date ON time_entries(start_date);
CREATE INDEX IF NOT EXISTS idx_entries_year ON time_entries(start_year);
CREATE INDEX IF NOT EXISTS idx_entries_month_day ON time_entries(start_month, start_day);
CREATE INDEX IF NOT EXISTS idx_entries_project ON time_entries(project_id);
CREATE INDEX IF NOT EXISTS idx_entries_week ON time_entries(start_year, start_week);
`

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertTimeEntries inserts or fully replaces entries by id in a single
// transaction. Derived date columns are computed here, at write time.
// Negative (running) durations are stored as-is but clamp to zero hours.
func (s *Store) UpsertTimeEntries(entries []model.TimeEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning entry upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO time_entries
			(id, description, start, stop, duration, project_id, project_name,
			 workspace_id, tags, tag_ids, billable, at,
			 start_date, start_year, start_month, start_day, start_week, duration_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entry upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		parts := timecalc.DeriveDateParts(e.Start)

		hours := float64(e.Duration) / 3600.0
		if e.Duration < 0 {
			hours = 0
		}

		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		tagIDs := e.TagIDs
		if tagIDs == nil {
			tagIDs = []int64{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encoding tags for entry %d: %w", e.ID, err)
		}
		tagIDsJSON, err := json.Marshal(tagIDs)
		if err != nil {
			return fmt.Errorf("encoding tag ids for entry %d: %w", e.ID, err)
		}

		if _, err := stmt.Exec(
			e.ID, e.Description, e.Start, e.Stop, e.Duration,
			e.ProjectID, e.ProjectName, e.WorkspaceID,
			string(tagsJSON), string(tagIDsJSON), boolToInt(e.Billable), e.At,
			nullString(parts.Date), nullInt(parts.Year), nullInt(parts.Month),
			nullInt(parts.Day), nullInt(parts.Week), hours,
		); err != nil {
			return fmt.Errorf("upserting entry %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertProjects inserts or fully replaces projects by id.
func (s *Store) UpsertProjects(projects []model.Project) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning project upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO projects (id, name, workspace_id, color, active, at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing project upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range projects {
		if _, err := stmt.Exec(p.ID, p.Name, p.WorkspaceID, p.Color, boolToInt(p.Active), p.At); err != nil {
			return fmt.Errorf("upserting project %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertTags inserts or fully replaces tags by id.
func (s *Store) UpsertTags(tags []model.Tag) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning tag upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO tags (id, name, workspace_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing tag upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tags {
		if _, err := stmt.Exec(t.ID, t.Name, t.WorkspaceID); err != nil {
			return fmt.Errorf("upserting tag %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// SetMeta writes a sync-metadata value. Last write wins.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("writing sync meta %q: %w", key, err)
	}
	return nil
}

// GetMeta reads a sync-metadata value. A missing key yields "".
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM sync_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync meta %q: %w", key, err)
	}
	return value, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString maps "" to NULL so substring-derived rows store like the
// originals.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt maps 0 to NULL: derived date fields use 0 as "could not derive".
func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
