// Package store implements Pingo's single-writer relational persistence
// layer: users, direct messages, groups, group messages, notes, and
// settings, backed by an embedded write-ahead-logged SQLite database.
//
// All access is serialized through a single mutex held for the duration
// of each operation's SQL. Callers must not invoke two Store operations
// concurrently on the same goroutine (no reentrancy).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRows indicates a point lookup found no matching row. It is
// sql.ErrNoRows itself, so callers can use errors.Is against either.
var ErrNoRows = sql.ErrNoRows

// Store owns the single *sql.DB connection and the mutex guarding it.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	metrics MetricsReporter
}

// Open creates the parent directory if needed, opens (or creates) the
// SQLite database at path in WAL journal mode with foreign keys enabled,
// and runs schema migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite serializes writers internally; a single connection avoids
	// SQLITE_BUSY churn under our own mutex discipline.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{db: db, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}

	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current time formatted as ISO-8601 UTC, the timestamp
// representation used throughout the schema.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	device_id TEXT NOT NULL,
	public_key TEXT,
	avatar_reference TEXT,
	bio TEXT,
	designation TEXT,
	last_seen TEXT,
	online INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	sender_id TEXT NOT NULL REFERENCES users(id),
	receiver_id TEXT NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'text',
	file_path TEXT,
	is_read INTEGER NOT NULL DEFAULT 0,
	is_delivered INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver_created
	ON messages(sender_id, receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_receiver_read_sender
	ON messages(receiver_id, is_read, sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);

CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'member',
	joined_at TEXT NOT NULL,
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS group_messages (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	sender_id TEXT NOT NULL,
	content TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'text',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_group_messages_group_created
	ON group_messages(group_id, created_at);

CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	color TEXT,
	pinned INTEGER NOT NULL DEFAULT 0,
	category TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_pinned_updated ON notes(pinned, updated_at);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// additive migrations applied after the base schema, matching spec.md
// §4.1's "bio, designation applied idempotently" requirement. SQLite has
// no IF NOT EXISTS clause for ADD COLUMN, so failures from an
// already-present column are tolerated.
var columnMigrations = []struct {
	table  string
	column string
	ddl    string
}{
	{"users", "bio", "ALTER TABLE users ADD COLUMN bio TEXT"},
	{"users", "designation", "ALTER TABLE users ADD COLUMN designation TEXT"},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	for _, m := range columnMigrations {
		has, err := s.hasColumn(m.table, m.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := s.db.Exec(m.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.table, m.column, err)
		}
	}

	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &primaryKey); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// isNoRows reports whether err represents an absent row.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
