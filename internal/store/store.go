package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Table names.
const (
	tableKV            = "kv"
	tableSessionEvents = "session_events"
	tableRemoteCalls   = "remote_calls"
)

// Store is the SQLite-backed Backend. Queries are built with the ent SQL
// builder so the statements stay dialect-correct.
type Store struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := &Store{db: db, b: entsql.Dialect(dialect.SQLite)}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.seq = seq

	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// KV returns the key-value view of this store.
func (s *Store) KV() KV {
	return &sqliteKV{db: s.db, b: s.b}
}

// Journal returns the append-only event journal of this store.
func (s *Store) Journal() Journal {
	return &sqliteJournal{db: s.db, b: s.b, seq: s.seq}
}

// schema lists the DDL applied on open. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableKV + ` (
		key        TEXT    NOT NULL PRIMARY KEY,
		value      BLOB    NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ` + tableSessionEvents + ` (
		sequence   INTEGER NOT NULL PRIMARY KEY,
		timestamp  INTEGER NOT NULL,
		session_id INTEGER NOT NULL,
		action     TEXT    NOT NULL,
		mode       TEXT    NOT NULL DEFAULT '',
		detail     TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS ` + tableRemoteCalls + ` (
		sequence   INTEGER NOT NULL PRIMARY KEY,
		timestamp  INTEGER NOT NULL,
		operation  TEXT    NOT NULL,
		request_id TEXT    NOT NULL DEFAULT '',
		success    INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		error      TEXT    NOT NULL DEFAULT ''
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. YACHAY_DB environment variable
// 2. $XDG_DATA_HOME/yachay/yachay.db
// 3. ~/.local/share/yachay/yachay.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("YACHAY_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "yachay", "yachay.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
