// Package store persists interview sessions, assistant interactions, the
// question bank and users in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

// Options configures the SQLite store.
type Options struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path        string
	BusyTimeout time.Duration
}

// Store is the SQLite-backed session store and question bank.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens (creating if needed) the database at opts.Path and applies the schema.
func Open(ctx context.Context, opts Options, logger *logging.Logger) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("store path is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		opts.Path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; the version check covers interleaving
	// across requests, not across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, log: logger.Named("store")}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.log.Debug(ctx, "store opened", zap.String("path", opts.Path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS modules (
		module_code TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS questions (
		question_id TEXT PRIMARY KEY,
		module_code TEXT NOT NULL,
		topic_code  TEXT NOT NULL DEFAULT '',
		question    TEXT NOT NULL,
		difficulty  TEXT NOT NULL DEFAULT '',
		example     TEXT NOT NULL DEFAULT '',
		code_stub   TEXT NOT NULL DEFAULT '',
		tags        TEXT NOT NULL DEFAULT '[]',
		language    TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (module_code) REFERENCES modules(module_code)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id      TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		user_name       TEXT NOT NULL DEFAULT '',
		module_code     TEXT NOT NULL,
		question_id     TEXT NOT NULL,
		phase           TEXT NOT NULL,
		status          TEXT NOT NULL,
		total_questions INTEGER NOT NULL,
		rejections      INTEGER NOT NULL DEFAULT 0,
		seed            TEXT NOT NULL,
		follow_ups      TEXT NOT NULL DEFAULT '[]',
		clarifications  TEXT NOT NULL DEFAULT '[]',
		code            TEXT NOT NULL DEFAULT '',
		feedback        TEXT,
		version         INTEGER NOT NULL,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS interactions (
		interaction_id TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		kind           TEXT NOT NULL,
		question       TEXT NOT NULL DEFAULT '',
		input          TEXT NOT NULL DEFAULT '',
		output         TEXT NOT NULL DEFAULT '',
		score          REAL,
		created_at     INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_questions_module ON questions(module_code);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_question ON sessions(user_id, question_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, created_at DESC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
