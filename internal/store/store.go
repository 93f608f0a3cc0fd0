// Package store persists call data and master data in SQLite and answers
// the lookups the timeline views need.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by GetValue when the key has never been set.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for sessions, channels and master data.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; readers see the WAL.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Health reports whether the database answers.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS call_sessions (
			call_session_id TEXT PRIMARY KEY,
			start_timestamp REAL NOT NULL,
			end_timestamp REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_call_sessions_start ON call_sessions(start_timestamp);`,
		`CREATE TABLE IF NOT EXISTS call_channels (
			call_channel_id TEXT PRIMARY KEY,
			call_session_id TEXT NOT NULL REFERENCES call_sessions(call_session_id),
			call_direction TEXT NOT NULL,
			a_number INTEGER,
			b_number INTEGER,
			end_point_class TEXT NOT NULL,
			call_state TEXT NOT NULL,
			active INTEGER NOT NULL,
			answered INTEGER NOT NULL,
			hangup_by TEXT,
			hangup_reason TEXT,
			call_timestamp REAL NOT NULL,
			ringing_timestamp REAL,
			answer_timestamp REAL,
			hangup_timestamp REAL,
			login_id INTEGER,
			location_id INTEGER,
			device_id INTEGER,
			service_number_id INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_call_channels_session ON call_channels(call_session_id);`,
		`CREATE TABLE IF NOT EXISTS agents (
			agent_id INTEGER PRIMARY KEY,
			agent_first_name TEXT,
			agent_last_name TEXT,
			agent_email TEXT,
			agent_last_updated REAL
		);`,
		`CREATE TABLE IF NOT EXISTS internal_phones (
			location_id INTEGER PRIMARY KEY,
			location_number INTEGER,
			location_name TEXT,
			location_description TEXT,
			location_last_updated REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_internal_phones_number ON internal_phones(location_number);`,
		`CREATE TABLE IF NOT EXISTS service_numbers (
			service_number_id INTEGER PRIMARY KEY,
			service_number INTEGER,
			service_number_description TEXT,
			service_number_last_updated REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_service_numbers_number ON service_numbers(service_number);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			contact_id INTEGER PRIMARY KEY,
			first_name TEXT,
			last_name TEXT,
			email TEXT,
			pstn_number INTEGER,
			gsm_number INTEGER,
			company TEXT,
			comments TEXT,
			title TEXT,
			department TEXT,
			address TEXT,
			editable INTEGER,
			contact_last_updated REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_pstn ON contacts(pstn_number);`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_gsm ON contacts(gsm_number);`,
		`CREATE TABLE IF NOT EXISTS keyvalue (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetValue returns the value stored under key, or ErrNotFound.
func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM keyvalue WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrNotFound
	case err != nil:
		return "", err
	}
	return value, nil
}

// SetValue stores value under key, replacing any previous value.
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO keyvalue(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// inTx runs fn in a transaction, rolling back if fn fails.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// nullable stores zero numbers and empty strings as NULL.
func nullable[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}
