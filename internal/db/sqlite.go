package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// schemaSQL is the single source of truth for the database schema.
// It is embedded at compile time from schema.sql.
//
//go:embed schema.sql
var schemaSQL string

// SQLiteStore wraps a SQLite database connection with write serialization.
// SQLite only supports one writer at a time; the write mutex keeps concurrent
// schedule replacements from stepping on each other's transactions.
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection plus the write mutex serializes all writes, which
	// prevents "cannot start a transaction within a transaction" errors when
	// a live-fallback persist runs concurrently with a bulk refresh.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Ping verifies the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// EnsureSchema creates tables and indexes if they don't exist.
// Uses the embedded schema.sql file as the single source of truth.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
