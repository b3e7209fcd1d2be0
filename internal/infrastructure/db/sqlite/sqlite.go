package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for the SQLite-backed store.
type Config struct {
	Path            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// Timeout bounds every repository operation.
	Timeout time.Duration
}

// Open opens (or creates) the database file, applies connection pool bounds
// and creates the schema if it does not exist yet.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "crm.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(lifetime)

	pingCtx, cancel := context.WithTimeout(ctx, timeoutOr(cfg.Timeout))
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	level       INTEGER NOT NULL DEFAULT 0,
	permissions TEXT NOT NULL DEFAULT '{}'
) STRICT;

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	full_name     TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL,
	position_id   TEXT,
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS idx_users_position ON users(position_id);

CREATE TABLE IF NOT EXISTS auth_events (
	id        TEXT PRIMARY KEY,
	type      TEXT NOT NULL,
	user_id   TEXT,
	email     TEXT NOT NULL DEFAULT '',
	section   TEXT,
	action    TEXT,
	reason    TEXT,
	remote_ip TEXT,
	timestamp TEXT NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS idx_auth_events_user ON auth_events(user_id, timestamp);
`

// EnsureSchema creates the tables used by this package. It is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
