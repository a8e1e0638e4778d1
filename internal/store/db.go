package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and applies the
// schema.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

// migrate applies the schema. The partial unique indexes on attendance_events
// are the correctness backstop for the duplicate guard: two scans racing past
// the application-level existence check cannot both insert.
func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS roster_entries (
		national_id         TEXT PRIMARY KEY,
		enrollment_code     TEXT UNIQUE NOT NULL,
		full_name           TEXT NOT NULL,
		school              TEXT NOT NULL,
		faculty             TEXT NOT NULL,
		institutional_email TEXT,
		personal_email      TEXT,
		semester            INT,
		status              TEXT NOT NULL DEFAULT 'REGULAR',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attendance_events (
		id          TEXT PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		event_date  DATE NOT NULL,
		floor       INT NOT NULL,
		shift       TEXT NOT NULL,
		code_kind   TEXT NOT NULL,
		raw_code    TEXT NOT NULL,
		national_id TEXT,
		lookup      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uniq_event_identity
		ON attendance_events (national_id, floor, shift, event_date)
		WHERE national_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS uniq_event_code
		ON attendance_events (code_kind, raw_code, floor, shift, event_date)
		WHERE national_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_events_date ON attendance_events (event_date, floor);

	CREATE TABLE IF NOT EXISTS shift_windows (
		id              SERIAL PRIMARY KEY,
		morning_start   TIME NOT NULL,
		morning_end     TIME NOT NULL,
		afternoon_start TIME NOT NULL,
		afternoon_end   TIME NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS terminals (
		terminal_id TEXT PRIMARY KEY,
		floor       INT NOT NULL,
		last_seen   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS admin_users (
		username      TEXT PRIMARY KEY,
		email         TEXT,
		password_hash TEXT NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	// Seed a default shift window so resolution never depends on an admin
	// remembering to insert one.
	_, err := db.Exec(`
		INSERT INTO shift_windows (morning_start, morning_end, afternoon_start, afternoon_end)
		SELECT '08:00', '13:00', '14:00', '20:00'
		WHERE NOT EXISTS (SELECT 1 FROM shift_windows)
	`)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
