package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Alert is one fired alert, kept for diagnostics. History rows never
// feed back into alert decisions; the JSON deadline store alone decides
// what fires.
type Alert struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// History is the sqlite-backed log of every alert the notifier fired.
type History struct {
	db *sqlx.DB
}

// OpenHistory opens (or creates) the alert history database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func OpenHistory(dbPath string) (*History, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	h := &History{db: db}
	if err := h.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return h, nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (h *History) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := h.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = h.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := h.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Record inserts one fired alert.
func (h *History) Record(ctx context.Context, title, body string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO alerts (id, title, body, created_at)
		VALUES (?, ?, ?, ?)`,
		uuid.New().String(), title, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording alert: %w", err)
	}
	return nil
}

// Recent retrieves the most recently fired alerts, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	var alerts []Alert
	err := h.db.SelectContext(ctx, &alerts,
		"SELECT id, title, body, created_at FROM alerts ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}

	return alerts, nil
}
