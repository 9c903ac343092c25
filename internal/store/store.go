// Package store provides SQLite-backed local persistence for crewclock.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSlotNotFound is returned by GetSlot when the key has never been written.
var ErrSlotNotFound = errors.New("slot not found")

// dsnParams are applied by the driver to every connection it opens. busy_timeout
// comes first so switching to WAL waits out another process holding a lock.
// _txlock=immediate makes every transaction take the write lock at BEGIN.
const dsnParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

// Store provides access to the local crewclock database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Slot Operations ---

// GetSlot returns the raw value stored under key.
func (s *Store) GetSlot(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query slot: %w", err)
	}
	return []byte(value), nil
}

// PutSlot overwrites the value stored under key in a single statement, so
// readers see either the old or the new value.
func (s *Store) PutSlot(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

// UpdateSlot replaces the value under key with fn's result inside one write
// transaction, so concurrent updaters in this or another process never lose
// each other's writes. found is false when the slot has never been written.
// An error from fn aborts the update and is returned as is.
func (s *Store) UpdateSlot(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin slot update: %w", err)
	}
	defer tx.Rollback()

	var value string
	found := true
	err = tx.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		found = false
	} else if err != nil {
		return fmt.Errorf("query slot: %w", err)
	}

	next, err := fn([]byte(value), found)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(next), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit slot update: %w", err)
	}
	return nil
}

// DeleteSlot removes a slot. Deleting a missing slot is not an error.
func (s *Store) DeleteSlot(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key)
	return err
}

// --- Audit Operations ---

// WriteAudit writes an audit record.
func (s *Store) WriteAudit(action, inputsHash, outcome, details string) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO audit_log (id, action, inputs_hash, outcome, details, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit: %w", err)
	}
	return entry, nil
}

// ListAudit returns the most recent audit records, newest first.
func (s *Store) ListAudit(action string, limit int) ([]models.AuditEntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, details, timestamp FROM audit_log`
	var args []interface{}

	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.InputsHash, &entry.Outcome, &details, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if details.Valid {
			entry.Details = details.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
