// Package audit records queue decisions (record, replay, drop) for later review.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/store"
)

// ErrUnknownAction is returned for an audit action outside models.AuditActions.
var ErrUnknownAction = errors.New("unknown audit action")

// Writer writes audit records to the local store.
type Writer struct {
	store *store.Store
}

// NewWriter creates a new audit writer.
func NewWriter(s *store.Store) *Writer {
	return &Writer{store: s}
}

// Record stores what happened to a under action. The record carries a
// fingerprint of a rather than the action itself.
func (w *Writer) Record(action models.AuditAction, a models.PendingAction, outcome, details string) (*models.AuditEntry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return w.store.WriteAudit(string(action), Fingerprint(a), outcome, details)
}

// Recent returns up to limit records, newest first. An empty action matches
// every record; limit <= 0 means no limit.
func (w *Writer) Recent(action models.AuditAction, limit int) ([]models.AuditEntry, error) {
	if action != "" && !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return w.store.ListAudit(string(action), limit)
}

// Fingerprint is the hex SHA-256 of the fields that identify a queued action.
// The same action hashes the same across record, replay and drop.
func Fingerprint(a models.PendingAction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s", a.LocalID, a.Kind, a.WorkerID, a.ProjectID,
		a.Timestamp.UTC().Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))
}
