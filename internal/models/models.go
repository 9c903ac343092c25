// Package models defines the core domain types for crewclock.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ActionKind identifies a time-clock action.
type ActionKind string

const (
	ActionClockIn  ActionKind = "clockin"
	ActionClockOut ActionKind = "clockout"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	return k == ActionClockIn || k == ActionClockOut
}

// Label returns the button label shown for the action.
func (k ActionKind) Label() string {
	switch k {
	case ActionClockIn:
		return "Clock In"
	case ActionClockOut:
		return "Clock Out"
	default:
		return string(k)
	}
}

// PendingAction is a clock-in/out the backend has not confirmed yet.
type PendingAction struct {
	LocalID   string     `json:"local_id"`
	Kind      ActionKind `json:"kind"`
	WorkerID  int        `json:"worker_id"`
	ProjectID int        `json:"project_id"`
	Timestamp time.Time  `json:"timestamp"`
}

// Project mirrors the backend project record.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

// Project statuses used by the backend.
const (
	ProjectPlanned    = "Planned"
	ProjectInProgress = "In Progress"
	ProjectCompleted  = "Completed"
)

// Worker mirrors the backend worker record.
type Worker struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	AssignedProjectID *int   `json:"assigned_project_id,omitempty"`
}

// ClockEntry is a server-confirmed time entry.
type ClockEntry struct {
	ID           int        `json:"id"`
	WorkerID     int        `json:"worker_id"`
	ProjectID    int        `json:"project_id"`
	ClockInTime  Timestamp  `json:"clock_in_time"`
	ClockOutTime *Timestamp `json:"clock_out_time,omitempty"`
	TotalHours   *float64   `json:"total_hours,omitempty"`
}

// User is the signed-in backend user.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// QueryTicket is a support query raised against a project.
type QueryTicket struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	WorkerName  string    `json:"worker_name"`
	ProjectName string    `json:"project_name"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

// DisplayEntry is a render-ready row merging confirmed and pending entries.
type DisplayEntry struct {
	ID           string     `json:"id"`
	WorkerID     int        `json:"worker_id"`
	ProjectID    int        `json:"project_id"`
	WorkerName   string     `json:"worker_name"`
	ProjectName  string     `json:"project_name"`
	ClockInTime  time.Time  `json:"clock_in_time"`
	ClockOutTime *time.Time `json:"clock_out_time,omitempty"`
	TotalHours   *float64   `json:"total_hours,omitempty"`

	// Offline marks rows that carry at least one unsynced action.
	Offline         bool `json:"offline"`
	PendingClockOut bool `json:"pending_clock_out,omitempty"`
	OrphanClockOut  bool `json:"orphan_clock_out,omitempty"`
}

// Open reports whether the entry has no clock-out yet.
func (e DisplayEntry) Open() bool {
	return e.ClockOutTime == nil
}

// SyncReport summarizes one replay pass over the offline queue.
type SyncReport struct {
	Succeeded    int  `json:"succeeded"`
	StillPending int  `json:"still_pending"`
	Rejected     int  `json:"rejected"`
	Skipped      bool `json:"skipped,omitempty"`
}

// Outcome is the result of recording a clock action.
type Outcome string

const (
	OutcomeSynced        Outcome = "synced"
	OutcomeQueuedOffline Outcome = "queued_offline"
	OutcomeRejected      Outcome = "rejected"
)

// AuditAction names the queue decision an audit record describes.
type AuditAction string

const (
	AuditClockRecord AuditAction = "clock.record"
	AuditQueueReplay AuditAction = "queue.replay"
	AuditQueueDrop   AuditAction = "queue.drop"
)

// AuditActions lists every known audit action.
var AuditActions = []AuditAction{AuditClockRecord, AuditQueueReplay, AuditQueueDrop}

// Valid reports whether a is a known audit action.
func (a AuditAction) Valid() bool {
	for _, known := range AuditActions {
		if a == known {
			return true
		}
	}
	return false
}

// AuditEntry records a queue decision for later inspection.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Timestamp is a time.Time that also accepts the naive ISO-8601 values the
// backend emits for columns stored without a zone.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses RFC 3339 or a naive ISO-8601 value (read as UTC).
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
