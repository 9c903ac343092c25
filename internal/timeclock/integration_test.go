package timeclock_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/audit"
	"github.com/fentz26/crewclock/internal/config"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/offline"
	"github.com/fentz26/crewclock/internal/store"
	"github.com/fentz26/crewclock/internal/timeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// backend emulates the clock endpoints of the project-management API.
type backend struct {
	down atomic.Bool

	mu      sync.Mutex
	entries []models.ClockEntry
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.down.Load() {
		http.Error(w, `{"detail":"maintenance"}`, http.StatusServiceUnavailable)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]string{"message": "Backend running successfully"})
	case r.URL.Path == "/workers/":
		writeJSON(w, http.StatusOK, []models.Worker{{ID: 1, Name: "Alice", Role: "Electrician"}, {ID: 2, Name: "Bob", Role: "Welder"}})
	case r.URL.Path == "/projects/":
		writeJSON(w, http.StatusOK, []models.Project{{ID: 9, Name: "Atlas", Status: models.ProjectInProgress}})
	case r.URL.Path == "/clock_entries/":
		writeJSON(w, http.StatusOK, b.entries)
	case r.URL.Path == "/projects/9/assign":
		writeJSON(w, http.StatusOK, map[string]string{"message": "Worker assigned"})
	case r.URL.Path == "/clockin/" || r.URL.Path == "/clockout/":
		b.clock(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (b *backend) clock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID  int    `json:"worker_id"`
		ProjectID int    `json:"project_id"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	ts, err := models.ParseTimestamp(req.Timestamp)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	open := -1
	for i, e := range b.entries {
		if e.WorkerID == req.WorkerID && e.ClockOutTime == nil {
			open = i
		}
	}

	if r.URL.Path == "/clockin/" {
		if open >= 0 {
			detail := fmt.Sprintf("Worker already clocked in on Project ID %d", b.entries[open].ProjectID)
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": detail})
			return
		}
		e := models.ClockEntry{ID: len(b.entries) + 1, WorkerID: req.WorkerID, ProjectID: req.ProjectID, ClockInTime: models.Timestamp{Time: ts}}
		b.entries = append(b.entries, e)
		writeJSON(w, http.StatusOK, e)
		return
	}

	if open < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No active clock-in found for this worker"})
		return
	}
	hours := ts.Sub(b.entries[open].ClockInTime.Time).Hours()
	b.entries[open].ClockOutTime = &models.Timestamp{Time: ts}
	b.entries[open].TotalHours = &hours
	writeJSON(w, http.StatusOK, b.entries[open])
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	backend *backend
	store   *store.Store
	queue   *offline.Queue
	service *timeclock.Service
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	b := &backend{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	st, err := store.New(filepath.Join(t.TempDir(), "crewclock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := &harness{backend: b, store: st, now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	logger := zap.NewNop()
	client := api.NewClient(srv.URL, 2*time.Second, logger)
	auditor := audit.NewWriter(st)
	h.queue = offline.NewQueue(offline.NewSlotStore(st, config.DefaultQueueKey, logger))
	recorder := offline.NewRecorder(client, h.queue, logger, offline.WithAuditor(auditor), offline.WithClock(clock))
	runner := offline.NewRunner(client, h.queue, logger, offline.WithAuditor(auditor))
	h.service = timeclock.NewService(client, h.queue, recorder, runner, auditor, logger)
	return h
}

func TestOfflineRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Backend down: both actions land in the queue with their original times.
	h.backend.down.Store(true)
	outcome, err := h.service.ClockAction(ctx, models.ActionClockIn, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeQueuedOffline, outcome)

	h.now = h.now.Add(4 * time.Hour)
	outcome, err = h.service.ClockAction(ctx, models.ActionClockOut, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeQueuedOffline, outcome)

	_, err = h.service.Load(ctx)
	assert.Error(t, err, "load fails while the backend is down")
	assert.Equal(t, 2, h.queue.Len(ctx))

	report := h.service.Sync(ctx)
	assert.Equal(t, models.SyncReport{StillPending: 2}, report)

	// Backend back: the queue drains in order.
	h.backend.down.Store(false)
	report = h.service.Sync(ctx)
	assert.Equal(t, models.SyncReport{Succeeded: 2}, report)
	assert.Equal(t, 0, h.queue.Len(ctx))

	board, err := h.service.Load(ctx)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	e := board.Entries[0]
	assert.Equal(t, "Alice", e.WorkerName)
	assert.Equal(t, "Atlas", e.ProjectName)
	assert.False(t, e.Offline)
	require.NotNil(t, e.TotalHours)
	assert.InDelta(t, 4.0, *e.TotalHours, 1e-9)
	assert.True(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC).Equal(e.ClockInTime))

	records, err := h.store.ListAudit(string(models.AuditQueueReplay), 0)
	require.NoError(t, err)
	assert.Len(t, records, 2+2, "two retained and two successful replays")
}

func TestRejectionIsNotQueued(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.service.ClockAction(ctx, models.ActionClockIn, 2, 9)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSynced, outcome)

	outcome, err = h.service.ClockAction(ctx, models.ActionClockIn, 2, 9)
	require.Error(t, err)
	assert.Equal(t, models.OutcomeRejected, outcome)
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, "Worker already clocked in on Project ID 9", timeclock.ActionNotice(models.ActionClockIn, outcome, err))
	assert.Equal(t, 0, h.queue.Len(ctx))
}

func TestQueueSurvivesRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.backend.down.Store(true)
	_, err := h.service.ClockAction(ctx, models.ActionClockIn, 1, 9)
	require.NoError(t, err)

	// A second queue over the same slot sees the persisted action.
	reopened := offline.NewQueue(offline.NewSlotStore(h.store, config.DefaultQueueKey, zap.NewNop()))
	pending := reopened.Snapshot(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, models.ActionClockIn, pending[0].Kind)
	assert.Regexp(t, `^offline-[0-9a-f-]{36}$`, pending[0].LocalID)

	board := timeclock.BuildBoard(nil, []models.Worker{{ID: 1, Name: "Alice"}}, []models.Project{{ID: 9, Name: "Atlas"}}, pending)
	require.Len(t, board.Workers, 1)
	assert.Equal(t, "Waiting to Sync on Atlas", board.Workers[0].StatusText())
}
