package offline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = &api.Error{StatusCode: http.StatusBadGateway, Detail: "bad gateway"}

func TestRunner_EmptyQueue(t *testing.T) {
	ms := NewMemoryStore()
	remote := &fakeRemote{}
	r := NewRunner(remote, NewQueue(ms), nil)

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{}, report)
	assert.Zero(t, remote.callCount())
	assert.Zero(t, ms.Saves())
	assert.Empty(t, ms.Load(context.Background()))
}

func TestRunner_KeepsOnlyFailures(t *testing.T) {
	actions := []models.PendingAction{
		pending("1", models.ActionClockIn, 1, 9, 0),
		pending("2", models.ActionClockIn, 2, 9, time.Minute),
		pending("3", models.ActionClockOut, 1, 9, time.Hour),
	}
	ms := NewMemoryStore(actions...)
	remote := &fakeRemote{failFn: func(a models.PendingAction) error {
		if a.WorkerID == 2 {
			return errUnavailable
		}
		return nil
	}}
	aud := &fakeAuditor{}
	r := NewRunner(remote, NewQueue(ms), nil, WithAuditor(aud))

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{Succeeded: 2, StillPending: 1}, report)
	if diff := cmp.Diff([]models.PendingAction{actions[1]}, ms.Load(context.Background())); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}

	// Replays are sequential, in stored order, with stored timestamps.
	require.Len(t, remote.calls, 3)
	for i, call := range remote.calls {
		assert.True(t, actions[i].Timestamp.Equal(call.Timestamp), "call %d timestamp", i)
		assert.Equal(t, actions[i].Kind, call.Kind)
	}
	assert.Equal(t, []int{1, 2}, remote.assigns, "clock-in replays re-run assignment")
	assert.Equal(t, []string{"queue.replay:success", "queue.replay:retained", "queue.replay:success"}, aud.outcomes)
}

func TestRunner_FullDrainWritesEmptyList(t *testing.T) {
	ms := NewMemoryStore(pending("1", models.ActionClockIn, 1, 9, 0))
	r := NewRunner(&fakeRemote{}, NewQueue(ms), nil)

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{Succeeded: 1}, report)
	assert.Equal(t, 1, ms.Saves())
	got := ms.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRunner_AllUnavailableRetainsEverything(t *testing.T) {
	actions := []models.PendingAction{
		pending("1", models.ActionClockIn, 1, 9, 0),
		pending("2", models.ActionClockOut, 1, 9, time.Hour),
		pending("3", models.ActionClockIn, 1, 9, time.Hour),
	}
	ms := NewMemoryStore(actions...)
	remote := &fakeRemote{failFn: func(models.PendingAction) error { return errUnavailable }}
	r := NewRunner(remote, NewQueue(ms), nil)

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{StillPending: 3}, report)
	if diff := cmp.Diff(actions, ms.Load(context.Background())); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_RejectionsRetainedAndCounted(t *testing.T) {
	ms := NewMemoryStore(pending("1", models.ActionClockOut, 4, 9, 0))
	remote := &fakeRemote{failFn: func(models.PendingAction) error {
		return &api.Error{StatusCode: http.StatusBadRequest, Detail: "No active clock-in found for this worker"}
	}}
	r := NewRunner(remote, NewQueue(ms), nil)

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{StillPending: 1, Rejected: 1}, report)
	assert.Len(t, ms.Load(context.Background()), 1)
}

func TestRunner_KeepsActionsQueuedDuringRun(t *testing.T) {
	ms := NewMemoryStore(
		pending("1", models.ActionClockIn, 1, 9, 0),
		pending("2", models.ActionClockIn, 2, 9, 0),
	)
	q := NewQueue(ms)
	var once sync.Once
	remote := &fakeRemote{}
	remote.failFn = func(a models.PendingAction) error {
		once.Do(func() {
			require.NoError(t, q.Append(context.Background(), pending("late", models.ActionClockOut, 3, 9, time.Hour)))
		})
		if a.WorkerID == 2 {
			return errUnavailable
		}
		return nil
	}
	r := NewRunner(remote, q, nil)

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{Succeeded: 1, StillPending: 1}, report)
	assert.Equal(t, []string{"2", "late"}, localIDs(ms.Load(context.Background())))
}

func TestRunner_CanceledContextRetainsRest(t *testing.T) {
	ms := NewMemoryStore(
		pending("1", models.ActionClockIn, 1, 9, 0),
		pending("2", models.ActionClockIn, 2, 9, 0),
	)
	ctx, cancel := context.WithCancel(context.Background())
	remote := &fakeRemote{}
	remote.failFn = func(models.PendingAction) error {
		cancel()
		return nil
	}
	r := NewRunner(remote, NewQueue(ms), nil)

	report := r.Sync(ctx)

	assert.Equal(t, models.SyncReport{Succeeded: 1, StillPending: 1}, report)
	assert.Equal(t, 1, remote.callCount())
	assert.Equal(t, []string{"2"}, localIDs(ms.Load(context.Background())))
}

func TestRunner_ConcurrentSyncIsSkipped(t *testing.T) {
	ms := NewMemoryStore(
		pending("1", models.ActionClockIn, 1, 9, 0),
		pending("2", models.ActionClockOut, 1, 9, time.Hour),
	)
	remote := &fakeRemote{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	r := NewRunner(remote, NewQueue(ms), nil)

	done := make(chan models.SyncReport, 1)
	go func() { done <- r.Sync(context.Background()) }()

	<-remote.started
	second := r.Sync(context.Background())
	assert.Equal(t, models.SyncReport{Skipped: true}, second)

	close(remote.release)
	first := <-done

	assert.Equal(t, models.SyncReport{Succeeded: 2}, first)
	assert.Equal(t, 2, remote.callCount(), "each action replayed exactly once")
	assert.Empty(t, ms.Load(context.Background()))

	// The guard is released once the pass finishes.
	assert.Equal(t, models.SyncReport{}, r.Sync(context.Background()))
}

// failingStore rejects the next failUpdates writes made through Update.
type failingStore struct {
	*MemoryStore
	mu          sync.Mutex
	failUpdates int
}

func (f *failingStore) Update(ctx context.Context, fn func([]models.PendingAction) ([]models.PendingAction, error)) error {
	f.mu.Lock()
	fail := f.failUpdates > 0
	if fail {
		f.failUpdates--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return f.MemoryStore.Update(ctx, fn)
}

func TestRunner_FailedCommitDoesNotReplayTwice(t *testing.T) {
	fs := &failingStore{
		MemoryStore: NewMemoryStore(
			pending("1", models.ActionClockIn, 1, 9, 0),
			pending("2", models.ActionClockIn, 2, 9, 0),
		),
		failUpdates: 2,
	}
	remote := &fakeRemote{}
	r := NewRunner(remote, NewQueue(fs), nil)

	first := r.Sync(context.Background())
	assert.Equal(t, models.SyncReport{Succeeded: 2}, first)
	assert.Len(t, fs.Load(context.Background()), 2, "commit failed, store unchanged")

	// The cleanup write fails again; the replayed actions are still skipped.
	second := r.Sync(context.Background())
	assert.Equal(t, models.SyncReport{}, second)
	assert.Equal(t, 2, remote.callCount())

	third := r.Sync(context.Background())
	assert.Equal(t, models.SyncReport{}, third)
	assert.Equal(t, 2, remote.callCount(), "each action replayed exactly once")
	assert.Empty(t, fs.Load(context.Background()))
}

func TestRunner_FailedCommitKeepsLaterAppends(t *testing.T) {
	fs := &failingStore{
		MemoryStore: NewMemoryStore(pending("1", models.ActionClockIn, 1, 9, 0)),
		failUpdates: 1,
	}
	q := NewQueue(fs)
	remote := &fakeRemote{}
	r := NewRunner(remote, q, nil)

	r.Sync(context.Background())
	require.NoError(t, q.Append(context.Background(), pending("late", models.ActionClockOut, 1, 9, time.Hour)))

	report := r.Sync(context.Background())

	assert.Equal(t, models.SyncReport{Succeeded: 1}, report)
	assert.Equal(t, 2, remote.callCount())
	assert.Empty(t, fs.Load(context.Background()))
}
