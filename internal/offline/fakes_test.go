package offline

import (
	"context"
	"sync"
	"time"

	"github.com/fentz26/crewclock/internal/models"
)

type fakeRemote struct {
	mu      sync.Mutex
	calls   []models.PendingAction
	assigns []int
	failFn  func(models.PendingAction) error
	started chan struct{}
	release chan struct{}
}

func (f *fakeRemote) EnsureWorkerAssigned(ctx context.Context, projectID, workerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns = append(f.assigns, workerID)
	return nil
}

func (f *fakeRemote) ClockIn(ctx context.Context, workerID, projectID int, ts time.Time) (*models.ClockEntry, error) {
	return f.call(models.PendingAction{Kind: models.ActionClockIn, WorkerID: workerID, ProjectID: projectID, Timestamp: ts})
}

func (f *fakeRemote) ClockOut(ctx context.Context, workerID, projectID int, ts time.Time) (*models.ClockEntry, error) {
	return f.call(models.PendingAction{Kind: models.ActionClockOut, WorkerID: workerID, ProjectID: projectID, Timestamp: ts})
}

func (f *fakeRemote) call(a models.PendingAction) (*models.ClockEntry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, a)
	failFn := f.failFn
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if failFn != nil {
		if err := failFn(a); err != nil {
			return nil, err
		}
	}
	return &models.ClockEntry{WorkerID: a.WorkerID, ProjectID: a.ProjectID}, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAuditor struct {
	mu       sync.Mutex
	outcomes []string
}

func (a *fakeAuditor) Record(action models.AuditAction, _ models.PendingAction, outcome, details string) (*models.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, string(action)+":"+outcome)
	return &models.AuditEntry{Action: string(action), Outcome: outcome}, nil
}

var baseTime = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func pending(id string, kind models.ActionKind, worker, project int, offset time.Duration) models.PendingAction {
	return models.PendingAction{
		LocalID:   id,
		Kind:      kind,
		WorkerID:  worker,
		ProjectID: project,
		Timestamp: baseTime.Add(offset),
	}
}
