// Package timeclock provides the time-clock board: loading entries, recording
// clock actions and syncing the offline queue.
package timeclock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/offline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Backend is the read side of the API the board needs.
type Backend interface {
	ListClockEntries(ctx context.Context, workerID, projectID int) ([]models.ClockEntry, error)
	ListWorkers(ctx context.Context, projectID int) ([]models.Worker, error)
	ListProjects(ctx context.Context, status string) ([]models.Project, error)
}

// Recorder performs a single clock action.
type Recorder interface {
	Record(ctx context.Context, kind models.ActionKind, workerID, projectID int) (models.Outcome, error)
}

// Service provides the time-clock business logic.
type Service struct {
	backend  Backend
	queue    *offline.Queue
	recorder Recorder
	syncer   offline.Syncer
	auditor  offline.Auditor
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[int]bool
}

// NewService creates a new time-clock service. auditor may be nil.
func NewService(b Backend, q *offline.Queue, r Recorder, s offline.Syncer, auditor offline.Auditor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:  b,
		queue:    q,
		recorder: r,
		syncer:   s,
		auditor:  auditor,
		logger:   logger,
		inFlight: make(map[int]bool),
	}
}

// Load fetches entries, workers and projects in parallel and merges the
// offline queue into the result.
func (s *Service) Load(ctx context.Context) (*Board, error) {
	var (
		entries  []models.ClockEntry
		workers  []models.Worker
		projects []models.Project
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.backend.ListClockEntries(gctx, 0, 0)
		return err
	})
	g.Go(func() error {
		var err error
		workers, err = s.backend.ListWorkers(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.backend.ListProjects(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load time-clock data: %w", err)
	}

	return BuildBoard(entries, workers, projects, s.queue.Snapshot(ctx)), nil
}

// ClockAction records kind for workerID on projectID. Only one action per
// worker may be in flight; others return ErrActionInFlight immediately.
func (s *Service) ClockAction(ctx context.Context, kind models.ActionKind, workerID, projectID int) (models.Outcome, error) {
	if projectID <= 0 {
		return "", ErrNoProject
	}
	if !s.acquire(workerID) {
		return "", ErrActionInFlight
	}
	defer s.release(workerID)

	outcome, err := s.recorder.Record(ctx, kind, workerID, projectID)
	if err != nil {
		s.logger.Debug("clock action failed",
			zap.String("kind", string(kind)),
			zap.Int("worker_id", workerID),
			zap.Error(err))
	}
	return outcome, err
}

func (s *Service) acquire(workerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[workerID] {
		return false
	}
	s.inFlight[workerID] = true
	return true
}

func (s *Service) release(workerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, workerID)
}

// Sync replays the offline queue.
func (s *Service) Sync(ctx context.Context) models.SyncReport {
	return s.syncer.Sync(ctx)
}

// Pending returns the queued actions. Names are resolved when lookups are
// supplied.
func (s *Service) Pending(ctx context.Context, workers []models.Worker, projects []models.Project) []PendingItem {
	return pendingItems(s.queue.Snapshot(ctx), offline.NewNames(workers, projects))
}

// Drop removes a queued action by local id without replaying it.
func (s *Service) Drop(ctx context.Context, localID string) (models.PendingAction, error) {
	a, err := s.queue.Remove(ctx, localID)
	if err != nil {
		return a, err
	}
	s.logger.Info("dropped queued action", zap.String("local_id", localID))
	if s.auditor != nil {
		if _, aerr := s.auditor.Record(models.AuditQueueDrop, a, "success", ""); aerr != nil {
			s.logger.Warn("audit write failed", zap.Error(aerr))
		}
	}
	return a, nil
}

// ActionNotice is the message shown after a clock action.
func ActionNotice(kind models.ActionKind, outcome models.Outcome, err error) string {
	switch {
	case errors.Is(err, ErrNoProject):
		return "Please select a project first."
	case errors.Is(err, ErrActionInFlight):
		return "Action already in progress for this worker."
	case outcome == models.OutcomeSynced:
		return kind.Label() + " recorded."
	case outcome == models.OutcomeQueuedOffline:
		return "Saved offline. Waiting to sync."
	case outcome == models.OutcomeRejected:
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "Action rejected by the server."
	default:
		return "Action failed. Please check your internet connection."
	}
}

// SyncNotice is the message shown after a sync pass.
func SyncNotice(r models.SyncReport) string {
	switch {
	case r.Skipped:
		return "Sync already in progress."
	case r.Succeeded == 0 && r.StillPending == 0:
		return "No offline entries to sync."
	case r.StillPending == 0:
		return "Offline entries synced successfully."
	case r.Rejected > 0:
		return fmt.Sprintf("Synced %d, %d still pending (%d rejected by the server).", r.Succeeded, r.StillPending, r.Rejected)
	default:
		return fmt.Sprintf("Synced %d, %d still pending. Try again.", r.Succeeded, r.StillPending)
	}
}
