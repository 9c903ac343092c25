package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/fentz26/crewclock/internal/models"
	"go.uber.org/zap"
)

// Remote is the slice of the backend API the queue drives.
type Remote interface {
	ClockIn(ctx context.Context, workerID, projectID int, ts time.Time) (*models.ClockEntry, error)
	ClockOut(ctx context.Context, workerID, projectID int, ts time.Time) (*models.ClockEntry, error)
	EnsureWorkerAssigned(ctx context.Context, projectID, workerID int) error
}

// Auditor records queue decisions. *audit.Writer satisfies it.
type Auditor interface {
	Record(action models.AuditAction, a models.PendingAction, outcome, details string) (*models.AuditEntry, error)
}

// Option configures a Recorder or Runner.
type Option func(*options)

type options struct {
	auditor Auditor
	now     func() time.Time
	notify  func(models.PendingAction)
}

// WithAuditor records every decision through a.
func WithAuditor(a Auditor) Option {
	return func(o *options) { o.auditor = a }
}

// WithClock overrides the time source used for action timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotify is called after an action is queued offline.
func WithNotify(fn func(models.PendingAction)) Option {
	return func(o *options) { o.notify = fn }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) record(logger *zap.Logger, action models.AuditAction, a models.PendingAction, outcome, details string) {
	if o.auditor == nil {
		return
	}
	if _, err := o.auditor.Record(action, a, outcome, details); err != nil {
		logger.Warn("audit write failed", zap.String("action", string(action)), zap.Error(err))
	}
}

// apply sends one action to the backend. Clock-ins make sure the worker is
// assigned to the project first.
func apply(ctx context.Context, remote Remote, a models.PendingAction) error {
	switch a.Kind {
	case models.ActionClockIn:
		if err := remote.EnsureWorkerAssigned(ctx, a.ProjectID, a.WorkerID); err != nil {
			return fmt.Errorf("assign worker %d to project %d: %w", a.WorkerID, a.ProjectID, err)
		}
		_, err := remote.ClockIn(ctx, a.WorkerID, a.ProjectID, a.Timestamp)
		return err
	case models.ActionClockOut:
		_, err := remote.ClockOut(ctx, a.WorkerID, a.ProjectID, a.Timestamp)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

func actionFields(a models.PendingAction) []zap.Field {
	return []zap.Field{
		zap.String("local_id", a.LocalID),
		zap.String("kind", string(a.Kind)),
		zap.Int("worker_id", a.WorkerID),
		zap.Int("project_id", a.ProjectID),
		zap.Time("timestamp", a.Timestamp),
	}
}
