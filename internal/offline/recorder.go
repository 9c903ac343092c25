package offline

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder performs clock actions, falling back to the queue when the backend
// cannot be reached.
type Recorder struct {
	remote Remote
	queue  *Queue
	logger *zap.Logger
	opts   options
}

// NewRecorder creates a recorder.
func NewRecorder(remote Remote, queue *Queue, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		remote: remote,
		queue:  queue,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// Record clocks workerID in or out of projectID as of now. A transient failure
// queues the action and returns OutcomeQueuedOffline with a nil error. A
// business rejection returns OutcomeRejected with the backend error and
// queues nothing.
func (r *Recorder) Record(ctx context.Context, kind models.ActionKind, workerID, projectID int) (models.Outcome, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	action := models.PendingAction{
		Kind:      kind,
		WorkerID:  workerID,
		ProjectID: projectID,
		Timestamp: r.opts.now(),
	}

	err := apply(ctx, r.remote, action)
	if err == nil {
		r.logger.Info("clock action synced", actionFields(action)...)
		r.opts.record(r.logger, models.AuditClockRecord, action, string(models.OutcomeSynced), "")
		return models.OutcomeSynced, nil
	}

	if errors.Is(err, context.Canceled) {
		return "", err
	}
	if !api.IsTransient(err) {
		r.logger.Warn("clock action rejected", append(actionFields(action), zap.Error(err))...)
		r.opts.record(r.logger, models.AuditClockRecord, action, string(models.OutcomeRejected), err.Error())
		return models.OutcomeRejected, err
	}

	action.LocalID = "offline-" + uuid.New().String()
	if qerr := r.queue.Append(context.WithoutCancel(ctx), action); qerr != nil {
		return "", fmt.Errorf("queue offline action after %v: %w", err, qerr)
	}

	r.logger.Info("clock action queued offline", append(actionFields(action), zap.Error(err))...)
	r.opts.record(r.logger, models.AuditClockRecord, action, string(models.OutcomeQueuedOffline), err.Error())
	if r.opts.notify != nil {
		r.opts.notify(action)
	}
	return models.OutcomeQueuedOffline, nil
}
