package offline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/models"
	"go.uber.org/zap"
)

// Runner replays the offline queue against the backend.
type Runner struct {
	remote  Remote
	queue   *Queue
	logger  *zap.Logger
	opts    options
	running atomic.Bool

	// unsaved holds actions the backend accepted whose removal from the
	// queue could not be written yet. Only touched while running is held.
	unsaved []models.PendingAction
}

// NewRunner creates a sync runner.
func NewRunner(remote Remote, queue *Queue, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		remote: remote,
		queue:  queue,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// Sync replays queued actions one at a time in queue order, each with its
// original timestamp. Replayed actions leave the queue; failed ones stay
// unchanged, followed by anything queued while the pass ran. Only one pass
// runs at a time: a concurrent call returns a report with Skipped set and
// touches nothing. Sync never fails; failures are counted in the report.
func (r *Runner) Sync(ctx context.Context) models.SyncReport {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Debug("sync already in progress")
		return models.SyncReport{Skipped: true}
	}
	defer r.running.Store(false)

	r.flushUnsaved(ctx)
	snapshot := r.withoutUnsaved(r.queue.Snapshot(ctx))
	if len(snapshot) == 0 {
		return models.SyncReport{}
	}

	r.logger.Info("replaying offline queue", zap.Int("pending", len(snapshot)))

	var report models.SyncReport
	var replayed []models.PendingAction
	retained := make([]models.PendingAction, 0, len(snapshot))
	for _, a := range snapshot {
		if ctx.Err() != nil {
			retained = append(retained, a)
			continue
		}

		err := apply(ctx, r.remote, a)
		if err == nil {
			report.Succeeded++
			replayed = append(replayed, a)
			r.logger.Debug("replayed action", actionFields(a)...)
			r.opts.record(r.logger, models.AuditQueueReplay, a, "success", "")
			continue
		}

		retained = append(retained, a)
		if !api.IsTransient(err) && !errors.Is(err, context.Canceled) {
			report.Rejected++
			r.logger.Warn("backend rejected queued action", append(actionFields(a), zap.Error(err))...)
			r.opts.record(r.logger, models.AuditQueueReplay, a, string(models.OutcomeRejected), err.Error())
			continue
		}
		r.logger.Debug("replay failed, keeping action", append(actionFields(a), zap.Error(err))...)
		r.opts.record(r.logger, models.AuditQueueReplay, a, "retained", err.Error())
	}
	report.StillPending = len(retained)

	if err := r.queue.commit(context.WithoutCancel(ctx), snapshot, retained); err != nil {
		r.logger.Error("saving offline queue after sync", zap.Error(err))
		r.unsaved = append(r.unsaved, replayed...)
	}

	r.logger.Info("offline sync finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("still_pending", report.StillPending),
		zap.Int("rejected", report.Rejected))
	return report
}

// flushUnsaved retries removing actions that were replayed by an earlier pass
// whose commit failed.
func (r *Runner) flushUnsaved(ctx context.Context) {
	if len(r.unsaved) == 0 {
		return
	}
	if err := r.queue.commit(context.WithoutCancel(ctx), r.unsaved, nil); err != nil {
		r.logger.Warn("offline queue still holds replayed actions", zap.Int("count", len(r.unsaved)), zap.Error(err))
		return
	}
	r.unsaved = nil
}

// withoutUnsaved drops actions that were already replayed from snapshot.
func (r *Runner) withoutUnsaved(snapshot []models.PendingAction) []models.PendingAction {
	if len(r.unsaved) == 0 {
		return snapshot
	}
	done := make(map[string]bool, len(r.unsaved))
	for _, a := range r.unsaved {
		done[a.LocalID] = true
	}
	out := snapshot[:0]
	for _, a := range snapshot {
		if !done[a.LocalID] {
			out = append(out, a)
		}
	}
	return out
}
