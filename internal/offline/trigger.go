package offline

import (
	"context"
	"sync"

	"github.com/fentz26/crewclock/internal/models"
	"go.uber.org/zap"
)

// Syncer runs one replay pass.
type Syncer interface {
	Sync(ctx context.Context) models.SyncReport
}

// Trigger starts a sync for every back-online signal.
type Trigger struct {
	syncer   Syncer
	logger   *zap.Logger
	onReport func(models.SyncReport)
	wg       sync.WaitGroup
}

// NewTrigger creates a trigger. onReport, when set, receives every report
// that was not skipped.
func NewTrigger(s Syncer, logger *zap.Logger, onReport func(models.SyncReport)) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{syncer: s, logger: logger, onReport: onReport}
}

// Run consumes signals until ctx is done or signals is closed, then waits for
// in-flight syncs to return. Each signal starts one Sync without waiting for
// earlier ones; the runner's guard absorbs overlaps.
func (t *Trigger) Run(ctx context.Context, signals <-chan struct{}) {
	defer t.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			t.logger.Info("back online, syncing offline queue")
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				report := t.syncer.Sync(ctx)
				if report.Skipped {
					return
				}
				if t.onReport != nil {
					t.onReport(report)
				}
			}()
		}
	}
}
