package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/audit"
	"github.com/fentz26/crewclock/internal/config"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/offline"
	"github.com/fentz26/crewclock/internal/store"
	"github.com/fentz26/crewclock/internal/timeclock"
	"go.uber.org/zap"
)

// deps holds the components a command needs, wired from cfg.
type deps struct {
	store    *store.Store
	client   *api.Client
	queue    *offline.Queue
	auditor  *audit.Writer
	recorder *offline.Recorder
	runner   *offline.Runner
	service  *timeclock.Service

	// onQueued, when set, runs after an action is queued offline.
	onQueued func(models.PendingAction)
}

func openDeps() (*deps, error) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	client := api.NewClient(cfg.APIBase, cfg.RequestTimeout, logger)
	auditor := audit.NewWriter(s)
	queue := offline.NewQueue(offline.NewSlotStore(s, cfg.QueueKey, logger))

	d := &deps{
		store:   s,
		client:  client,
		queue:   queue,
		auditor: auditor,
	}
	d.recorder = offline.NewRecorder(client, queue, logger,
		offline.WithAuditor(auditor), offline.WithNotify(d.actionQueued))
	d.runner = offline.NewRunner(client, queue, logger, offline.WithAuditor(auditor))
	d.service = timeclock.NewService(client, queue, d.recorder, d.runner, auditor, logger)
	return d, nil
}

func (d *deps) actionQueued(a models.PendingAction) {
	if d.onQueued != nil {
		d.onQueued(a)
	}
}

func (d *deps) Close() {
	if err := d.store.Close(); err != nil {
		logger.Warn("close local store", zap.Error(err))
	}
}

// commandContext is cancelled on SIGINT or SIGTERM. Each backend call
// carries its own request timeout.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func logFilePath() string {
	dir := config.Dir()
	_ = os.MkdirAll(dir, 0o700)
	return filepath.Join(dir, "crewclock.log")
}
