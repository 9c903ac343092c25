package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fentz26/crewclock/internal/connectivity"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/offline"
	"github.com/fentz26/crewclock/internal/timeclock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Replay the offline queue whenever the backend comes back",
	Long: `Polls the backend and replays queued clock actions on every offline to online
transition. With --retry, actions left pending while online are retried on that
interval. Runs until interrupted.`,
	RunE: runWatch,
}

var retryInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&retryInterval, "retry", time.Minute, "Retry pending actions while online at this interval (0 disables)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger.Info("starting crewclock watch", zap.String("api", cfg.APIBase))

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	monitor := connectivity.New(d.client, cfg.PingInterval, logger)
	trigger := offline.NewTrigger(d.runner, logger, func(r models.SyncReport) {
		fmt.Println(timeclock.SyncNotice(r))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan struct{}, 1)
	var feeders sync.WaitGroup
	feeders.Add(1)
	go func() {
		defer feeders.Done()
		forward(ctx, monitor.Events(), signals)
	}()
	if retryInterval > 0 {
		feeders.Add(1)
		go func() {
			defer feeders.Done()
			retryPending(ctx, d, monitor, signals)
		}()
	}

	monitor.Start()

	triggerDone := make(chan struct{})
	go func() {
		trigger.Run(ctx, signals)
		close(triggerDone)
	}()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	monitor.Stop()
	feeders.Wait()
	<-triggerDone

	logger.Info("shutdown complete", zap.Int("still_pending", d.queue.Len(context.Background())))
	return nil
}

// forward copies events into out until ctx is done or events closes.
// Sends are coalesced: a signal already waiting in out absorbs new ones.
func forward(ctx context.Context, events <-chan struct{}, out chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

// retryPending signals a sync on every tick while the backend is reachable
// and the queue is not empty.
func retryPending(ctx context.Context, d *deps, monitor *connectivity.Monitor, out chan<- struct{}) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !monitor.Online() || d.queue.Len(ctx) == 0 {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}
