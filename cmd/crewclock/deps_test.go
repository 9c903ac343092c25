package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fentz26/crewclock/internal/config"
	"github.com/fentz26/crewclock/internal/connectivity"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func withTestDeps(t *testing.T, handler http.HandlerFunc) *deps {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prevCfg, prevLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = prevCfg, prevLogger })
	cfg = config.DefaultConfig()
	cfg.APIBase = srv.URL
	cfg.DBPath = filepath.Join(t.TempDir(), "crewclock.db")
	cfg.RequestTimeout = time.Second
	logger = zap.NewNop()

	d, err := openDeps()
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestDeps_QueuedActionMarksMonitorOffline(t *testing.T) {
	var up atomic.Bool
	d := withTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		if up.Load() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{}"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	monitor := connectivity.New(d.client, time.Second, nil)
	ctx := context.Background()

	up.Store(true)
	require.True(t, monitor.Check(ctx))
	<-monitor.Events()

	var queued []models.PendingAction
	d.onQueued = func(a models.PendingAction) {
		queued = append(queued, a)
		monitor.MarkOffline()
	}

	up.Store(false)
	outcome, err := d.recorder.Record(ctx, models.ActionClockIn, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeQueuedOffline, outcome)
	require.Len(t, queued, 1)
	assert.False(t, monitor.Online())

	up.Store(true)
	assert.True(t, monitor.Check(ctx))
	select {
	case <-monitor.Events():
	default:
		t.Fatal("expected a back-online event after the queued action")
	}
}
