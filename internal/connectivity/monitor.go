// Package connectivity watches the backend and reports when it comes back online.
package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger checks whether the backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls a Pinger on a fixed interval and emits one event per
// offline to online transition. It starts in the offline state, so a
// reachable backend produces an event on the first check.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	online  bool
	stopped bool

	events chan struct{}

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor. Call Start to begin polling.
func New(p Pinger, interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		pinger:   p,
		interval: interval,
		logger:   logger,
		events:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events delivers back-online signals. Transitions that arrive while a signal
// is still unread are coalesced. The channel is closed by Stop.
func (m *Monitor) Events() <-chan struct{} {
	return m.events
}

// Online reports the result of the latest check.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Start begins the polling loop.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
	m.logger.Debug("connectivity monitor started", zap.Duration("interval", m.interval))
}

// Stop halts polling and closes the events channel. Later calls to Stop,
// Check or MarkOffline do nothing.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.events)
	m.logger.Debug("connectivity monitor stopped")
}

// MarkOffline records that a request just failed to reach the backend, so the
// next successful check emits a back-online event even if no poll saw the
// outage.
func (m *Monitor) MarkOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || !m.online {
		return
	}
	m.online = false
	m.logger.Info("backend marked unreachable")
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	m.Check(m.ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Check(m.ctx)
		}
	}
}

// Check pings once, records the result, and emits an event if the backend
// just came back. It returns the ping result. After Stop it only reports the
// last known state.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.ctx.Err() != nil {
		return m.Online()
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.interval)
	err := m.pinger.Ping(pingCtx)
	cancel()
	if ctx.Err() != nil {
		return m.Online()
	}
	up := err == nil

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return m.online
	}
	was := m.online
	m.online = up

	switch {
	case up && !was:
		m.logger.Info("backend reachable")
		// events is only closed by Stop while holding mu.
		select {
		case m.events <- struct{}{}:
		default:
		}
	case !up && was:
		m.logger.Warn("backend unreachable", zap.Error(err))
	}
	return up
}
