// Package tick provides periodic timer facilities that drive a scan entry
// point.
package tick

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoCallback is returned by Run when nothing was registered.
var ErrNoCallback = errors.New("no tick callback registered")

// Timer calls the registered callback every interval on its own goroutine.
// Ticks missed while a callback overran are dropped, not replayed.
type Timer struct {
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	fn    func()
	ticks atomic.Uint64
}

// New returns a timer firing every interval.
func New(interval time.Duration, logger *slog.Logger) *Timer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{interval: interval, logger: logger}
}

// Register sets the callback. A later registration replaces an earlier one.
func (t *Timer) Register(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fn != nil {
		t.logger.Warn("replacing registered tick callback")
	}
	t.fn = fn
}

// Interval returns the configured period.
func (t *Timer) Interval() time.Duration { return t.interval }

// Ticks returns the number of callbacks delivered so far.
func (t *Timer) Ticks() uint64 { return t.ticks.Load() }

// Run delivers ticks until ctx is done. It returns nil on cancellation.
func (t *Timer) Run(ctx context.Context) error {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	if fn == nil {
		return ErrNoCallback
	}
	if t.interval <= 0 {
		return errors.New("tick interval must be positive")
	}

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	t.logger.Debug("tick timer started", "interval", t.interval)
	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("tick timer stopped", "ticks", t.ticks.Load())
			return nil
		case <-tk.C:
			fn()
			t.ticks.Add(1)
		}
	}
}

// Manual is a tick source stepped by hand, for replays and tests.
type Manual struct {
	fn    func()
	ticks uint64
}

// Register sets the callback.
func (m *Manual) Register(fn func()) { m.fn = fn }

// Step delivers one tick. It reports false when nothing is registered.
func (m *Manual) Step() bool {
	if m.fn == nil {
		return false
	}
	m.fn()
	m.ticks++
	return true
}

// StepN delivers n ticks.
func (m *Manual) StepN(n int) {
	for i := 0; i < n; i++ {
		if !m.Step() {
			return
		}
	}
}

// Ticks returns the number of ticks delivered.
func (m *Manual) Ticks() uint64 { return m.ticks }
