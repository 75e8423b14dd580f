// Package control implements the position control used by motors: a leaky-integral PID, setpoint
// interpolation, velocity estimation, and the fixed rate loop that services every attached motor.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"github.com/rbe1001/motorcontrol/logging"
)

// DefaultTickPeriod is how often a loop services its motors.
const DefaultTickPeriod = time.Millisecond

// LoopConfig configures a Loop.
type LoopConfig struct {
	TickPeriod time.Duration
	Capacity   int
	// Clock drives the ticker and timestamps. Nil uses the wall clock.
	Clock clock.Clock
}

// Loop services a Registry of motors at a fixed rate. One mutex, exposed through Locker, guards
// the registry and the state of every motor on the loop.
type Loop struct {
	mu       sync.Mutex
	registry *Registry
	// passMu is held for a whole pass so Deregister can wait out a pass in flight
	passMu sync.Mutex

	tickPeriod time.Duration
	clk        clock.Clock
	logger     logging.Logger

	startMu sync.Mutex
	workers *utils.StoppableWorkers
	running atomic.Bool
	passes  atomic.Int64

	// guarded by passMu
	lastErrs map[Tickable]string
}

// NewLoop returns a stopped loop.
func NewLoop(cfg LoopConfig, logger logging.Logger) *Loop {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Loop{
		registry:   NewRegistry(cfg.Capacity),
		tickPeriod: cfg.TickPeriod,
		clk:        cfg.Clock,
		logger:     logger,
		lastErrs:   map[Tickable]string{},
	}
}

// Locker returns the lock shared by the loop and its motors.
func (l *Loop) Locker() sync.Locker {
	return &l.mu
}

// Clock returns the clock the loop ticks on.
func (l *Loop) Clock() clock.Clock {
	return l.clk
}

// TickPeriod returns the time between passes.
func (l *Loop) TickPeriod() time.Duration {
	return l.tickPeriod
}

// Capacity returns how many motors the loop can service.
func (l *Loop) Capacity() int {
	return l.registry.Capacity()
}

// Register claims the first free slot for t and returns its index. It returns an error wrapping
// ErrRegistryFull when no slot is free.
func (l *Loop) Register(t Tickable) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Insert(t)
}

// Deregister frees the slot held by t. Once it returns, t is not ticked again.
func (l *Loop) Deregister(t Tickable) bool {
	l.passMu.Lock()
	defer l.passMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lastErrs, t)
	return l.registry.Remove(t)
}

// Registered returns the motors on the loop in slot order.
func (l *Loop) Registered() []Tickable {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Snapshot()
}

// Start begins ticking. Calling Start on a running loop does nothing.
func (l *Loop) Start() {
	l.startMu.Lock()
	defer l.startMu.Unlock()
	if l.running.Load() {
		return
	}
	l.logger.Infow("starting control loop", "tick_period", l.tickPeriod, "capacity", l.registry.Capacity())
	ticker := l.clk.Ticker(l.tickPeriod)
	l.workers = utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			l.RunOnce(ctx)
		}
	})
	l.running.Store(true)
}

// Stop stops ticking and waits for the pass in flight to finish.
func (l *Loop) Stop() {
	l.startMu.Lock()
	defer l.startMu.Unlock()
	if !l.running.Load() {
		return
	}
	l.workers.Stop()
	l.workers = nil
	l.running.Store(false)
	l.logger.Debugw("stopped control loop", "passes", l.passes.Load())
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Passes returns how many passes have run.
func (l *Loop) Passes() int64 {
	return l.passes.Load()
}

// RunOnce services every registered motor once, in slot order. Each motor takes the shared lock
// itself. Errors are logged once per distinct message and do not stop the pass.
func (l *Loop) RunOnce(ctx context.Context) {
	l.passMu.Lock()
	defer l.passMu.Unlock()

	l.mu.Lock()
	snapshot := l.registry.Snapshot()
	l.mu.Unlock()

	for _, t := range snapshot {
		err := t.Tick(ctx)
		l.noteErr(ctx, t, err)
	}
	l.passes.Inc()
}

// noteErr is called with passMu held.
func (l *Loop) noteErr(ctx context.Context, t Tickable, err error) {
	if err == nil {
		delete(l.lastErrs, t)
		return
	}
	if l.lastErrs[t] == err.Error() {
		return
	}
	l.lastErrs[t] = err.Error()
	l.logger.CWarnw(ctx, "motor tick failed", "motor", t.Name(), "error", err)
}
