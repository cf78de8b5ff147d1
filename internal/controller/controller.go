// Package controller drives an engine.Engine on a background
// goroutine: a pause/resume loop that advances one iteration at a
// time, exposes a UI-refresh cadence so a renderer can sample state at
// a bounded rate rather than after every single physics step, and
// serializes access to the engine so save/load and snapshot reads
// never race with an in-flight Iterate call.
package controller

import (
	"context"
	"io"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/gravity/internal/engine"
)

// uiRefreshInterval is how many iterations elapse between
// controller-driven UI/telemetry refresh opportunities.
const uiRefreshInterval = 1024

// minRefreshPeriod bounds how often a refresh opportunity actually
// fires the callback, mirroring MainController::CalcThread's
// `sinceLastUpdate.count() > 1.0/30.0` gate: an engine doing many
// thousands of iterations/sec would otherwise drive the callback (and
// whatever it publishes to) far above a renderable rate.
const minRefreshPeriod = time.Second / 30

// Controller owns an Engine and runs it on a background goroutine,
// one iteration at a time, guarded by a single mutex so any other
// goroutine (a renderer, a telemetry publisher, a save/load request)
// can safely read or replace engine state between iterations.
type Controller struct {
	mu     sync.Mutex
	engine *engine.Engine

	paused    atomic.Bool
	terminate atomic.Bool

	// needsUpdate mirrors MainController's uiNeedsUpdate: Run sets it
	// before invoking onRefresh and then yield-spins until the
	// callback (or an external renderer polling NeedsUpdate) clears it
	// with AckRefresh, instead of assuming the callback finishes its
	// consumption of engine state synchronously.
	needsUpdate atomic.Bool

	onRefresh func(e *engine.Engine)
}

// New wraps eng in a Controller. If autoStart is false, the controller
// starts paused and Resume must be called to begin advancing.
func New(eng *engine.Engine, autoStart bool) *Controller {
	c := &Controller{engine: eng}
	c.paused.Store(!autoStart)
	return c
}

// OnRefresh registers a callback invoked, outside the engine lock: while
// running, on an iteration that is a multiple of uiRefreshInterval if
// more than minRefreshPeriod has passed since the last such call; while
// paused, after every 100ms pause sleep; and once more when the engine
// reaches its iteration cap. It is meant for renderer sampling or
// telemetry publication.
// Run sets NeedsUpdate before calling it and yield-spins afterward
// until AckRefresh is called, so a callback that hands the snapshot to
// another goroutine before returning must arrange for that goroutine
// to call AckRefresh once it is done reading engine state.
func (c *Controller) OnRefresh(fn func(e *engine.Engine)) { c.onRefresh = fn }

// NeedsUpdate reports whether Run is currently waiting on a refresh
// acknowledgement, for a renderer that polls instead of registering an
// OnRefresh callback.
func (c *Controller) NeedsUpdate() bool { return c.needsUpdate.Load() }

// AckRefresh clears the pending-refresh flag, releasing Run's
// yield-spin wait. It is a no-op if no refresh is pending.
func (c *Controller) AckRefresh() { c.needsUpdate.Store(false) }

// Pause stops advancement without tearing down the goroutine.
func (c *Controller) Pause() { c.paused.Store(true) }

// Resume restarts advancement after a Pause.
func (c *Controller) Resume() { c.paused.Store(false) }

// Paused reports whether the controller is currently paused.
func (c *Controller) Paused() bool { return c.paused.Load() }

// Terminate stops Run permanently; its next loop iteration returns nil.
func (c *Controller) Terminate() { c.terminate.Store(true) }

// WithEngine runs fn with exclusive access to the engine, blocking any
// in-flight Iterate call. Use it for save/load and for one-off reads
// that must not race a step.
func (c *Controller) WithEngine(fn func(e *engine.Engine)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.engine)
}

// Run starts the background calculation loop and blocks until ctx is
// canceled, Terminate is called, or the engine reports it should stop
// (its iteration cap was reached). It mirrors the reference
// implementation's calculation thread: a pause-aware loop that takes
// the engine lock for exactly one Iterate call at a time, and offers a
// refresh callback on a bounded cadence rather than every step.
func (c *Controller) Run(ctx context.Context) error {
	lastRefreshAt := uint64(0)
	lastRefreshTime := time.Now()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.terminate.Load() {
			return nil
		}
		if c.paused.Load() {
			time.Sleep(100 * time.Millisecond)
			c.refresh()
			continue
		}

		var stepErr error
		var shouldContinue bool
		c.mu.Lock()
		shouldContinue, stepErr = c.engine.Iterate()
		iteration := c.engine.CurrentIteration()
		c.mu.Unlock()

		if stepErr != nil {
			return stepErr
		}

		if iteration%uiRefreshInterval == 0 {
			now := time.Now()
			elapsed := now.Sub(lastRefreshTime)
			if elapsed > 0 && lastRefreshAt > 0 {
				rate := float64(iteration-lastRefreshAt) / elapsed.Seconds()
				log.Printf("gravity: iteration %d, %.1f iterations/sec", iteration, rate)
			}
			if elapsed > minRefreshPeriod {
				lastRefreshAt = iteration
				lastRefreshTime = now
				c.refresh()
			}
		}

		if !shouldContinue {
			c.refresh()
			return nil
		}
	}
}

// refresh signals a pending update, invokes the registered callback,
// and then yield-spins until the flag is acknowledged (or Terminate is
// called), mirroring MainController::CalcThread's
// uiNeedsUpdate/std::this_thread::yield handshake with its UI thread.
func (c *Controller) refresh() {
	if c.onRefresh == nil {
		return
	}
	c.needsUpdate.Store(true)
	c.mu.Lock()
	eng := c.engine
	c.mu.Unlock()
	c.onRefresh(eng)
	for c.needsUpdate.Load() && !c.terminate.Load() {
		runtime.Gosched()
	}
}

// Save writes the engine's binary state to w, blocking any concurrent
// Iterate call.
func (c *Controller) Save(w io.Writer) error {
	var err error
	c.WithEngine(func(e *engine.Engine) { err = e.Save(w) })
	return err
}

// Load replaces the engine's state by reading from r, blocking any
// concurrent Iterate call.
func (c *Controller) Load(r io.Reader) error {
	var err error
	c.WithEngine(func(e *engine.Engine) { err = e.Load(r) })
	return err
}
