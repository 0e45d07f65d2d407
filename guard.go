package shutdown

import (
	"context"
	"fmt"
	"sync/atomic"
)

// sharedState is the population counter and latch set common to one
// coordinator and every Guard / WeakGuard derived from it.
type sharedState struct {
	log        Logger
	population atomic.Int64
	preDelay   *latch // fires when the shutdown signal first arrives
	cancel     *latch // fires after the configured delay (== preDelay if none)
	zero       *latch // fires when the last strong Guard is released
}

// Guard is a strong handle on a Shutdown coordinator. While any Guard
// derived from a coordinator is alive, that coordinator's drain will not
// complete. Release it (directly, or by letting a spawned task's
// goroutine do so) once the work it is guarding has finished.
type Guard struct {
	state    *sharedState
	released atomic.Bool
}

// WeakGuard observes the same cancellation signal as a Guard but does
// not contribute to the population the drain waits on.
type WeakGuard struct {
	state *sharedState
}

func newGuard(state *sharedState) *Guard {
	v := state.population.Add(1)
	state.log.Trace("guard acquired", "population", v)
	return &Guard{state: state}
}

func newWeakGuard(state *sharedState) *WeakGuard {
	return &WeakGuard{state: state}
}

// Cancelled waits for the post-delay cancel signal. If no delay was
// configured, this resolves at the same instant as ShutdownSignalTriggered.
func (g *Guard) Cancelled(ctx context.Context) error {
	return g.state.cancel.wait(ctx)
}

// ShutdownSignalTriggered waits for the pre-delay signal, i.e. the
// instant the external shutdown signal first arrived, independent of any
// soft-shutdown delay configured on the coordinator.
func (g *Guard) ShutdownSignalTriggered(ctx context.Context) error {
	return g.state.preDelay.wait(ctx)
}

// CancelledPeek reports, without blocking, whether cancellation has
// already been requested.
func (g *Guard) CancelledPeek() bool {
	return g.state.cancel.done()
}

// Context returns a context derived from parent that is canceled the
// moment this guard observes cancellation.
func (g *Guard) Context(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		_ = g.state.cancel.wait(ctx)
		cancel()
	}()
	return ctx
}

// Clone increments the population and returns a new strong Guard sharing
// this guard's coordinator state.
func (g *Guard) Clone() *Guard {
	return newGuard(g.state)
}

// CloneWeak returns a WeakGuard sharing this guard's coordinator state,
// without affecting the population.
func (g *Guard) CloneWeak() *WeakGuard {
	return newWeakGuard(g.state)
}

// Downgrade consumes this Guard, releasing its population unit, and
// returns a WeakGuard in its place. Net effect on the population is -1.
//
// Calling Downgrade (or Release) more than once on the same Guard value
// is a no-op past the first call; a Guard is a single-use unit of
// population, not a reusable handle.
func (g *Guard) Downgrade() *WeakGuard {
	g.Release()
	return newWeakGuard(g.state)
}

// Release gives up this guard's unit of population. The release that
// takes the population from 1 to 0 fires the coordinator's zero latch,
// unblocking any in-progress drain. Safe to call at most meaningfully
// once; later calls on an already-released Guard are no-ops.
func (g *Guard) Release() {
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	v := g.state.population.Add(-1)
	g.state.log.Trace("guard released", "population", v)
	if v < 0 {
		panic("shutdown: guard population went negative")
	}
	if v == 0 {
		g.state.zero.fire()
	}
}

// TaskHandle is returned by SpawnTask and SpawnTaskFn. It can be waited
// on to observe the spawned task's completion and result.
type TaskHandle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the task finishes or ctx is done, whichever is
// first, returning the task's own error (or a recovered panic wrapped as
// an error) on completion.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runTask(guard *Guard, fn func(context.Context) error) *TaskHandle {
	h := &TaskHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer guard.Release()
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("shutdown: task panic: %v", r)
			}
		}()
		h.err = fn(guard.Context(context.Background()))
	}()
	return h
}

// SpawnTask runs fn in a new goroutine, holding a clone of this guard
// for the duration. The clone is released when fn returns, regardless of
// whether it returns an error or panics.
func (g *Guard) SpawnTask(fn func(context.Context) error) *TaskHandle {
	return runTask(g.Clone(), fn)
}

// IntoSpawnTask is like SpawnTask but consumes this guard instead of
// cloning it, so the caller retains no further reference to it.
func (g *Guard) IntoSpawnTask(fn func(context.Context) error) *TaskHandle {
	return runTask(g, fn)
}

// SpawnTaskFn is like SpawnTask, but additionally passes the task's own
// guard clone to fn so the task body can subscribe to cancellation or
// spawn nested tasks against the same population.
func (g *Guard) SpawnTaskFn(fn func(context.Context, *Guard) error) *TaskHandle {
	clone := g.Clone()
	return runTask(clone, func(ctx context.Context) error {
		return fn(ctx, clone)
	})
}

// IntoSpawnTaskFn is like SpawnTaskFn but consumes this guard instead of
// cloning it.
func (g *Guard) IntoSpawnTaskFn(fn func(context.Context, *Guard) error) *TaskHandle {
	return runTask(g, func(ctx context.Context) error {
		return fn(ctx, g)
	})
}

// Cancelled waits for the post-delay cancel signal. See Guard.Cancelled.
func (w *WeakGuard) Cancelled(ctx context.Context) error {
	return w.state.cancel.wait(ctx)
}

// ShutdownSignalTriggered waits for the pre-delay signal. See
// Guard.ShutdownSignalTriggered.
func (w *WeakGuard) ShutdownSignalTriggered(ctx context.Context) error {
	return w.state.preDelay.wait(ctx)
}

// IntoCancelled is equivalent to Cancelled; it exists to mirror the
// consuming/non-consuming method pairs found elsewhere on Guard, since a
// WeakGuard carries no release obligation either way.
func (w *WeakGuard) IntoCancelled(ctx context.Context) error {
	return w.Cancelled(ctx)
}

// CancelledPeek reports, without blocking, whether cancellation has
// already been requested.
func (w *WeakGuard) CancelledPeek() bool {
	return w.state.cancel.done()
}

// Upgrade returns a new strong Guard sharing this weak guard's
// coordinator state, incrementing the population by one.
func (w *WeakGuard) Upgrade() *Guard {
	return newGuard(w.state)
}
