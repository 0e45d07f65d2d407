package shutdown

import (
	"context"
	"sync/atomic"
	"time"
)

// Phase reports where a Shutdown coordinator is in its lifecycle.
type Phase int32

const (
	// PhaseArmed is the initial state: the shutdown signal has not fired.
	PhaseArmed Phase = iota
	// PhaseDraining is set once the signal has fired and Drain (or
	// DrainWithLimit) is waiting for outstanding guards to clear.
	PhaseDraining
	// PhaseDrained is set once the drain has completed, however it ended.
	PhaseDrained
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "armed"
	case PhaseDraining:
		return "draining"
	case PhaseDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// Shutdown is the main entry point of the package. Construct one with
// New, NoSignal, Default, or NewBuilder; obtain Guards from it to keep
// its drain from completing; call Drain or DrainWithLimit from the
// supervisor goroutine to wait out the shutdown.
type Shutdown struct {
	state     *sharedState
	bootstrap *Guard
	overwrite *latch

	draining atomic.Bool
	drained  atomic.Bool
}

// Guard returns a new strong Guard on this coordinator.
func (s *Shutdown) Guard() *Guard {
	return s.bootstrap.Clone()
}

// GuardWeak returns a new WeakGuard on this coordinator.
func (s *Shutdown) GuardWeak() *WeakGuard {
	return s.bootstrap.CloneWeak()
}

// SpawnTask forwards to the coordinator's bootstrap guard. See
// Guard.SpawnTask.
func (s *Shutdown) SpawnTask(fn func(context.Context) error) *TaskHandle {
	return s.bootstrap.SpawnTask(fn)
}

// SpawnTaskFn forwards to the coordinator's bootstrap guard. See
// Guard.SpawnTaskFn.
func (s *Shutdown) SpawnTaskFn(fn func(context.Context, *Guard) error) *TaskHandle {
	return s.bootstrap.SpawnTaskFn(fn)
}

// Phase reports the coordinator's current lifecycle phase.
func (s *Shutdown) Phase() Phase {
	switch {
	case s.drained.Load():
		return PhaseDrained
	case s.draining.Load():
		return PhaseDraining
	default:
		return PhaseArmed
	}
}

// Drain waits for the shutdown signal to fire (or, if an overwrite
// signal is configured, for whichever of the two fires first), then
// waits for every outstanding Guard to be released (again racing any
// configured overwrite). The returned duration is the time Drain spent
// waiting, start to finish.
func (s *Shutdown) Drain(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	defer func() { s.state.log.Trace("drain finished", "elapsed", time.Since(start)) }()

	forced, err := s.awaitSignal(ctx)
	if err != nil {
		return time.Since(start), err
	}
	if forced {
		s.state.log.Trace("overwrite delayed cancellation")
		s.drained.Store(true)
		return time.Since(start), nil
	}

	s.draining.Store(true)
	s.bootstrap.Downgrade()
	s.state.log.Trace("drain waiting for guards to clear")

	err = s.awaitZero(ctx)
	s.drained.Store(true)
	if err == errOverwriteForced {
		return time.Since(start), nil
	}
	return time.Since(start), err
}

// DrainWithLimit is like Drain, but additionally bounds the post-signal
// wait to limit. If the limit expires, or the overwrite signal fires,
// before every Guard has been released, it returns a *TimeoutError;
// reaching zero outstanding guards returns nil.
func (s *Shutdown) DrainWithLimit(ctx context.Context, limit time.Duration) (time.Duration, error) {
	start := time.Now()
	defer func() { s.state.log.Trace("drain finished", "elapsed", time.Since(start)) }()

	forced, err := s.awaitSignal(ctx)
	if err != nil {
		return time.Since(start), err
	}
	if forced {
		s.drained.Store(true)
		return time.Since(start), &TimeoutError{Limit: limit, Elapsed: time.Since(start), Forced: true}
	}

	s.draining.Store(true)
	s.bootstrap.Downgrade()
	s.state.log.Trace("drain waiting for guards to clear", "limit", limit)

	timer := time.NewTimer(limit)
	defer timer.Stop()

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.awaitZero(cctx) }()

	select {
	case <-timer.C:
		cancel()
		s.drained.Store(true)
		return time.Since(start), &TimeoutError{Limit: limit, Elapsed: time.Since(start)}
	case err := <-done:
		s.drained.Store(true)
		elapsed := time.Since(start)
		if err == errOverwriteForced {
			return elapsed, &TimeoutError{Limit: limit, Elapsed: elapsed, Forced: true}
		}
		return elapsed, err
	}
}

// awaitSignal waits for the cancel latch, racing the overwrite latch (if
// configured) against it. forced is true if the overwrite latch won.
func (s *Shutdown) awaitSignal(ctx context.Context) (forced bool, err error) {
	if s.overwrite == nil {
		return false, s.state.cancel.wait(ctx)
	}
	idx, err := waitAny(ctx, s.state.cancel, s.overwrite)
	if err != nil {
		return false, err
	}
	return idx == 1, nil
}

// awaitZero waits for the zero latch, racing the overwrite latch (if
// configured) against it. Returns errOverwriteForced if overwrite wins.
func (s *Shutdown) awaitZero(ctx context.Context) error {
	if s.overwrite == nil {
		return s.state.zero.wait(ctx)
	}
	idx, err := waitAny(ctx, s.state.zero, s.overwrite)
	if err != nil {
		return err
	}
	if idx == 1 {
		return errOverwriteForced
	}
	return nil
}
