package shutdown

import (
	"context"
	"time"
)

// runDriver is the coordinator's background worker: it watches the
// external signal channel, fires the pre-delay latch the instant it
// arrives, sleeps out the configured delay (if any), and finally fires
// the cancel latch. With no delay configured, preDelay and cancel are
// the same *latch and this degenerates to a single fire.
func runDriver(signalCh <-chan struct{}, delay time.Duration, state *sharedState) {
	if signalCh == nil {
		// no-signal (wait-group) mode: born pre-fired.
		state.preDelay.fire()
		state.cancel.fire()
		return
	}
	go func() {
		<-signalCh
		state.log.Trace("shutdown signal received")
		state.preDelay.fire()
		if delay > 0 {
			time.Sleep(delay)
		}
		state.cancel.fire()
	}()
}

// runOverwriteDriver wires an overwrite future (if configured) to its
// own latch.
func runOverwriteDriver(overwriteCh <-chan struct{}, l *latch, log Logger) {
	if overwriteCh == nil {
		return
	}
	go func() {
		<-overwriteCh
		log.Trace("overwrite triggered")
		l.fire()
	}()
}

// waitAny races wait on every given latch and returns the index of the
// first one to fire. Losing waits are canceled as waitAny returns; each
// then unregisters its own waker slot, so no slot is left parked.
func waitAny(ctx context.Context, latches ...*latch) (int, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		idx int
		err error
	}
	ch := make(chan result, len(latches))
	for i, l := range latches {
		i, l := i, l
		go func() {
			ch <- result{i, l.wait(cctx)}
		}()
	}
	r := <-ch
	return r.idx, r.err
}
