package shutdown

import (
	"context"
	"sync"
	"sync/atomic"
)

// latch is a one-shot broadcast primitive: any number of waiters, exactly
// one fire, no payload. It is the trigger described by the package design:
// once fired, fired is monotonically true and every subsequent wait
// returns immediately without touching the mutex.
//
// Waiters are tracked as a dense map of parked channels, keyed by a
// monotonic counter standing in for a slab's dense integer keys. The
// mutex is only ever held across O(1) map operations; it is never held
// across a channel close or a caller's wait.
type latch struct {
	name   string
	log    Logger
	fired  atomic.Bool
	mu     sync.Mutex
	wakers map[uint64]chan struct{}
	nextID uint64
}

func newLatch(name string, log Logger) *latch {
	if log == nil {
		log = NopLogger{}
	}
	return &latch{name: name, log: log, wakers: make(map[uint64]chan struct{})}
}

// done reports whether the latch has fired, without blocking.
func (l *latch) done() bool {
	return l.fired.Load()
}

// fire is the idempotent broadcast. The waker map is drained under the
// lock and then closed outside of it, so a waker's own reaction (which
// may itself call unregister) can never deadlock against fire.
func (l *latch) fire() {
	if !l.fired.CompareAndSwap(false, true) {
		return
	}
	l.mu.Lock()
	wakers := l.wakers
	l.wakers = nil
	l.mu.Unlock()

	l.log.Trace("latch fired", "latch", l.name, "waiters", len(wakers))
	for key, ch := range wakers {
		l.log.Trace("waker woken", "latch", l.name, "key", key)
		close(ch)
	}
}

// register parks a fresh waiter and returns the channel to wait on plus
// the key to unregister with. If the latch has already fired, ok is
// false and the caller should treat the wait as immediately satisfied.
func (l *latch) register() (ch chan struct{}, key uint64, ok bool) {
	if l.fired.Load() {
		return nil, 0, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fired.Load() {
		return nil, 0, false
	}
	key = l.nextID
	l.nextID++
	ch = make(chan struct{})
	l.wakers[key] = ch
	l.log.Trace("waker registered", "latch", l.name, "key", key)
	return ch, key, true
}

// unregister removes a parked waiter's slot. Safe to call after fire has
// already taken (and closed) the channel; it is then a no-op.
func (l *latch) unregister(key uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.wakers == nil {
		return
	}
	if _, exists := l.wakers[key]; exists {
		delete(l.wakers, key)
		l.log.Trace("waker removed", "latch", l.name, "key", key)
	}
}

// wait blocks until the latch fires or ctx is done, whichever comes
// first. It is cancel safe: a context cancellation while parked always
// releases the waker slot before returning.
func (l *latch) wait(ctx context.Context) error {
	if l.fired.Load() {
		return nil
	}
	ch, key, ok := l.register()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		l.unregister(key)
		return ctx.Err()
	}
}
