package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestState() *sharedState {
	log := NopLogger{}
	state := &sharedState{log: log}
	state.zero = newLatch("zero", log)
	state.cancel = newLatch("cancel", log)
	state.preDelay = state.cancel
	return state
}

func TestGuardReleaseFiresZeroAtLastRelease(t *testing.T) {
	state := newTestState()
	g1 := newGuard(state)
	g2 := g1.Clone()

	g1.Release()
	if state.zero.done() {
		t.Fatal("zero latch fired before last guard released")
	}

	g2.Release()
	if !state.zero.done() {
		t.Error("zero latch should fire when population reaches zero")
	}
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	state := newTestState()
	g := newGuard(state)
	g.Release()
	g.Release()
	g.Release()

	if !state.zero.done() {
		t.Error("zero latch should have fired on the first release")
	}
	if state.population.Load() != 0 {
		t.Errorf("population should settle at 0, got %d", state.population.Load())
	}
}

func TestCloneWeakThenUpgradeNetsOneGuard(t *testing.T) {
	state := newTestState()
	g := newGuard(state)
	weak := g.CloneWeak()
	if state.population.Load() != 1 {
		t.Fatalf("CloneWeak must not affect population, got %d", state.population.Load())
	}

	upgraded := weak.Upgrade()
	if state.population.Load() != 2 {
		t.Fatalf("Upgrade should add a population unit, got %d", state.population.Load())
	}

	g.Release()
	upgraded.Release()
	if !state.zero.done() {
		t.Error("zero latch should fire once both strong guards are released")
	}
}

func TestDowngradeNetsMinusOne(t *testing.T) {
	state := newTestState()
	g := newGuard(state)
	before := state.population.Load()

	weak := g.Downgrade()
	after := state.population.Load()

	if after != before-1 {
		t.Errorf("Downgrade should decrement population by 1, went from %d to %d", before, after)
	}
	if weak.CancelledPeek() {
		t.Error("downgraded guard should not report cancellation before the latch fires")
	}
}

func TestGuardCancelledWaitsForLatch(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	done := make(chan error, 1)
	go func() {
		done <- g.Cancelled(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Cancelled returned before the cancel latch fired")
	case <-time.After(30 * time.Millisecond):
	}

	state.cancel.fire()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Cancelled returned error %v after a clean fire", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Cancelled never returned after cancel latch fired")
	}
}

func TestGuardContextCanceledOnShutdown(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	ctx := g.Context(context.Background())
	state.cancel.fire()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context never canceled after guard's cancel latch fired")
	}
}

func TestSpawnTaskReleasesOnReturn(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	h := g.SpawnTask(func(ctx context.Context) error {
		return nil
	})

	if err := h.Wait(context.Background()); err != nil {
		t.Errorf("task returned unexpected error: %v", err)
	}
	if state.population.Load() != 1 {
		t.Errorf("SpawnTask should not release the caller's own guard, population=%d", state.population.Load())
	}
	g.Release()
	if !state.zero.done() {
		t.Error("zero latch should fire once both the original and spawned guard clear")
	}
}

func TestIntoSpawnTaskConsumesGuard(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	h := g.IntoSpawnTask(func(ctx context.Context) error {
		return nil
	})
	if err := h.Wait(context.Background()); err != nil {
		t.Errorf("task returned unexpected error: %v", err)
	}
	if !state.zero.done() {
		t.Error("zero latch should fire once the consumed guard's task completes")
	}
}

func TestSpawnTaskRecoversPanic(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	h := g.SpawnTask(func(ctx context.Context) error {
		panic("boom")
	})

	err := h.Wait(context.Background())
	if err == nil {
		t.Fatal("expected a recovered panic to surface as an error")
	}
}

func TestSpawnTaskFnPassesOwnGuard(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	var seen *Guard
	var mu sync.Mutex
	h := g.SpawnTaskFn(func(ctx context.Context, taskGuard *Guard) error {
		mu.Lock()
		seen = taskGuard
		mu.Unlock()
		return nil
	})
	_ = h.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if seen == nil {
		t.Fatal("SpawnTaskFn did not pass a guard to fn")
	}
}

func TestTaskHandleWaitRespectsContext(t *testing.T) {
	state := newTestState()
	g := newGuard(state)

	block := make(chan struct{})
	h := g.SpawnTask(func(ctx context.Context) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := h.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	close(block)
}

func TestWeakGuardDoesNotBlockDrain(t *testing.T) {
	state := newTestState()
	g := newGuard(state)
	weak := g.CloneWeak()

	g.Release()
	if !state.zero.done() {
		t.Error("a WeakGuard must not keep the population above zero")
	}

	if weak.CancelledPeek() {
		t.Error("weak guard should not report cancellation before the cancel latch fires")
	}
}
