package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestRunDriverNilSignalFiresImmediately(t *testing.T) {
	state := newTestState()
	runDriver(nil, 0, state)

	if !state.cancel.done() {
		t.Error("nil signal channel should fire cancel immediately")
	}
	if !state.preDelay.done() {
		t.Error("nil signal channel should fire preDelay immediately")
	}
}

func TestRunDriverFiresPreDelayBeforeCancel(t *testing.T) {
	log := NopLogger{}
	state := &sharedState{log: log}
	state.cancel = newLatch("cancel", log)
	state.preDelay = newLatch("pre-delay", log)
	state.zero = newLatch("zero", log)

	sig := make(chan struct{})
	runDriver(sig, 50*time.Millisecond, state)
	close(sig)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !state.preDelay.done() {
		time.Sleep(time.Millisecond)
	}
	if !state.preDelay.done() {
		t.Fatal("preDelay never fired")
	}
	if state.cancel.done() {
		t.Error("cancel fired before the configured delay elapsed")
	}

	time.Sleep(100 * time.Millisecond)
	if !state.cancel.done() {
		t.Error("cancel should have fired after the delay elapsed")
	}
}

func TestRunOverwriteDriverFiresLatch(t *testing.T) {
	log := NopLogger{}
	l := newLatch("overwrite", log)
	ch := make(chan struct{})

	runOverwriteDriver(ch, l, log)
	if l.done() {
		t.Fatal("overwrite latch should not fire before the channel closes")
	}

	close(ch)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !l.done() {
		time.Sleep(time.Millisecond)
	}
	if !l.done() {
		t.Error("overwrite latch never fired after channel closed")
	}
}

func TestRunOverwriteDriverNilChannelIsNoop(t *testing.T) {
	log := NopLogger{}
	l := newLatch("overwrite", log)
	runOverwriteDriver(nil, l, log)

	time.Sleep(20 * time.Millisecond)
	if l.done() {
		t.Error("nil overwrite channel should never fire the latch")
	}
}

func TestWaitAnyReturnsFirstWinner(t *testing.T) {
	log := NopLogger{}
	a := newLatch("a", log)
	b := newLatch("b", log)

	b.fire()

	idx, err := waitAny(context.Background(), a, b)
	if err != nil {
		t.Fatalf("waitAny returned error: %v", err)
	}
	if idx != 1 {
		t.Errorf("expected index 1 (b) to win, got %d", idx)
	}
}

func TestWaitAnyRespectsContext(t *testing.T) {
	log := NopLogger{}
	a := newLatch("a", log)
	b := newLatch("b", log)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := waitAny(ctx, a, b)
	if err == nil {
		t.Fatal("expected waitAny to return an error once the context deadline passes")
	}
}
