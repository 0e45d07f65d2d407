package shutdown

import "time"

// Builder assembles a Shutdown coordinator. The zero value is not
// usable; start with NewBuilder.
//
// Builder models the type-state machine described in the package design:
// WithOverwriteFunc is the only way to reach the overwrite-carrying
// state (OverwriteBuilder), whose Build wires the overwrite future.
// Go has no phantom types to enforce this at compile time; it is done
// structurally instead, by putting WithOverwriteFunc's result on a
// distinct type. OverwriteBuilder embeds *Builder, so Builder's other
// methods (WithSignal, WithoutSignal, WithOverwriteFunc) are promoted
// onto it; WithSignal and WithoutSignal return the underlying *Builder,
// and building from that result does not wire the overwrite future.
type Builder struct {
	signal   <-chan struct{}
	noSignal bool
	delay    time.Duration
	log      Logger
}

// NewBuilder starts a Builder in its default state: WithSignal(DefaultSignal()).
func NewBuilder() *Builder {
	return &Builder{signal: DefaultSignal()}
}

// WithoutSignal switches the builder to wait-group mode: the cancel
// latch is born pre-fired, and the drain reduces to waiting for
// population to reach zero.
func (b *Builder) WithoutSignal() *Builder {
	b.signal = nil
	b.noSignal = true
	return b
}

// WithSignal sets the channel whose first receive (or close) fires the
// shutdown signal.
func (b *Builder) WithSignal(ch <-chan struct{}) *Builder {
	b.signal = ch
	b.noSignal = false
	return b
}

// WithDelay attaches a soft-shutdown buffer: ShutdownSignalTriggered
// fires the instant the signal arrives, Cancelled fires d later.
func (b *Builder) WithDelay(d time.Duration) *Builder {
	b.delay = d
	return b
}

// MaybeWithDelay is WithDelay, but only if d is non-nil.
func (b *Builder) MaybeWithDelay(d *time.Duration) *Builder {
	if d != nil {
		b.delay = *d
	}
	return b
}

// WithLogger attaches the observability collaborator that receives trace
// diagnostics for this coordinator's lifecycle events.
func (b *Builder) WithLogger(log Logger) *Builder {
	b.log = log
	return b
}

// WithOverwriteFunc attaches a force-drain future, evaluated lazily at
// Build time. The returned OverwriteBuilder is the only state from which
// an overwrite-carrying Shutdown can be built.
func (b *Builder) WithOverwriteFunc(f func() <-chan struct{}) *OverwriteBuilder {
	return &OverwriteBuilder{Builder: b, overwriteFn: f}
}

// Build assembles the Shutdown coordinator.
func (b *Builder) Build() *Shutdown {
	return build(b.signalOrNil(), b.delay, nil, b.log)
}

func (b *Builder) signalOrNil() <-chan struct{} {
	if b.noSignal {
		return nil
	}
	return b.signal
}

// OverwriteBuilder is the terminal builder state reached via
// Builder.WithOverwriteFunc. It carries everything Builder does, plus
// the overwrite future.
type OverwriteBuilder struct {
	*Builder
	overwriteFn func() <-chan struct{}
}

// WithDelay attaches a soft-shutdown buffer. See Builder.WithDelay.
func (b *OverwriteBuilder) WithDelay(d time.Duration) *OverwriteBuilder {
	b.Builder.WithDelay(d)
	return b
}

// MaybeWithDelay is WithDelay, but only if d is non-nil.
func (b *OverwriteBuilder) MaybeWithDelay(d *time.Duration) *OverwriteBuilder {
	b.Builder.MaybeWithDelay(d)
	return b
}

// WithLogger attaches the observability collaborator. See Builder.WithLogger.
func (b *OverwriteBuilder) WithLogger(log Logger) *OverwriteBuilder {
	b.Builder.WithLogger(log)
	return b
}

// Build assembles the Shutdown coordinator, wiring the overwrite future
// configured via WithOverwriteFunc.
func (b *OverwriteBuilder) Build() *Shutdown {
	return build(b.signalOrNil(), b.delay, b.overwriteFn(), b.log)
}

// build wires the trigger latches, starts the background drivers, and
// returns the assembled coordinator.
func build(signalCh <-chan struct{}, delay time.Duration, overwriteCh <-chan struct{}, log Logger) *Shutdown {
	if log == nil {
		log = NopLogger{}
	}

	state := &sharedState{log: log}
	state.zero = newLatch("zero", log)
	state.cancel = newLatch("cancel", log)
	if delay > 0 {
		state.preDelay = newLatch("pre-delay", log)
	} else {
		state.preDelay = state.cancel
	}

	s := &Shutdown{state: state}
	s.bootstrap = newGuard(state)

	runDriver(signalCh, delay, state)

	if overwriteCh != nil {
		s.overwrite = newLatch("overwrite", log)
		runOverwriteDriver(overwriteCh, s.overwrite, log)
	}

	return s
}

// New is shorthand for NewBuilder().WithSignal(signal).Build().
func New(signal <-chan struct{}) *Shutdown {
	return NewBuilder().WithSignal(signal).Build()
}

// NoSignal is shorthand for NewBuilder().WithoutSignal().Build(): a pure
// wait-group coordinator with no external shutdown signal.
func NoSignal() *Shutdown {
	return NewBuilder().WithoutSignal().Build()
}

// Default is shorthand for NewBuilder().Build(): a coordinator using the
// platform's default signal (SIGINT/SIGTERM on unix, Ctrl-C/Close/Shutdown
// on Windows).
func Default() *Shutdown {
	return NewBuilder().Build()
}
