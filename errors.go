package shutdown

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the sentinel TimeoutError wraps, for errors.Is callers
// that don't need the duration detail.
var ErrTimeout = errors.New("shutdown: drain did not complete in time")

// errOverwriteForced is used internally to distinguish an overwrite-won
// race from a genuine population drain, without allocating a TimeoutError
// before the call site knows the elapsed duration.
var errOverwriteForced = errors.New("shutdown: overwrite forced drain")

// TimeoutError is returned by Shutdown.DrainWithLimit when either the
// configured limit expires or the overwrite signal fires before every
// outstanding Guard has been released.
type TimeoutError struct {
	// Limit is the duration DrainWithLimit was called with.
	Limit time.Duration
	// Elapsed is how long DrainWithLimit actually waited.
	Elapsed time.Duration
	// Forced is true if an overwrite signal ended the drain, false if the
	// limit itself expired.
	Forced bool
}

func (e *TimeoutError) Error() string {
	if e.Forced {
		return fmt.Sprintf("shutdown: drain force-completed by overwrite after %s", e.Elapsed)
	}
	return fmt.Sprintf("shutdown: drain timed out after %s (limit %s)", e.Elapsed, e.Limit)
}

// Is reports whether target is ErrTimeout, so errors.Is(err, ErrTimeout)
// works without callers needing the concrete *TimeoutError type.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
