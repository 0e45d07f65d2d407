// Package zlog adapts a github.com/rs/zerolog logger to the
// shutdown.Logger interface, so a coordinator's trace diagnostics land in
// whatever sink the rest of the service already logs to.
package zlog

import "github.com/rs/zerolog"

// Logger wraps a zerolog.Logger to satisfy shutdown.Logger.
type Logger struct {
	Z zerolog.Logger
}

// New wraps z as a shutdown.Logger.
func New(z zerolog.Logger) Logger {
	return Logger{Z: z}
}

// Trace logs msg at zerolog's trace level, attaching kv as alternating
// key/value pairs. An odd trailing key with no value is dropped.
func (l Logger) Trace(msg string, kv ...any) {
	emit(l.Z.Trace(), msg, kv)
}

// Debug logs msg at zerolog's debug level, attaching kv as alternating
// key/value pairs. An odd trailing key with no value is dropped.
func (l Logger) Debug(msg string, kv ...any) {
	emit(l.Z.Debug(), msg, kv)
}

func emit(evt *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		evt = evt.Interface(key, kv[i+1])
	}
	evt.Msg(msg)
}
