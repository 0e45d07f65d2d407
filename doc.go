// Package shutdown provides graceful-shutdown coordination for task-based
// servers.
//
// It unifies three mechanisms that are otherwise hand-rolled per service:
// a process-wide shutdown signal that broadcasts cancellation to every
// in-flight task, a reference-counted guard tally that lets a supervisor
// block until every registered task has voluntarily finished, and a
// bounded drain with an optional pre-drain delay and an optional overwrite
// (force-drain) signal.
//
// Quick example:
//
//	sd := shutdown.Default()
//	sd.SpawnTaskFn(func(ctx context.Context, g *shutdown.Guard) error {
//	    return g.Cancelled(ctx) // wait for SIGINT/SIGTERM (unix) or Ctrl-C (windows)
//	})
//	elapsed, err := sd.Drain(context.Background())
//
// The coordinator is not a task scheduler: it only counts and notifies
// tasks. It is not a general pub/sub channel: each trigger fires at most
// once and carries no payload. It is not a timeout library: the timed
// drain uses a single monotonic duration. There is no parent/child
// cancellation tree; nested tasks share the same root latch.
package shutdown
