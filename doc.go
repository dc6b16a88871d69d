// Package async implements a minimal, single-threaded cooperative concurrency
// runtime: a scheduler that multiplexes user tasks over byte-oriented streams and
// wall-clock timers, with structured parent/child task relationships and best-effort
// cancellation.
//
// Core types
//   - Runtime: the scheduler. Construct with New(opts...).
//   - Task[R]: a handle for one cooperative unit of work, returned by Queue.
//   - Ctx: the handle an execution's body uses to reach Delay, Write, and ReadAll.
//
// Suspension points
// Delay, Write, ReadAll, and Task.Await (called from inside another execution) are
// the only operations that suspend. Between suspensions, an execution's body runs
// straight-line Go code.
//
// Structured helpers
// Spawn, Run, All, Race, and Timeout compose tasks using Queue, Task.Await, and
// Task.Cancel; Race additionally waits through Runtime.Drive (from the root) or
// zero-length Ctx.Delay yields (from inside an execution) — see helpers.go.
//
// Ambient scheduler
// Called with a nil Ctx, Spawn (and Run, Timeout, AllFunc, Gather, and ForEach, which
// spawn through it) queues onto the Runtime installed by the innermost Scope
// (scope.go), which swaps in a caller-supplied Runtime for the duration of a block.
// There is no built-in default Runtime: outside any Scope, Current returns nil and
// Spawn panics. All and Race with a nil Ctx use the Runtime of the tasks they are
// given.
//
// Defaults
//   - IOChunk: 8192 bytes, the maximum per-tick progress a single watcher may make.
//   - Metrics: a no-op provider unless WithMetrics is supplied to New.
//
// The scheduler never logs; failures cross the boundary either by throwing into the
// owning execution (I/O failures, cancellation) or by surfacing at the caller that
// misused the API (deadlock, caller bugs).
package async
