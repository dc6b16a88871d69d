package async

import (
	"time"

	"github.com/KrishRVH/minimal-php-async/metrics"
)

// Option configures a Runtime at construction, the usual functional-options pattern.
type Option func(*Runtime)

// WithIOChunkSize overrides the per-tick-per-watcher byte budget (default IOChunk).
// Intended for tests that want to exercise chunking logic without 8KB payloads.
func WithIOChunkSize(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.ioChunk = n
		}
	}
}

// WithMetrics injects a metrics.Provider the scheduler reports tick/watcher/timer
// instruments to. Defaults to metrics.NoopProvider{} so library callers pay nothing
// unless they opt in.
func WithMetrics(p metrics.Provider) Option {
	return func(rt *Runtime) {
		if p != nil {
			rt.metrics = p
		}
	}
}

// WithClock overrides the monotonic clock the scheduler uses for timer deadlines.
// Intended for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(rt *Runtime) {
		if now != nil {
			rt.clock = now
		}
	}
}
