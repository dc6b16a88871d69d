package async

import "sync"

// current holds the process-wide default Runtime used by package-level helpers when
// called with a nil Ctx from outside any execution. Exactly one scheduler instance is
// active per root at a time, so a plain mutex-guarded variable is sufficient; Scope
// never nests concurrently across goroutines in intended use.
var (
	scopeMu sync.Mutex
	current *Runtime
)

// Scope swaps rt in as the active default Runtime for the duration of fn, restoring
// whatever was active before on every exit path, including a panic. This is the
// "process-wide default scheduler with a scoped swap" primitive: acquire, use, restore.
func Scope(rt *Runtime, fn func()) {
	scopeMu.Lock()
	previous := current
	current = rt
	scopeMu.Unlock()

	defer func() {
		scopeMu.Lock()
		current = previous
		scopeMu.Unlock()
	}()

	fn()
}

// Current returns the Runtime set by the innermost enclosing Scope, or nil if none is
// active.
func Current() *Runtime {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	return current
}

func runtimeFor(c *Ctx) *Runtime {
	if c != nil {
		return c.rt
	}
	return Current()
}
