package async

import "time"

// Timer is an immutable record: a wakeup instant and the execution suspended on it.
// Timers are kept unordered in the runtime; the scheduler scans them every tick.
type Timer struct {
	deadline time.Time
	exec     *execution
}
