package async

// Spawn queues fn as a new task. c is the caller's own execution handle, or nil when
// spawning from outside any execution — the new task is a child of c's task in the
// former case, a root task in the latter. If c is nil and no Scope is active, Spawn
// panics: there is no Runtime to queue onto.
func Spawn[R any](c *Ctx, fn func(*Ctx) (R, error)) *Task[R] {
	rt := runtimeFor(c)
	if rt == nil {
		panic("async: Spawn called with no active Runtime (pass a Ctx or wrap in Scope)")
	}
	return Queue(rt, c, fn)
}

// Run spawns fn and immediately awaits it, the fire-and-wait pair spec names "run".
func Run[R any](c *Ctx, fn func(*Ctx) (R, error)) (R, error) {
	return Spawn(c, fn).Await(c)
}

// Sleep delegates to Ctx.Delay; it exists so call sites read "Sleep" where that's the
// clearer name, exactly as the original design's sleep is a thin alias over delay.
func Sleep(c *Ctx, seconds float64) error {
	if c == nil {
		return ErrOutsideExecution
	}
	return c.Delay(seconds)
}

// All waits for every task in tasks to complete, keyed however the caller likes, then
// returns a map of their results. It drains to completion even after the first failing
// task is observed, so the scheduler is left in a coherent state; it then surfaces the
// first error found while walking tasks (Go map iteration order, not spawn order).
//
// Called with a nil c from outside any execution, All drives the scheduler directly.
// Called with a non-nil c from inside an execution, it awaits each task in turn — which
// cooperatively suspends this execution rather than calling Runtime.Drive, since only
// the root caller's goroutine may drive a Runtime.
func All[K comparable, R any](c *Ctx, tasks map[K]*Task[R]) (map[K]R, error) {
	for _, t := range tasks {
		_, _ = t.Await(c)
	}

	results := make(map[K]R, len(tasks))
	var firstErr error
	for k, t := range tasks {
		if t.error != nil {
			if firstErr == nil {
				firstErr = t.error
			}
			continue
		}
		results[k] = t.result
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// AllFunc queues every closure in fns as a task of its own, then delegates to All. It
// exists for the common case where callers have closures rather than already-spawned
// Tasks on hand.
func AllFunc[K comparable, R any](c *Ctx, fns map[K]func(*Ctx) (R, error)) (map[K]R, error) {
	tasks := make(map[K]*Task[R], len(fns))
	for k, fn := range fns {
		tasks[k] = Spawn(c, fn)
	}
	return All(c, tasks)
}

// Race returns the result of whichever task in tasks completes first (first in
// iteration order among those simultaneously done), cancelling every other task in
// tasks before returning. It fails with ErrRaceEmpty if tasks is empty.
func Race[R any](c *Ctx, tasks []*Task[R]) (R, error) {
	if len(tasks) == 0 {
		var zero R
		return zero, ErrRaceEmpty
	}

	winner, err := raceWait(c, tasks)
	if err != nil {
		var zero R
		return zero, err
	}

	for i, t := range tasks {
		if i != winner {
			t.Cancel()
		}
	}
	return tasks[winner].Await(c)
}

func raceWait[R any](c *Ctx, tasks []*Task[R]) (int, error) {
	if c == nil {
		winner := -1
		err := tasks[0].rt.Drive(func() bool {
			for i, t := range tasks {
				if t.isDone() {
					winner = i
					return true
				}
			}
			return false
		})
		if err != nil {
			return 0, err
		}
		return winner, nil
	}

	// Inside an execution: cooperatively yield a tick at a time until a competitor
	// finishes. A zero delay is the canonical yield-to-next-tick.
	for {
		for i, t := range tasks {
			if t.isDone() {
				return i, nil
			}
		}
		if err := c.Delay(0); err != nil {
			return 0, err
		}
	}
}

// Timeout races fn against a timer of seconds, surfacing a timeout error (IsTimeout)
// if the timer wins. fn's task is cancelled if it loses the race.
func Timeout[R any](c *Ctx, fn func(*Ctx) (R, error), seconds float64) (R, error) {
	work := Spawn(c, fn)
	clock := Spawn(c, func(tc *Ctx) (R, error) {
		if err := tc.Delay(seconds); err != nil {
			var zero R
			return zero, err
		}
		var zero R
		return zero, newTimeoutError(seconds)
	})
	return Race(c, []*Task[R]{work, clock})
}

// Gather fans fn out over items, one task per element, and collects results keyed by
// index — the spawn/all composition applied to a slice, built from Spawn and All
// rather than a worker pool.
func Gather[T any, R any](c *Ctx, items []T, fn func(*Ctx, T) (R, error)) (map[int]R, error) {
	tasks := make(map[int]*Task[R], len(items))
	for i, item := range items {
		item := item
		tasks[i] = Spawn(c, func(tc *Ctx) (R, error) { return fn(tc, item) })
	}
	return All(c, tasks)
}

// ForEach fans fn out over items the way Gather does, discarding results: it exists for
// side-effecting work where only the first error matters.
func ForEach[T any](c *Ctx, items []T, fn func(*Ctx, T) error) error {
	_, err := Gather(c, items, func(tc *Ctx, item T) (struct{}, error) {
		return struct{}{}, fn(tc, item)
	})
	return err
}
