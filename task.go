package async

import "strconv"

// Task is the handle for one cooperative unit of work. Its identity is the pointer
// itself; Task carries a result slot, an error slot, its children (spawned while it was
// executing), and the executions awaiting its completion — exactly the fields spec'd
// for the runtime's Task object.
//
// A Task's result/error fields are written exactly once, by its own execution's body
// (runExecution), before that execution signals suspendDone to the scheduler. Every
// other read of those fields happens only after the scheduler has observed suspendDone
// for this execution, which happens-after the write via the suspend channel send/receive
// — so no additional synchronization is required despite result/error being plain
// fields rather than atomics.
type Task[R any] struct {
	rt   *Runtime
	exec *execution

	result    R
	resultSet bool
	error     error

	children []taskHandle
	awaiters []*execution
}

// taskHandle is the type-erased view of a Task[R] the scheduler needs: enough to walk
// the children tree for cancellation, to register/drain awaiters, and to box a task's
// outcome as a resumeSignal for an arbitrary awaiter's R type.
type taskHandle interface {
	execPtr() *execution
	isDone() bool
	resultSignal() resumeSignal
	addChild(child taskHandle)
	takeChildren() []taskHandle
	addAwaiter(exec *execution)
	takeAwaiters() []*execution
}

func (t *Task[R]) execPtr() *execution { return t.exec }

func (t *Task[R]) isDone() bool { return t.exec.terminated.Load() }

func (t *Task[R]) resultSignal() resumeSignal {
	if t.error != nil {
		return resumeSignal{throw: t.error}
	}
	return resumeSignal{value: t.result}
}

func (t *Task[R]) addChild(child taskHandle) { t.children = append(t.children, child) }

func (t *Task[R]) takeChildren() []taskHandle {
	c := t.children
	t.children = nil
	return c
}

func (t *Task[R]) addAwaiter(exec *execution) { t.awaiters = append(t.awaiters, exec) }

func (t *Task[R]) takeAwaiters() []*execution {
	a := t.awaiters
	t.awaiters = nil
	return a
}

// ID returns a diagnostic-only identifier for this task's execution. It never affects
// scheduling and is stable for the lifetime of the task.
func (t *Task[R]) ID() uint64 { return t.exec.id }

// Done reports whether the task's execution has terminated, normally or by throw-in.
func (t *Task[R]) Done() bool { return t.isDone() }

// String returns a debug representation such as "task#3 done" or "task#3 pending", for
// diagnostics. It never affects scheduling.
func (t *Task[R]) String() string {
	state := "pending"
	if t.isDone() {
		state = "done"
	}
	return "task#" + strconv.FormatUint(t.exec.id, 10) + " " + state
}

// Cancel requests best-effort cancellation of the task. It is a no-op if the task is
// already done. See Runtime.cancel for the teardown sequence.
func (t *Task[R]) Cancel() {
	if t.isDone() {
		return
	}
	t.rt.cancel(t.exec)
}

// Await suspends the calling execution (identified by c) until t completes, then
// returns its result or raises its stored error. Pass a nil c to await from outside any
// execution (the "root"): this drives the scheduler until t is done.
//
// Awaiting a task from within its own execution is a caller bug (ErrCircularAwait).
func (t *Task[R]) Await(c *Ctx) (R, error) {
	if c == nil {
		return t.awaitRoot()
	}
	if c.exec == t.exec {
		var zero R
		return zero, ErrCircularAwait
	}

	if t.isDone() {
		sig := t.resultSignal()
		if sig.throw != nil {
			var zero R
			return zero, sig.throw
		}
		return sig.value.(R), nil
	}

	c.exec.suspend <- suspendRequest{kind: suspendAwait, awaitTarget: t}
	sig := <-c.exec.resume
	if sig.throw != nil {
		var zero R
		return zero, sig.throw
	}
	if sig.value == nil {
		var zero R
		return zero, nil
	}
	return sig.value.(R), nil
}

func (t *Task[R]) awaitRoot() (R, error) {
	if err := t.rt.Drive(func() bool { return t.isDone() }); err != nil {
		var zero R
		return zero, err
	}
	if t.error != nil {
		var zero R
		return zero, t.error
	}
	if t.resultSet {
		return t.result, nil
	}
	var zero R
	return zero, ErrTaskNotCompleted
}

// Ctx is the handle an execution's body uses to reach the runtime's suspension
// primitives (Delay, Write, ReadAll) and to spawn children or await sibling tasks. It
// represents "the execution" from the caller's point of view: every runtime primitive
// that can suspend takes one as an explicit parameter instead of relying on ambient
// (thread-local) state, since Go has no native notion of "the currently running
// coroutine" to hang that state off of.
type Ctx struct {
	exec *execution
	rt   *Runtime
}

// Runtime returns the owning scheduler.
func (c *Ctx) Runtime() *Runtime { return c.rt }

// Queue creates a new Task, builds its execution from fn, registers it as a child of
// the task owning parent (structured concurrency), and starts it synchronously: Queue does
// not return until the new execution reaches its first suspension point or completes.
func Queue[R any](rt *Runtime, parent *Ctx, fn func(*Ctx) (R, error)) *Task[R] {
	exec := newExecution()
	t := &Task[R]{rt: rt, exec: exec}
	rt.execToTask[exec] = t

	if parent != nil {
		if pt, ok := rt.execToTask[parent.exec]; ok {
			pt.addChild(t)
		}
	}

	go runExecution(exec, t, fn)

	rt.drainResumeQueue([]resumeJob{{exec: exec, initial: true}})

	return t
}
