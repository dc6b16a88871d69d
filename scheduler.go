package async

import (
	"errors"
	"io"
	"net"
	"sort"
	"time"

	"github.com/KrishRVH/minimal-php-async/metrics"
	"github.com/KrishRVH/minimal-php-async/pool"
)

// Runtime is the scheduler: it owns the read-watcher map, the write-watcher map, the
// timer list, and the execution-to-task back-reference used by Queue to attach
// children and by cancel to find descendants. All of its state is mutated only from
// the single goroutine that drives it — never concurrently from two goroutines at
// once, matching the single-threaded cooperative model this package implements.
type Runtime struct {
	read  map[int64]Watcher
	write map[int64]Watcher

	timers []Timer

	execToTask map[*execution]taskHandle

	ioChunk int
	clock   func() time.Time
	metrics metrics.Provider
	bufPool *pool.BufferPool

	ticks          uint64
	lastReadCount  int64
	lastWriteCount int64
}

// New constructs a Runtime ready to queue and drive tasks.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		read:       make(map[int64]Watcher),
		write:      make(map[int64]Watcher),
		execToTask: make(map[*execution]taskHandle),
		ioChunk:    IOChunk,
		clock:      time.Now,
		metrics:    metrics.NoopProvider{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.bufPool = pool.NewBufferPool(rt.ioChunk)
	return rt
}

// Stats is a point-in-time snapshot of scheduler occupancy, useful for diagnostics and
// for the demo CLI's metrics table.
type Stats struct {
	ReadWatchers  int
	WriteWatchers int
	Timers        int
	Ticks         uint64
}

// Stats returns a snapshot of the scheduler's current state. Like every other Runtime
// method, it must only be called from the goroutine driving this Runtime.
func (rt *Runtime) Stats() Stats {
	return Stats{
		ReadWatchers:  len(rt.read),
		WriteWatchers: len(rt.write),
		Timers:        len(rt.timers),
		Ticks:         rt.ticks,
	}
}

// Drive loops, running one tick at a time, until predicate reports true. It fails with
// ErrDeadlock if predicate is false and the scheduler has no pending I/O or timers left
// to make progress with — Drive is the only method that blocks the calling goroutine.
func (rt *Runtime) Drive(predicate func() bool) error {
	for !predicate() {
		if len(rt.read) == 0 && len(rt.write) == 0 && len(rt.timers) == 0 {
			return ErrDeadlock
		}
		rt.tick()
	}
	return nil
}

// resumeJob is one entry in the scheduler's internal work queue: resume exec with sig
// (unless initial, in which case exec was just spawned and has not been sent anything
// yet), then synchronously observe and process whatever it suspends on next.
type resumeJob struct {
	exec    *execution
	sig     resumeSignal
	initial bool
}

// drainResumeQueue processes seed and every cascading resumption it produces (awaiters
// becoming runnable, chained completions) before returning. Because each job resumes
// exactly one execution and then blocks until that execution's next suspension point,
// only one execution is ever doing user-visible work at any instant, even though each
// lives in its own goroutine.
func (rt *Runtime) drainResumeQueue(seed []resumeJob) {
	queue := seed
	for len(queue) > 0 {
		job := queue[0]
		queue = queue[1:]
		if !job.initial {
			job.exec.resume <- job.sig
		}
		req := <-job.exec.suspend
		queue = append(queue, rt.handleSuspendRequest(job.exec, req)...)
	}
}

func (rt *Runtime) handleSuspendRequest(exec *execution, req suspendRequest) []resumeJob {
	switch req.kind {
	case suspendDelay:
		d := req.delaySeconds
		if d < 0 {
			d = 0
		}
		rt.timers = append(rt.timers, Timer{
			deadline: rt.clock().Add(time.Duration(d * float64(time.Second))),
			exec:     exec,
		})
		return nil

	case suspendWrite:
		rt.write[req.stream.ID()] = Watcher{stream: req.stream, exec: exec, buffer: req.data, count: 0}
		return nil

	case suspendRead:
		rt.read[req.stream.ID()] = Watcher{stream: req.stream, exec: exec, buffer: nil, count: req.cap}
		return nil

	case suspendAwait:
		target := req.awaitTarget
		if target.isDone() {
			return []resumeJob{{exec: exec, sig: target.resultSignal()}}
		}
		target.addAwaiter(exec)
		return nil

	case suspendDone:
		exec.terminated.Store(true)
		th, ok := rt.execToTask[exec]
		if !ok {
			return nil
		}
		delete(rt.execToTask, exec)
		awaiters := th.takeAwaiters()
		sig := th.resultSignal()
		jobs := make([]resumeJob, 0, len(awaiters))
		for _, aw := range awaiters {
			jobs = append(jobs, resumeJob{exec: aw, sig: sig})
		}
		return jobs

	default:
		return nil
	}
}

// throwInto delivers err as a throw-in to exec's next resumption, best-effort: if exec
// has already terminated this is a silent no-op, matching the IOFailure/Cancelled
// delivery contract.
func (rt *Runtime) throwInto(exec *execution, err error) {
	if exec.terminated.Load() {
		return
	}
	rt.drainResumeQueue([]resumeJob{{exec: exec, sig: resumeSignal{throw: err}}})
}

// cancel tears down the target execution: children first (recursively), then its own
// watchers and timers, then (if it is still live) a best-effort throw-in of
// ErrCancelled. Any failure delivering that throw-in is suppressed, since cancel must
// never raise through the canceller.
func (rt *Runtime) cancel(target *execution) {
	if th, ok := rt.execToTask[target]; ok {
		for _, child := range th.takeChildren() {
			rt.cancel(child.execPtr())
		}
	}

	for id, w := range rt.read {
		if w.exec == target {
			delete(rt.read, id)
			_ = w.stream.Close()
		}
	}
	for id, w := range rt.write {
		if w.exec == target {
			delete(rt.write, id)
			_ = w.stream.Close()
		}
	}
	kept := rt.timers[:0]
	for _, tm := range rt.timers {
		if tm.exec != target {
			kept = append(kept, tm)
		}
	}
	rt.timers = kept

	if !target.terminated.Load() {
		rt.bestEffortThrow(target, ErrCancelled)
	}
}

func (rt *Runtime) bestEffortThrow(target *execution, err error) {
	defer func() { _ = recover() }()
	rt.throwInto(target, err)
}

// tick is one pass of the scheduler: timers first, then at most one bounded I/O wait
// plus at most one IOChunk-bounded step per ready watcher.
func (rt *Runtime) tick() {
	rt.ticks++
	rt.metrics.Counter("async_ticks_total").Add(1)

	now := rt.clock()
	rt.tickTimers(now)

	nextAt, hasNext := rt.nextTimerDeadline()

	readNow := int64(len(rt.read))
	writeNow := int64(len(rt.write))
	rt.metrics.UpDownCounter("async_read_watchers").Add(readNow - rt.lastReadCount)
	rt.metrics.UpDownCounter("async_write_watchers").Add(writeNow - rt.lastWriteCount)
	rt.lastReadCount, rt.lastWriteCount = readNow, writeNow
	rt.metrics.Histogram("async_timers_pending").Record(float64(len(rt.timers)))

	if len(rt.read) == 0 && len(rt.write) == 0 {
		if hasNext {
			d := nextAt.Sub(rt.clock())
			if d < 0 {
				d = 0
			}
			time.Sleep(d)
		}
		return
	}

	var timeout time.Duration = -1
	if hasNext {
		timeout = nextAt.Sub(now)
		if timeout < 0 {
			timeout = 0
		}
	}

	rt.tickIO(timeout)
}

func (rt *Runtime) tickTimers(now time.Time) {
	pending := rt.timers
	rt.timers = nil
	for _, tm := range pending {
		if !tm.deadline.After(now) {
			if !tm.exec.terminated.Load() {
				rt.drainResumeQueue([]resumeJob{{exec: tm.exec, sig: resumeSignal{}}})
			}
			continue
		}
		rt.timers = append(rt.timers, tm)
	}
}

func (rt *Runtime) nextTimerDeadline() (time.Time, bool) {
	var min time.Time
	found := false
	for _, tm := range rt.timers {
		if !found || tm.deadline.Before(min) {
			min = tm.deadline
			found = true
		}
	}
	return min, found
}

// ioAttemptDir distinguishes which map an ioAttempt's result applies to.
type ioAttemptDir int

const (
	dirWrite ioAttemptDir = iota
	dirRead
)

type ioAttempt struct {
	id  int64
	dir ioAttemptDir
	n   int
	err error
	eof bool
}

// tickIO performs the combined "invoke the OS readiness primitive, then process ready
// streams" step of Phase B. Because the runtime deliberately avoids a general
// epoll/kqueue abstraction (a named non-goal), readiness is modeled as a
// deadline-bounded read/write attempt per candidate stream, run concurrently, each
// bounded by setDeadline (never unbounded, even with no timer pending — see
// defaultPollInterval) so one idle stream can never stall every other stream's result;
// results are then applied write-streams-first, read-streams second, exactly as the
// tick ordering requires.
func (rt *Runtime) tickIO(timeout time.Duration) {
	writeIDs := sortedKeys(rt.write)
	readIDs := sortedKeys(rt.read)

	total := len(writeIDs) + len(readIDs)
	if total == 0 {
		return
	}

	results := make(chan ioAttempt, total)
	scratch := make(map[int64][]byte, len(readIDs))

	for _, id := range writeIDs {
		w := rt.write[id]
		chunk := sliceChunk(w.buffer, w.count, rt.ioChunk)
		go probeWrite(id, w.stream, timeout, chunk, results)
	}
	for _, id := range readIDs {
		w := rt.read[id]
		buf := rt.bufPool.Get()
		scratch[id] = buf
		go probeRead(id, w.stream, timeout, buf, results)
	}

	collected := make(map[int64]ioAttempt, total)
	for i := 0; i < total; i++ {
		a := <-results
		collected[a.id] = a
	}

	for _, id := range writeIDs {
		rt.applyWriteResult(id, collected[id])
	}
	for _, id := range readIDs {
		a := collected[id]
		rt.applyReadResult(id, a, scratch[id][:a.n])
		rt.bufPool.Put(scratch[id])
	}
}

func sortedKeys(m map[int64]Watcher) []int64 {
	keys := make([]int64, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sliceChunk(buffer []byte, offset, chunkSize int) []byte {
	end := offset + chunkSize
	if end > len(buffer) {
		end = len(buffer)
	}
	return buffer[offset:end]
}

func probeWrite(id int64, s Stream, timeout time.Duration, chunk []byte, out chan<- ioAttempt) {
	setDeadline(s.SetWriteDeadline, timeout)
	n, err := s.Write(chunk)
	out <- ioAttempt{id: id, dir: dirWrite, n: n, err: err}
}

func probeRead(id int64, s Stream, timeout time.Duration, buf []byte, out chan<- ioAttempt) {
	setDeadline(s.SetReadDeadline, timeout)
	n, err := s.Read(buf)
	out <- ioAttempt{id: id, dir: dirRead, n: n, err: err, eof: errors.Is(err, io.EOF)}
}

// defaultPollInterval bounds a probe's wait when no timer is pending. Without it, a
// stream with nothing to read would block its probe goroutine forever (no deadline at
// all), and tickIO's collection loop would then never unblock on that goroutine even
// after every other candidate stream had already reported readiness — stalling the
// whole tick, and so the whole scheduler, rather than just that one idle stream.
const defaultPollInterval = 50 * time.Millisecond

func setDeadline(set func(time.Time) error, timeout time.Duration) {
	if timeout < 0 {
		timeout = defaultPollInterval
	}
	_ = set(time.Now().Add(timeout))
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (rt *Runtime) applyWriteResult(id int64, a ioAttempt) {
	w, ok := rt.write[id]
	if !ok {
		return
	}
	if a.n == 0 {
		if a.err != nil && !isTimeoutErr(a.err) {
			delete(rt.write, id)
			_ = w.stream.Close()
			rt.throwInto(w.exec, newTaggedError(ErrWriteFailed, w.exec.id, id, true))
		}
		return
	}

	newCount := w.count + a.n
	if newCount < len(w.buffer) {
		rt.write[id] = Watcher{stream: w.stream, exec: w.exec, buffer: w.buffer, count: newCount}
		return
	}

	delete(rt.write, id)
	if !w.exec.terminated.Load() {
		rt.drainResumeQueue([]resumeJob{{exec: w.exec, sig: resumeSignal{}}})
	}
}

func (rt *Runtime) applyReadResult(id int64, a ioAttempt, chunk []byte) {
	w, ok := rt.read[id]
	if !ok {
		return
	}

	if a.n == 0 && !a.eof {
		if a.err != nil && !isTimeoutErr(a.err) {
			delete(rt.read, id)
			_ = w.stream.Close()
			rt.throwInto(w.exec, newTaggedError(ErrReadFailed, w.exec.id, id, true))
		}
		return
	}

	grown := make([]byte, 0, len(w.buffer)+len(chunk))
	grown = append(grown, w.buffer...)
	grown = append(grown, chunk...)

	if len(grown) > w.count {
		delete(rt.read, id)
		_ = w.stream.Close()
		rt.throwInto(w.exec, newTaggedError(ErrResponseTooLarge, w.exec.id, id, true))
		return
	}

	if a.eof {
		delete(rt.read, id)
		_ = w.stream.Close()
		if !w.exec.terminated.Load() {
			rt.drainResumeQueue([]resumeJob{{exec: w.exec, sig: resumeSignal{value: grown}}})
		}
		return
	}

	rt.read[id] = Watcher{stream: w.stream, exec: w.exec, buffer: grown, count: w.count}
}
