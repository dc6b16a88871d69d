package async

import (
	"errors"
	"fmt"
	"strconv"
)

// Namespace prefixes every sentinel error message in this package.
const Namespace = "async"

var (
	// ErrCircularAwait is raised when an execution tries to await its own task.
	ErrCircularAwait = errors.New(Namespace + ": task cannot await itself")

	// ErrOutsideExecution is raised when a suspension primitive is invoked with a nil
	// Ctx, i.e. not from inside a running execution.
	ErrOutsideExecution = errors.New(Namespace + ": runtime primitive invoked outside an execution")

	// ErrTaskNotCompleted is raised by Await if a task reports neither a result nor an
	// error despite its execution having terminated through some non-standard wiring.
	ErrTaskNotCompleted = errors.New(Namespace + ": task not completed")

	// ErrInvalidMaxBytes is raised by ReadAll when max_bytes is not strictly positive.
	ErrInvalidMaxBytes = errors.New(Namespace + ": max_bytes must be greater than zero")

	// ErrInvalidStream is raised when Write/ReadAll is given a nil stream.
	ErrInvalidStream = errors.New(Namespace + ": invalid stream")

	// ErrDeadlock is raised by Drive when its predicate is false and the scheduler has
	// no pending I/O or timers left to make progress with.
	ErrDeadlock = errors.New(Namespace + ": no pending I/O or timers, but condition not met")

	// ErrCancelled is delivered as a throw-in to a cancelled execution.
	ErrCancelled = errors.New(Namespace + ": task cancelled")

	// ErrWriteFailed is delivered to the owning execution when the OS write fails.
	ErrWriteFailed = errors.New(Namespace + ": write failed")

	// ErrReadFailed is delivered to the owning execution when the OS read fails, or
	// when a read_all suspension is resumed with a non-[]byte payload.
	ErrReadFailed = errors.New(Namespace + ": read failed")

	// ErrResponseTooLarge is delivered when accumulated read bytes exceed the cap.
	ErrResponseTooLarge = errors.New(Namespace + ": response too large")

	// ErrRaceEmpty is raised by Race when given an empty task set.
	ErrRaceEmpty = errors.New(Namespace + ": race requires at least one task")

	// ErrInvalidURL is raised by the httpclient collaborator for an unparseable URL, an
	// unsupported scheme, or a port outside (0, 65535].
	ErrInvalidURL = errors.New(Namespace + ": invalid URL")

	// ErrConnectFailed is raised by the httpclient collaborator when the blocking
	// connect step (TCP dial, or TLS handshake for https) fails.
	ErrConnectFailed = errors.New(Namespace + ": connect failed")

	// ErrMalformedResponse is raised when a response has no header/body separator.
	ErrMalformedResponse = errors.New(Namespace + ": malformed response")

	// ErrMalformedChunk is raised by the chunked decoder on a bad size line, a missing
	// trailing CRLF, or insufficient chunk data.
	ErrMalformedChunk = errors.New(Namespace + ": malformed chunk")

	// ErrMalformedTrailer is raised by the chunked decoder when trailing bytes follow
	// the terminating empty trailer line.
	ErrMalformedTrailer = errors.New(Namespace + ": malformed chunk trailer")

	// ErrHTTPStatus is raised by the httpclient collaborator when a response status is
	// >= 400; the returned Response is still populated alongside this error.
	ErrHTTPStatus = errors.New(Namespace + ": HTTP status failure")
)

type timeoutError struct {
	seconds float64
}

func newTimeoutError(seconds float64) error {
	return &timeoutError{seconds: seconds}
}

func (e *timeoutError) Error() string {
	return Namespace + ": timeout after " + formatSeconds(e.seconds) + "s"
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'g', -1, 64)
}

// IsTimeout reports whether err was raised by the Timeout helper.
func IsTimeout(err error) bool {
	var te *timeoutError
	return errors.As(err, &te)
}

// newPanicError turns a recovered panic value into an error.
func newPanicError(p any) error {
	return fmt.Errorf(Namespace+": task execution panicked: %v", p)
}
