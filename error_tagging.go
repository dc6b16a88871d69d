package async

import (
	"errors"
	"fmt"
)

// TaggedError exposes correlation metadata for a failure delivered by the scheduler:
// which execution it was thrown into, and which stream (if any) was involved.
type TaggedError interface {
	error
	Unwrap() error
	TaskID() (uint64, bool)
	StreamID() (int64, bool)
}

type taggedError struct {
	err      error
	taskID   uint64
	streamID int64
	hasTask  bool
	hasSID   bool
}

func newTaggedError(err error, taskID uint64, streamID int64, hasSID bool) error {
	if err == nil {
		return nil
	}
	return &taggedError{err: err, taskID: taskID, streamID: streamID, hasTask: true, hasSID: hasSID}
}

func (e *taggedError) Error() string { return e.err.Error() }
func (e *taggedError) Unwrap() error { return e.err }

func (e *taggedError) TaskID() (uint64, bool) { return e.taskID, e.hasTask }

func (e *taggedError) StreamID() (int64, bool) { return e.streamID, e.hasSID }

func (e *taggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			if e.hasSID {
				_, _ = fmt.Fprintf(s, "task(id=%d,stream=%d): %+v", e.taskID, e.streamID, e.err)
			} else {
				_, _ = fmt.Fprintf(s, "task(id=%d): %+v", e.taskID, e.err)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractTaskID returns the execution's task id from err if present.
func ExtractTaskID(err error) (uint64, bool) {
	var te TaggedError
	if errors.As(err, &te) {
		return te.TaskID()
	}
	return 0, false
}

// ExtractStreamID returns the stream id associated with err, if present.
func ExtractStreamID(err error) (int64, bool) {
	var te TaggedError
	if errors.As(err, &te) {
		return te.StreamID()
	}
	return 0, false
}
