package async

import (
	"errors"
	"net"
	"testing"
)

func TestExtractTaskIDAndStreamIDFromIOFailure(t *testing.T) {
	client, server := net.Pipe()

	go func() {
		_, _ = server.Write([]byte("hello"))
		_ = server.Close()
	}()

	rt := New()
	stream := NewConnStream(7, client)
	task := Queue(rt, nil, func(c *Ctx) ([]byte, error) {
		return c.ReadAll(stream, 3)
	})

	_, err := task.Await(nil)
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("err = %v; want ErrResponseTooLarge", err)
	}

	taskID, ok := ExtractTaskID(err)
	if !ok {
		t.Fatalf("ExtractTaskID: no task id present on %v", err)
	}
	if taskID != task.ID() {
		t.Fatalf("ExtractTaskID = %d; want %d", taskID, task.ID())
	}

	streamID, ok := ExtractStreamID(err)
	if !ok {
		t.Fatalf("ExtractStreamID: no stream id present on %v", err)
	}
	if streamID != stream.ID() {
		t.Fatalf("ExtractStreamID = %d; want %d", streamID, stream.ID())
	}
}

func TestExtractTaskIDAndStreamIDAbsentOnPlainError(t *testing.T) {
	plain := errors.New("boom")

	if _, ok := ExtractTaskID(plain); ok {
		t.Fatalf("ExtractTaskID: expected no task id on a plain error")
	}
	if _, ok := ExtractStreamID(plain); ok {
		t.Fatalf("ExtractStreamID: expected no stream id on a plain error")
	}
}
