package async

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestWriteDeliversAllData(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 0, 64)
		chunk := make([]byte, 16)
		for {
			n, err := server.Read(chunk)
			buf = append(buf, chunk[:n]...)
			if err != nil || len(buf) >= 5 {
				received <- buf
				return
			}
		}
	}()

	rt := New()
	stream := NewConnStream(1, client)
	task := Queue(rt, nil, func(c *Ctx) (struct{}, error) {
		return struct{}{}, c.Write(stream, []byte("hello"))
	})

	if _, err := task.Await(nil); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Fatalf("server received %q; want %q", got, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for server to receive data")
	}
}

func TestReadAllOversizedResponseRaisesAndCloses(t *testing.T) {
	client, server := net.Pipe()

	go func() {
		_, _ = server.Write([]byte("hello"))
		_ = server.Close()
	}()

	rt := New()
	stream := NewConnStream(2, client)
	task := Queue(rt, nil, func(c *Ctx) ([]byte, error) {
		return c.ReadAll(stream, 3)
	})

	_, err := task.Await(nil)
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("err = %v; want ErrResponseTooLarge", err)
	}

	// The stream must already be closed: a further read must fail.
	one := make([]byte, 1)
	if _, err := client.Read(one); err == nil {
		t.Fatalf("expected stream to be closed after Response too large")
	}
}

func TestReadAllStopsAtEOF(t *testing.T) {
	client, server := net.Pipe()

	go func() {
		_, _ = server.Write([]byte("abc"))
		_ = server.Close()
	}()

	rt := New()
	stream := NewConnStream(3, client)
	task := Queue(rt, nil, func(c *Ctx) ([]byte, error) {
		return c.ReadAll(stream, 1024)
	})

	got, err := task.Await(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got %q; want %q", got, "abc")
	}
}

func TestDelayDoesNotWakeEarly(t *testing.T) {
	rt := New()
	start := time.Now()
	task := Queue(rt, nil, func(c *Ctx) (struct{}, error) {
		return struct{}{}, c.Delay(0.05)
	})
	if _, err := task.Await(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("task resumed before its deadline")
	}
}
