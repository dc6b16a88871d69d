package httpclient

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	async "github.com/KrishRVH/minimal-php-async"
)

// startEchoServer accepts exactly one connection, reads the request head up to the
// blank line, and replies with a fixed response body.
func startEchoServer(t *testing.T, body string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}

		resp := "HTTP/1.1 200 OK\r\nContent-Length: " +
			itoa(len(body)) + "\r\n\r\n" + body
		_, _ = conn.Write([]byte(resp))
	}()

	return ln.Addr().String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestFetchRoundTripOverRealSocket(t *testing.T) {
	addr := startEchoServer(t, "hello from server")

	rt := async.New()
	task := async.Queue(rt, nil, func(c *async.Ctx) (*Response, error) {
		return Fetch(c, "http://"+addr+"/greet", Options{})
	})

	resp, err := task.Await(nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "hello from server", string(resp.Body))
}
