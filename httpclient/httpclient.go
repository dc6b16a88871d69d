// Package httpclient is a minimal HTTP/1.1 client speaking the wire format the async
// scheduler's Write/ReadAll primitives are meant to exercise: plain request framing,
// chunked-body decoding, and a bounded-size guard, all hand-rolled over net/crypto-tls
// rather than net/http, since the point is to drive the scheduler's suspension points
// with a real protocol rather than to provide a general-purpose HTTP client.
package httpclient

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	async "github.com/KrishRVH/minimal-php-async"
)

// DefaultMaxBytes is the response-size cap applied when Options.MaxBytes is zero.
const DefaultMaxBytes = 8_000_000

// DefaultConnectTimeout is applied when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 30 * time.Second

var statusLineRe = regexp.MustCompile(`(?i)HTTP/1\.[01]\s+(\d{3})`)

// Options configures a single Fetch call. Zero values take the documented defaults.
type Options struct {
	Method         string
	Headers        map[string]string
	Body           []byte
	Verify         bool
	VerifySet      bool // distinguishes "false" from "not supplied" (default true)
	ConnectTimeout time.Duration
	MaxBytes       int
	JSON           bool
}

// Response is the status line, headers, and body of a completed exchange.
type Response struct {
	StatusCode int
	Header     map[string][]string
	Body       []byte
}

// Fetch performs one request/response exchange against target. The connect step is a
// blocking dial that does not suspend; the calling execution (via c) then suspends
// across write and read_all. c must not be nil: Fetch is meant to run inside a queued
// task.
func Fetch(c *async.Ctx, target string, opts Options) (*Response, error) {
	u, err := parseURL(target)
	if err != nil {
		return nil, err
	}

	method := opts.Method
	if method == "" {
		method = "GET"
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	verify := true
	if opts.VerifySet {
		verify = opts.Verify
	}

	conn, err := dial(u, connectTimeout, verify)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", async.ErrConnectFailed, err)
	}

	streamID := connStreamID(conn)
	stream := async.NewConnStream(streamID, conn)

	req := buildRequest(method, u, opts.Headers, opts.Body, opts.JSON)
	if err := c.Write(stream, req); err != nil {
		return nil, err
	}

	raw, err := c.ReadAll(stream, maxBytes)
	if err != nil {
		return nil, err
	}

	return parseResponse(raw, target)
}

func parseURL(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", async.ErrInvalidURL, target)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", async.ErrInvalidURL, u.Scheme)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("%w: invalid port %q", async.ErrInvalidURL, p)
		}
	}
	return u, nil
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

func dial(u *url.URL, timeout time.Duration, verify bool) (net.Conn, error) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	addr := net.JoinHostPort(host, port)

	if u.Scheme == "http" {
		return net.DialTimeout("tcp", addr, timeout)
	}

	plain, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: !verify,
	}
	tconn := tls.Client(plain, cfg)
	if err := tconn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = plain.Close()
		return nil, err
	}
	if err := tconn.Handshake(); err != nil {
		_ = plain.Close()
		return nil, err
	}
	_ = tconn.SetDeadline(time.Time{})
	return tconn, nil
}

// connStreamID derives a process-unique identifier for a net.Conn; the scheduler only
// requires streams it watches to carry a stable, unique id, not a real file descriptor.
var connCounter int64

func connStreamID(conn net.Conn) int64 {
	connCounter++
	return connCounter
}

func buildRequest(method string, u *url.URL, headers map[string]string, body []byte, isJSON bool) []byte {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&b, "Host: %s\r\n", u.Host)
	fmt.Fprintf(&b, "Connection: close\r\n")

	hasContentLength := false
	for name, value := range headers {
		if strings.EqualFold(name, "content-length") {
			hasContentLength = true
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	}
	if len(body) > 0 && !hasContentLength {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	if isJSON {
		fmt.Fprintf(&b, "Accept: application/json\r\n")
	}
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}

func parseResponse(raw []byte, target string) (*Response, error) {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(raw, sep)
	if idx < 0 {
		return nil, async.ErrMalformedResponse
	}
	headerSeg := raw[:idx]
	rest := raw[idx+len(sep):]

	statusCode := 0
	if m := statusLineRe.FindSubmatch(headerSeg); m != nil {
		statusCode, _ = strconv.Atoi(string(m[1]))
	}

	header := parseHeaders(headerSeg)

	body := rest
	if headerHasChunkedEncoding(headerSeg) {
		decoded, err := decodeChunked(rest)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	resp := &Response{StatusCode: statusCode, Header: header, Body: body}
	if statusCode >= 400 {
		return resp, fmt.Errorf("%w: status %d for %s", async.ErrHTTPStatus, statusCode, target)
	}
	return resp, nil
}

func headerHasChunkedEncoding(headerSeg []byte) bool {
	return bytes.Contains(bytes.ToLower(headerSeg), []byte("transfer-encoding: chunked"))
}

func parseHeaders(headerSeg []byte) map[string][]string {
	lines := strings.Split(string(headerSeg), "\r\n")
	header := make(map[string][]string)
	for _, line := range lines[1:] { // skip the status line
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		if name == "" {
			continue
		}
		header[name] = append(header[name], value)
	}
	return header
}

func decodeChunked(data []byte) ([]byte, error) {
	var out bytes.Buffer
	rest := data

	for {
		line, tail, ok := cutCRLFLine(rest)
		if !ok {
			return nil, async.ErrMalformedChunk
		}
		rest = tail

		sizeText := line
		if i := bytes.IndexByte(sizeText, ';'); i >= 0 {
			sizeText = sizeText[:i]
		}
		sizeText = bytes.TrimSpace(sizeText)

		size, err := strconv.ParseInt(string(sizeText), 16, 64)
		if err != nil || size < 0 {
			return nil, async.ErrMalformedChunk
		}

		if size == 0 {
			return decodeTrailer(rest, out.Bytes())
		}

		if int64(len(rest)) < size {
			return nil, async.ErrMalformedChunk
		}
		out.Write(rest[:size])
		rest = rest[size:]

		crlfLine, tail, ok := cutCRLFLine(rest)
		if !ok || len(crlfLine) != 0 {
			return nil, async.ErrMalformedChunk
		}
		rest = tail
	}
}

func decodeTrailer(rest []byte, body []byte) ([]byte, error) {
	for {
		line, tail, ok := cutCRLFLine(rest)
		if !ok {
			return nil, async.ErrMalformedTrailer
		}
		rest = tail
		if len(line) == 0 {
			break
		}
	}
	if len(rest) != 0 {
		return nil, async.ErrMalformedTrailer
	}
	return body, nil
}

// cutCRLFLine splits off the first CRLF-terminated line from data, returning the line
// (without the CRLF), the remainder, and whether a CRLF was found at all.
func cutCRLFLine(data []byte) (line, rest []byte, ok bool) {
	i := bytes.Index(data, []byte("\r\n"))
	if i < 0 {
		return nil, nil, false
	}
	return data[:i], data[i+2:], true
}
