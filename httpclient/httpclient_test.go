package httpclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	async "github.com/KrishRVH/minimal-php-async"
)

func TestParseResponseChunkedBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n0\r\n\r\n")

	resp, err := parseResponse(raw, "http://example.test")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "abc", string(resp.Body))
}

func TestParseResponseVerbatimBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")

	resp, err := parseResponse(raw, "http://example.test")
	require.NoError(t, err)
	require.Equal(t, "hello", string(resp.Body))
}

func TestParseResponseMissingSeparator(t *testing.T) {
	_, err := parseResponse([]byte("not a valid response"), "http://example.test")
	require.ErrorIs(t, err, async.ErrMalformedResponse)
}

func TestParseResponseStatusFailure(t *testing.T) {
	raw := []byte("HTTP/1.1 404 Not Found\r\n\r\nmissing")
	resp, err := parseResponse(raw, "http://example.test/missing")
	require.ErrorIs(t, err, async.ErrHTTPStatus)
	require.NotNil(t, resp)
	require.Equal(t, 404, resp.StatusCode)
}

func TestDecodeChunkedRoundTrip(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	encoded := encodeChunkedForTest(body, 7)

	decoded, err := decodeChunked(encoded)
	require.NoError(t, err)
	require.Equal(t, body, decoded)
}

func TestDecodeChunkedMalformedSize(t *testing.T) {
	_, err := decodeChunked([]byte("zz\r\nabc\r\n"))
	require.ErrorIs(t, err, async.ErrMalformedChunk)
}

func TestDecodeChunkedMissingTrailingCRLF(t *testing.T) {
	_, err := decodeChunked([]byte("3\r\nabcXX"))
	require.ErrorIs(t, err, async.ErrMalformedChunk)
}

func TestDecodeChunkedTrailerWithExtraBytes(t *testing.T) {
	_, err := decodeChunked([]byte("0\r\n\r\nextra"))
	require.ErrorIs(t, err, async.ErrMalformedTrailer)
}

func TestParseURLRejectsBadInputs(t *testing.T) {
	cases := []string{
		"not a url",
		"ftp://example.test",
		"http://example.test:99999",
	}
	for _, c := range cases {
		_, err := parseURL(c)
		if !errors.Is(err, async.ErrInvalidURL) {
			t.Fatalf("parseURL(%q) err = %v; want ErrInvalidURL", c, err)
		}
	}
}

func TestParseURLAcceptsValidInputs(t *testing.T) {
	for _, c := range []string{"http://example.test", "https://example.test:8443/path?q=1"} {
		if _, err := parseURL(c); err != nil {
			t.Fatalf("parseURL(%q) unexpected error: %v", c, err)
		}
	}
}

// encodeChunkedForTest is a minimal reference encoder used only to exercise
// decodeChunked's left-inverse property; it is not part of the package's public API.
func encodeChunkedForTest(body []byte, chunkSize int) []byte {
	var out []byte
	for len(body) > 0 {
		n := chunkSize
		if n > len(body) {
			n = len(body)
		}
		out = append(out, []byte(hexSize(n)+"\r\n")...)
		out = append(out, body[:n]...)
		out = append(out, '\r', '\n')
		body = body[n:]
	}
	out = append(out, []byte("0\r\n\r\n")...)
	return out
}

func hexSize(n int) string {
	const hexDigits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{hexDigits[n%16]}, b...)
		n /= 16
	}
	return string(b)
}
