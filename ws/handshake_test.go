package ws

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptKey(t *testing.T) {
	// Example from RFC6455 section 1.3.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func request(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n") + "\r\n\r\n")
}

func TestParseRequest(t *testing.T) {
	// Arrange.
	raw := request(
		"GET /chat HTTP/1.1",
		"Host: server.example.com",
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Key:   dGhlIHNhbXBsZSBub25jZQ==  ",
		"Sec-WebSocket-Version: 13",
		"broken line without colon",
		"X-Dup: first",
		"x-dup: second",
	)
	tail := []byte{0x81, 0x80}

	// Act.
	req, n, err := ParseRequest(append(raw, tail...))

	// Assert.
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/chat", req.Path)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Equal(t, 1, req.Major)
	assert.Equal(t, 1, req.Minor)
	assert.Equal(t, "dGhlIHNhbXBsZSBub25jZQ==", req.Headers["sec-websocket-key"])
	assert.Equal(t, "second", req.Headers["x-dup"])
	assert.Len(t, req.Headers, 6)

	v, ok := req.Header("SEC-WEBSOCKET-VERSION")
	assert.True(t, ok)
	assert.Equal(t, "13", v)
}

func TestParseRequestNeedMoreData(t *testing.T) {
	raw := request("GET / HTTP/1.1", "Host: localhost")
	for n := 0; n < len(raw); n++ {
		_, m, err := ParseRequest(raw[:n])
		require.ErrorIs(t, err, ErrNeedMoreData, "prefix of %d bytes", n)
		require.Zero(t, m)
	}
}

func TestParseRequestMalformed(t *testing.T) {
	for _, line := range []string{
		"GET",
		"GET /",
		"GET / HTTP/x.y",
		"/ HTTP/1.1",
		"",
	} {
		t.Run(line, func(t *testing.T) {
			_, _, err := ParseRequest(request(line, "Host: localhost"))
			assert.Equal(t, ErrMalformedRequest, err)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	valid := func() Request {
		return Request{
			Method:  "GET",
			Path:    "/",
			Version: "HTTP/1.1",
			Major:   1,
			Minor:   1,
			Headers: map[string]string{
				"upgrade":               "websocket",
				"connection":            "Upgrade",
				"sec-websocket-key":     "dGhlIHNhbXBsZSBub25jZQ==",
				"sec-websocket-version": "13",
			},
		}
	}
	for i, test := range []struct {
		mutate func(*Request)
		err    error
	}{
		{
			mutate: func(*Request) {},
		},
		{
			mutate: func(r *Request) { r.Headers["connection"] = "keep-alive, UPGRADE" },
		},
		{
			mutate: func(r *Request) { r.Headers["upgrade"] = "WebSocket" },
		},
		{
			mutate: func(r *Request) { r.Major, r.Minor = 2, 0 },
		},
		{
			mutate: func(r *Request) { r.Method = "POST" },
			err:    ErrHandshakeBadMethod,
		},
		{
			mutate: func(r *Request) { r.Major, r.Minor = 1, 0 },
			err:    ErrHandshakeBadProtocol,
		},
		{
			mutate: func(r *Request) { r.Headers["connection"] = "keep-alive" },
			err:    ErrHandshakeBadConnection,
		},
		{
			mutate: func(r *Request) { delete(r.Headers, "connection") },
			err:    ErrHandshakeBadConnection,
		},
		{
			mutate: func(r *Request) { r.Headers["upgrade"] = "h2c" },
			err:    ErrHandshakeBadUpgrade,
		},
		{
			mutate: func(r *Request) { delete(r.Headers, "sec-websocket-key") },
			err:    ErrHandshakeBadSecKey,
		},
		{
			// 15 bytes of key.
			mutate: func(r *Request) { r.Headers["sec-websocket-key"] = "dGhlIHNhbXBsZSBub25jZQ=" },
			err:    ErrHandshakeBadSecKey,
		},
		{
			mutate: func(r *Request) { r.Headers["sec-websocket-key"] = "not base64 at all!!!!!!!" },
			err:    ErrHandshakeBadSecKey,
		},
		{
			mutate: func(r *Request) { r.Headers["sec-websocket-version"] = "8" },
			err:    ErrHandshakeBadSecVersion,
		},
		{
			mutate: func(r *Request) { delete(r.Headers, "sec-websocket-version") },
			err:    ErrHandshakeBadSecVersion,
		},
	} {
		t.Run(fmt.Sprintf("#%d", i), func(t *testing.T) {
			req := valid()
			test.mutate(&req)
			assert.Equal(t, test.err, ValidateRequest(req))
		})
	}
}

func TestParseAndValidateRequest(t *testing.T) {
	req, _, err := ParseRequest(request(
		"GET /chat HTTP/1.1",
		"Host: server.example.com",
		"Upgrade: websocket",
		"Connection: keep-alive, Upgrade",
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==",
		"Origin: http://example.com",
		"Sec-WebSocket-Version: 13",
	))
	require.NoError(t, err)
	require.NoError(t, ValidateRequest(req))
}
