package ws

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gobwas/httphead"
)

// Errors used by the handshake parser.
var (
	ErrMalformedRequest = ParseError("malformed request")
)

// Errors used by the handshake validator.
var (
	ErrHandshakeBadProtocol    = ParseError("unsupported HTTP version")
	ErrHandshakeBadMethod      = ParseError("request method is not GET")
	ErrHandshakeBadConnection  = ParseError(`"Connection" header does not contain "Upgrade"`)
	ErrHandshakeBadUpgrade     = ParseError(`"Upgrade" header is not "websocket"`)
	ErrHandshakeBadSecKey      = ParseError(`"Sec-WebSocket-Key" header is missing or invalid`)
	ErrHandshakeBadSecVersion  = ParseError(`"Sec-WebSocket-Version" header is not "13"`)
	ErrHandshakeHeaderTooLarge = ParseError("request header block is too large")
)

// ParseError describes why an opening handshake could not be accepted. It
// is a normal outcome of negotiation and is answered with 400 Bad Request.
type ParseError string

func (p ParseError) Error() string { return string(p) }

// Header names, lower-cased as they are stored in Request.Headers.
const (
	headerUpgrade    = "upgrade"
	headerConnection = "connection"
	headerSecVersion = "sec-websocket-version"
	headerSecKey     = "sec-websocket-key"
)

var (
	headerEnd = []byte("\r\n\r\n")
	lineEnd   = []byte("\r\n")
)

// Request is a parsed opening handshake request.
type Request struct {
	Method  string
	Path    string
	Version string
	Major   int
	Minor   int

	// Headers holds header values keyed by lower-cased name. When a header
	// is repeated the last occurrence wins.
	Headers map[string]string
}

// Header returns the value of the header with given name. The lookup is
// case-insensitive.
func (r Request) Header(name string) (string, bool) {
	v, ok := r.Headers[strings.ToLower(name)]
	return v, ok
}

// ParseRequest parses an HTTP request header block from the beginning of p.
// It returns the request and the number of bytes up to and including the
// terminating empty line. Bytes after that are left for the caller.
//
// If p does not contain the whole header block ErrNeedMoreData is returned.
// A malformed request line results in ErrMalformedRequest. Malformed header
// lines are skipped.
func ParseRequest(p []byte) (req Request, n int, err error) {
	end := bytes.Index(p, headerEnd)
	if end == -1 {
		return req, 0, ErrNeedMoreData
	}
	n = end + len(headerEnd)
	head := p[:end+len(lineEnd)]

	i := bytes.Index(head, lineEnd)
	line := head[:i]
	head = head[i+len(lineEnd):]

	rl, ok := httphead.ParseRequestLine(line)
	if !ok {
		return req, n, ErrMalformedRequest
	}
	_, _, proto := httphead.SplitRequestLine(line)

	req.Method = string(rl.Method)
	req.Path = string(rl.URI)
	req.Version = string(proto)
	req.Major = rl.Version.Major
	req.Minor = rl.Version.Minor
	req.Headers = make(map[string]string)

	for len(head) > 0 {
		i = bytes.Index(head, lineEnd)
		line, head = head[:i], head[i+len(lineEnd):]

		k, v, ok := httphead.ParseHeaderLine(line)
		if !ok || len(k) == 0 {
			continue
		}
		req.Headers[strings.ToLower(string(k))] = string(v)
	}

	return req, n, nil
}

// ValidateRequest checks that req is a valid websocket opening handshake as
// defined by RFC6455 section 4.2.1. The returned error, if any, is a
// ParseError naming the first failed requirement.
func ValidateRequest(req Request) error {
	if req.Method != "GET" {
		return ErrHandshakeBadMethod
	}
	if req.Major < 1 || (req.Major == 1 && req.Minor < 1) {
		return ErrHandshakeBadProtocol
	}
	if !hasToken(req.Headers[headerConnection], "upgrade") {
		return ErrHandshakeBadConnection
	}
	if !strings.EqualFold(req.Headers[headerUpgrade], "websocket") {
		return ErrHandshakeBadUpgrade
	}
	if key, ok := req.Headers[headerSecKey]; !ok || !validNonce(key) {
		return ErrHandshakeBadSecKey
	}
	if req.Headers[headerSecVersion] != "13" {
		return ErrHandshakeBadSecVersion
	}
	return nil
}

// hasToken reports whether comma separated list of tokens contains token t.
// Comparison is case-insensitive.
func hasToken(list, t string) (has bool) {
	httphead.ScanTokens([]byte(list), func(v []byte) bool {
		has = strings.EqualFold(string(v), t)
		return !has
	})
	return has
}

// IsParseError reports whether err is a handshake negotiation failure.
func IsParseError(err error) bool {
	var pe ParseError
	return errors.As(err, &pe)
}

// IsProtocolError reports whether err is a frame level protocol violation.
func IsProtocolError(err error) bool {
	var pe ProtocolError
	return errors.As(err, &pe)
}
