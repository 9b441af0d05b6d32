package ws

import (
	"io"
	"strconv"

	"github.com/gobwas/pool/pbufio"
)

const (
	textUpgrade    = "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n"
	textBadRequest = "HTTP/1.1 400 Bad Request\r\nContent-Type: text/plain\r\nConnection: close\r\n"
	crlf           = "\r\n"
	colonAndSpace  = ": "

	headerSecAcceptCanonical     = "Sec-WebSocket-Accept"
	headerContentLengthCanonical = "Content-Length"

	responseBufferSize = 512
)

// CompileUpgradeResponse returns the 101 Switching Protocols response that
// completes the opening handshake with given Sec-WebSocket-Accept value.
func CompileUpgradeResponse(accept string) []byte {
	p := make([]byte, 0, len(textUpgrade)+len(headerSecAcceptCanonical)+len(accept)+6)
	p = append(p, textUpgrade...)
	p = append(p, headerSecAcceptCanonical...)
	p = append(p, colonAndSpace...)
	p = append(p, accept...)
	p = append(p, crlf...)
	p = append(p, crlf...)
	return p
}

// CompileRejectResponse returns the 400 Bad Request response with reason as
// a plain text body.
func CompileRejectResponse(reason string) []byte {
	n := strconv.Itoa(len(reason))
	p := make([]byte, 0, len(textBadRequest)+len(headerContentLengthCanonical)+len(n)+len(reason)+6)
	p = append(p, textBadRequest...)
	p = append(p, headerContentLengthCanonical...)
	p = append(p, colonAndSpace...)
	p = append(p, n...)
	p = append(p, crlf...)
	p = append(p, crlf...)
	p = append(p, reason...)
	return p
}

// WriteUpgradeResponse writes the 101 response for given accept value to w.
func WriteUpgradeResponse(w io.Writer, accept string) error {
	return writeResponse(w, CompileUpgradeResponse(accept))
}

// WriteRejectResponse writes the 400 response with given reason to w.
func WriteRejectResponse(w io.Writer, reason string) error {
	return writeResponse(w, CompileRejectResponse(reason))
}

func writeResponse(w io.Writer, p []byte) error {
	bw := pbufio.GetWriter(w, responseBufferSize)
	defer pbufio.PutWriter(bw)

	if _, err := bw.Write(p); err != nil {
		return err
	}
	return bw.Flush()
}
