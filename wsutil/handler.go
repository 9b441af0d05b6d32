package wsutil

import (
	"strconv"

	"github.com/gobwas/wsd/ws"
)

// FrameWriter is the interface that wraps the WriteFrame method.
type FrameWriter interface {
	WriteFrame(ws.Frame) error
}

// FrameWriterFunc is an adapter to allow the use of ordinary functions as
// FrameWriter.
type FrameWriterFunc func(ws.Frame) error

// WriteFrame calls fn(f).
func (fn FrameWriterFunc) WriteFrame(f ws.Frame) error { return fn(f) }

// FrameHandler handles a decoded control frame.
type FrameHandler func(f ws.Frame) error

// ClosedError returned when peer has closed the connection with appropriate
// code and a textual reason.
type ClosedError struct {
	Code   ws.StatusCode
	Reason string
}

// Error implements error interface.
func (err ClosedError) Error() string {
	return "ws closed: " + strconv.FormatUint(uint64(err.Code), 10) + " " + err.Reason
}

// PingHandler returns FrameHandler that answers ping frame with a pong
// frame carrying the same payload.
func PingHandler(w FrameWriter) FrameHandler {
	return func(f ws.Frame) error {
		return w.WriteFrame(ws.NewPongFrame(f.Payload))
	}
}

// PongHandler returns FrameHandler that handles pong frame by discarding it.
//
// Discard pong message according to the RFC6455:
// A Pong frame MAY be sent unsolicited. This serves as a
// unidirectional heartbeat. A response to an unsolicited Pong frame
// is not expected.
func PongHandler() FrameHandler {
	return func(ws.Frame) error { return nil }
}

// CloseHandler returns FrameHandler that handles close frame, makes protocol
// validity checks and echoes it to w.
//
// On success it returns ClosedError describing the peer's closure. When the
// received frame has no status code, the echo carries 1000 and the
// ClosedError carries 1005 as RFC6455 section 7.1.5 prescribes.
func CloseHandler(w FrameWriter) FrameHandler {
	return func(f ws.Frame) error {
		code, reason, err := ParseClose(f)
		if err != nil {
			return err
		}
		echo := code
		if code == ws.StatusNoStatusRcvd {
			echo = ws.StatusNormalClosure
		}
		// RFC6455#5.5.1:
		// If an endpoint receives a Close frame and did not previously
		// send a Close frame, the endpoint MUST send a Close frame in
		// response. (When sending a Close frame in response, the endpoint
		// typically echos the status code it received.)
		if err = w.WriteFrame(ws.NewCloseFrame(echo, "")); err != nil {
			return err
		}
		return ClosedError{Code: code, Reason: reason}
	}
}

// ParseClose parses and checks close frame payload. Empty payload results
// in ws.StatusNoStatusRcvd code.
func ParseClose(f ws.Frame) (code ws.StatusCode, reason string, err error) {
	switch len(f.Payload) {
	case 0:
		return ws.StatusNoStatusRcvd, "", nil
	case 1:
		return 0, "", ws.ErrProtocolCloseDataTruncated
	}
	code, reason = ws.ParseCloseFrameData(f.Payload)
	if err = ws.CheckCloseFrameData(code, reason); err != nil {
		return 0, "", err
	}
	return code, reason, nil
}

// ControlHandler return FrameHandler that handles control messages
// and writes responses to w when needed.
func ControlHandler(w FrameWriter) FrameHandler {
	pingHandler := PingHandler(w)
	pongHandler := PongHandler()
	closeHandler := CloseHandler(w)

	return func(f ws.Frame) error {
		switch f.Header.OpCode {
		case ws.OpPing:
			return pingHandler(f)
		case ws.OpPong:
			return pongHandler(f)
		case ws.OpClose:
			return closeHandler(f)
		}
		return nil
	}
}
