package wsutil

import (
	"errors"
	"unicode/utf8"

	"github.com/gobwas/wsd/ws"
)

// Errors used by the Assembler.
var (
	ErrMessageTooBig = errors.New("message is too big")
	ErrControlFrame  = errors.New("control frames are not part of messages")
)

// Assembler joins data frames into messages. It holds at most one
// fragmented message at a time.
//
// Control frames must be handled before the frame reaches the Assembler.
// They may arrive between the fragments of a message and do not disturb it.
type Assembler struct {
	// MaxMessageSize limits the total payload size of one message.
	// Zero means no limit.
	MaxMessageSize int64

	fragmented bool
	op         ws.OpCode
	buf        []byte
}

// Feed adds a data frame to the message being assembled.
//
// It returns the message and true when f completes a message. While the
// message is incomplete it returns false and no error. Frames that violate
// fragmentation rules result in a ws.ProtocolError and leave the Assembler
// unchanged. Completed text messages are checked to be valid UTF-8.
func (a *Assembler) Feed(f ws.Frame) (m Message, ok bool, err error) {
	op := f.Header.OpCode
	switch {
	case op.IsControl():
		return m, false, ErrControlFrame
	case op == ws.OpContinuation && !a.fragmented:
		return m, false, ws.ErrProtocolContinuationUnexpected
	case op != ws.OpContinuation && a.fragmented:
		return m, false, ws.ErrProtocolContinuationExpected
	case op.IsReserved():
		return m, false, ws.ErrProtocolOpCodeReserved
	}

	if limit := a.MaxMessageSize; limit > 0 && int64(len(a.buf))+int64(len(f.Payload)) > limit {
		return m, false, ErrMessageTooBig
	}

	if op != ws.OpContinuation {
		if f.Header.Fin {
			return a.complete(op, f.Payload)
		}
		a.fragmented = true
		a.op = op
		a.buf = append(a.buf[:0], f.Payload...)
		return m, false, nil
	}

	a.buf = append(a.buf, f.Payload...)
	if !f.Header.Fin {
		return m, false, nil
	}

	p := a.buf
	op = a.op
	a.fragmented = false
	a.buf = nil
	return a.complete(op, p)
}

func (a *Assembler) complete(op ws.OpCode, p []byte) (Message, bool, error) {
	if op == ws.OpText && !utf8.Valid(p) {
		return Message{}, false, ws.ErrProtocolInvalidUTF8
	}
	return Message{OpCode: op, Payload: p}, true, nil
}

// State returns ws.StateFragmented while a fragmented message is in progress.
func (a *Assembler) State() ws.State {
	return ws.State(0).SetOrClearIf(a.fragmented, ws.StateFragmented)
}

// Fragmented reports whether a fragmented message is in progress.
func (a *Assembler) Fragmented() bool {
	return a.fragmented
}

// Buffered returns the number of payload bytes held for the message in
// progress.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Reset drops the message in progress, if any.
func (a *Assembler) Reset() {
	a.fragmented = false
	a.op = 0
	a.buf = nil
}
