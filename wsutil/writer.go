package wsutil

import (
	"io"

	"github.com/gobwas/pool/pbytes"
	"github.com/gobwas/wsd/ws"
)

// Writer writes a message as a sequence of frames. Every frame except the
// last one carries exactly the buffer size of payload; the last one is
// written by Flush.
type Writer struct {
	wr  io.Writer
	buf []byte
	n   int

	dirty  bool
	frames int

	op ws.OpCode
}

// NewWriterBuffer returns Writer of op code messages that uses buf as
// fragment buffer. Frames carry at most len(buf) payload bytes.
func NewWriterBuffer(wr io.Writer, buf []byte, op ws.OpCode) *Writer {
	return &Writer{
		wr:  wr,
		buf: buf,
		op:  op,
	}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	// Even if len(p) == 0 we mark w as dirty,
	// cause even empty p (and empty frame) may have a value.
	w.dirty = true

	for {
		nn := copy(w.buf[w.n:], p)
		p = p[nn:]
		w.n += nn
		n += nn

		if len(p) == 0 {
			break
		}

		_, err = w.write(w.buf)
		if err != nil {
			break
		}
		w.n = 0
	}
	return
}

// Flush writes the buffered data as the final frame of the message.
func (w *Writer) Flush() error {
	_, err := w.flush()
	return err
}

func (w *Writer) opCode() ws.OpCode {
	if w.frames > 0 {
		return ws.OpContinuation
	}
	return w.op
}

func (w *Writer) flush() (n int, err error) {
	if w.n == 0 && !w.dirty {
		return 0, nil
	}

	n, err = w.writeFrame(w.opCode(), w.buf[:w.n], true)
	w.dirty = false
	w.n = 0
	w.frames = 0

	return
}

func (w *Writer) write(p []byte) (n int, err error) {
	return w.writeFrame(w.opCode(), p, false)
}

func (w *Writer) writeFrame(op ws.OpCode, p []byte, fin bool) (n int, err error) {
	if err = ws.WriteFrame(w.wr, ws.NewFrame(op, fin, p)); err == nil {
		n = len(p)
	}
	w.frames++
	return
}

// WriteMessage writes m to w as frames of at most fragmentSize payload
// bytes. Zero fragmentSize writes the whole message in one frame.
func WriteMessage(w io.Writer, m Message, fragmentSize int) error {
	if fragmentSize <= 0 || len(m.Payload) <= fragmentSize {
		return ws.WriteFrame(w, ws.NewFrame(m.OpCode, true, m.Payload))
	}
	buf := pbytes.GetLen(fragmentSize)
	defer pbytes.Put(buf)

	fw := NewWriterBuffer(w, buf, m.OpCode)
	if _, err := fw.Write(m.Payload); err != nil {
		return err
	}
	return fw.Flush()
}
