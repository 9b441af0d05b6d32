package ws

import (
	"encoding/binary"
	"io"
)

// Header size length bounds in bytes.
const (
	MaxHeaderSize = 14
	MinHeaderSize = 2
)

const (
	bit0 = 0x80
	bit1 = 0x40
	bit2 = 0x20
	bit3 = 0x10
	bit4 = 0x08
	bit5 = 0x04
	bit6 = 0x02
	bit7 = 0x01

	len7  = int64(125)
	len16 = int64(^(uint16(0)))
	len64 = int64(^(uint64(0)) >> 1)
)

// HeaderSize returns number of bytes that are needed to encode given header.
// It returns -1 if header is malformed.
func HeaderSize(h Header) (n int) {
	switch {
	case h.Length < 0:
		return -1
	case h.Length <= len7:
		n = 2
	case h.Length <= len16:
		n = 4
	case h.Length <= len64:
		n = 10
	default:
		return -1
	}
	if h.Masked {
		n += len(h.Mask)
	}
	return n
}

// AppendHeader appends the wire representation of h to dst.
// It panics if h.Length is negative.
func AppendHeader(dst []byte, h Header) []byte {
	var b0, b1 byte
	if h.Fin {
		b0 |= bit0
	}
	b0 |= h.Rsv << 4
	b0 |= byte(h.OpCode) & 0x0f

	if h.Masked {
		b1 |= bit0
	}

	switch {
	case h.Length < 0:
		panic("ws: negative frame length")
	case h.Length <= len7:
		dst = append(dst, b0, b1|byte(h.Length))
	case h.Length <= len16:
		dst = append(dst, b0, b1|126)
		dst = binary.BigEndian.AppendUint16(dst, uint16(h.Length))
	default:
		dst = append(dst, b0, b1|127)
		dst = binary.BigEndian.AppendUint64(dst, uint64(h.Length))
	}

	if h.Masked {
		dst = append(dst, h.Mask[:]...)
	}
	return dst
}

// AppendFrame appends the wire representation of f to dst.
// The header length is taken from f.Header.Length, so frames built by hand
// must keep it equal to len(f.Payload).
func AppendFrame(dst []byte, f Frame) []byte {
	dst = AppendHeader(dst, f.Header)
	return append(dst, f.Payload...)
}

// WriteHeader writes header binary representation into w.
func WriteHeader(w io.Writer, h Header) error {
	if HeaderSize(h) < 0 {
		return ErrHeaderLengthUnexpected
	}
	var bts [MaxHeaderSize]byte
	_, err := w.Write(AppendHeader(bts[:0], h))
	return err
}

// WriteFrame writes frame binary representation into w.
func WriteFrame(w io.Writer, f Frame) error {
	err := WriteHeader(w, f.Header)
	if err != nil {
		return err
	}
	_, err = w.Write(f.Payload)
	return err
}
