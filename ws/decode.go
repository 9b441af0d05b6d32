package ws

import (
	"encoding/binary"
	"errors"
	"io"
)

// PlatformSizeLimit is the max int value for current platform.
const PlatformSizeLimit = int64(^(uint(0)) >> 1)

// Errors used by frame decoder.
var (
	ErrNeedMoreData           = errors.New("ws: need more data")
	ErrHeaderLengthMSB        = ProtocolError("header error: the most significant bit must be 0")
	ErrHeaderLengthUnexpected = ProtocolError("header error: unexpected payload length bits")
)

// DecodeHeader parses a frame header from the beginning of p. It returns the
// header and the number of bytes it occupies.
//
// If p does not yet contain a complete header, ErrNeedMoreData is returned
// and nothing is consumed. DecodeHeader does not check the header against
// protocol rules; see CheckFrameHeader and CheckHeader.
func DecodeHeader(p []byte) (h Header, n int, err error) {
	if len(p) < MinHeaderSize {
		return h, 0, ErrNeedMoreData
	}

	h.Fin = p[0]&bit0 != 0
	h.Rsv = (p[0] & 0x70) >> 4
	h.OpCode = OpCode(p[0] & 0x0f)
	h.Masked = p[1]&bit0 != 0

	n = 2
	length := p[1] & 0x7f
	switch {
	case length < 126:
		h.Length = int64(length)

	case length == 126:
		if len(p) < n+2 {
			return h, 0, ErrNeedMoreData
		}
		h.Length = int64(binary.BigEndian.Uint16(p[n:]))
		n += 2

	default:
		if len(p) < n+8 {
			return h, 0, ErrNeedMoreData
		}
		if p[n]&0x80 != 0 {
			return h, 0, ErrHeaderLengthMSB
		}
		h.Length = int64(binary.BigEndian.Uint64(p[n:]))
		n += 8
	}

	if h.Masked {
		if len(p) < n+4 {
			return h, 0, ErrNeedMoreData
		}
		copy(h.Mask[:], p[n:n+4])
		n += 4
	}

	return h, n, nil
}

// DecodeFrame parses a complete frame from the beginning of p. It returns the
// frame and the number of bytes consumed.
//
// Header violations reported by CheckFrameHeader are returned as soon as the
// header is complete, even if the payload is not buffered yet.
//
// Masked payloads are unmasked into a newly allocated slice, so the caller
// is free to reuse p after the call. The returned header keeps Masked and
// Mask as they were received.
func DecodeFrame(p []byte) (f Frame, n int, err error) {
	f.Header, n, err = DecodeHeader(p)
	if err != nil {
		return f, 0, err
	}
	if err = CheckFrameHeader(f.Header); err != nil {
		return f, 0, err
	}
	if f.Header.Length > PlatformSizeLimit-int64(n) {
		return f, 0, ErrHeaderLengthUnexpected
	}
	end := n + int(f.Header.Length)
	if len(p) < end {
		return f, 0, ErrNeedMoreData
	}

	f.Payload = make([]byte, f.Header.Length)
	copy(f.Payload, p[n:end])
	if f.Header.Masked {
		Cipher(f.Payload, f.Header.Mask, 0)
	}
	return f, end, nil
}

// ReadHeader reads a frame header from r.
func ReadHeader(r io.Reader) (h Header, err error) {
	var bts [MaxHeaderSize]byte
	need := MinHeaderSize
	for have := 0; ; {
		if _, err = io.ReadFull(r, bts[have:need]); err != nil {
			return h, err
		}
		have = need
		h, _, err = DecodeHeader(bts[:have])
		if err != ErrNeedMoreData {
			return h, err
		}
		need = headerSizeHint(bts[:have])
	}
}

// headerSizeHint returns the total header size implied by first two header
// bytes.
func headerSizeHint(p []byte) int {
	n := 2
	switch p[1] & 0x7f {
	case 126:
		n += 2
	case 127:
		n += 8
	}
	if p[1]&bit0 != 0 {
		n += 4
	}
	return n
}

// ReadFrame reads a frame from r.
// It is not designed for high optimized use case cause it makes allocation
// for frame.Header.Length size inside to read frame payload into.
//
// Note that ReadFrame does not unmask payload.
func ReadFrame(r io.Reader) (f Frame, err error) {
	f.Header, err = ReadHeader(r)
	if err != nil {
		return f, err
	}
	if f.Header.Length > PlatformSizeLimit {
		return f, ErrHeaderLengthUnexpected
	}
	if f.Header.Length > 0 {
		f.Payload = make([]byte, int(f.Header.Length))
		_, err = io.ReadFull(r, f.Payload)
	}
	return f, err
}

// ParseCloseFrameData parses close frame status code and closure reason if any provided.
// If there is no status code in the payload
// the empty status code is returned (code.Empty()) with empty string as a reason.
func ParseCloseFrameData(payload []byte) (code StatusCode, reason string) {
	if len(payload) < 2 {
		// We returning empty StatusCode here, preventing the situation
		// when endpoint really sent code 1005 and we should return ProtocolError on that.
		//
		// In other words, we ignoring this rule [RFC6455:7.1.5]:
		//   If this Close control frame contains no status code, _The WebSocket
		//   Connection Close Code_ is considered to be 1005.
		return
	}
	code = StatusCode(binary.BigEndian.Uint16(payload))
	reason = string(payload[2:])
	return
}
