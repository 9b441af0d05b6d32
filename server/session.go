package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/pool/pbufio"
	"github.com/gobwas/pool/pbytes"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gobwas/wsd/ws"
	"github.com/gobwas/wsd/wsutil"
)

// ErrBadMessage is returned by Send for messages which are neither text nor
// binary.
var ErrBadMessage = errors.New("server: message must be text or binary")

// Session is a single server side WebSocket connection. It owns the stream
// it was created with and closes it when Run returns.
//
// Run must be called exactly once. Send, Close and the accessors are safe
// for concurrent use.
type Session struct {
	id   string
	conn io.ReadWriteCloser
	cfg  Config
	h    Handler
	log  zerolog.Logger

	// Owned by the goroutine calling Run.
	asm wsutil.Assembler
	buf []byte
	req ws.Request

	// wmu serializes writes to the stream. It is never acquired while
	// holding mu.
	wmu sync.Mutex
	bw  *bufio.Writer

	mu        sync.Mutex
	state     State
	opened    bool
	closeSent bool
	info      CloseInfo
	abortErr  error
	timer     *time.Timer

	done chan struct{}
}

// NewSession creates a session over conn. The session stays in
// StateHandshaking until Run reads a valid opening handshake.
func NewSession(conn io.ReadWriteCloser, cfg Config, h Handler, log zerolog.Logger) *Session {
	cfg = cfg.withDefaults()
	if h == nil {
		h = HandlerFuncs{}
	}
	s := &Session{
		id:   uuid.NewString(),
		conn: conn,
		cfg:  cfg,
		h:    h,
		done: make(chan struct{}),
	}
	if cfg.MaxMessageSize > 0 {
		s.asm.MaxMessageSize = cfg.MaxMessageSize
	}

	lc := log.With().Str("session", s.id)
	if addr := s.RemoteAddr(); addr != nil {
		lc = lc.Str("remote", addr.String())
	}
	s.log = lc.Logger()

	return s
}

// ID returns unique session identifier.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the peer address if the underlying stream is a
// net.Conn, and nil otherwise.
func (s *Session) RemoteAddr() net.Addr {
	if c, ok := s.conn.(net.Conn); ok {
		return c.RemoteAddr()
	}
	return nil
}

// Request returns the opening handshake request. It is only meaningful
// once the session has been opened.
func (s *Session) Request() ws.Request { return s.req }

// State returns current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done returns a channel which is closed when the session reaches
// StateClosed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run performs the opening handshake and serves the connection until it is
// closed. Cancelling ctx starts the closing handshake with 1001 Going Away.
// Run returns the same CloseInfo that is passed to Handler.OnClose.
func (s *Session) Run(ctx context.Context) (info CloseInfo) {
	stop := context.AfterFunc(ctx, s.shutdown)
	defer func() {
		stop()
		info = s.teardown()
	}()

	err := s.handshake()
	if err == nil {
		s.log.Debug().Str("path", s.req.Path).Msg("session opened")
		s.h.OnOpen(s)
		err = s.serve()
	}
	s.finish(err)

	return
}

// Send writes m to the peer. It is only allowed while the session is open.
func (s *Session) Send(m wsutil.Message) error {
	if !m.IsText() && !m.IsBinary() {
		return ErrBadMessage
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.State() != StateOpen {
		return ErrNotOpen
	}
	return s.flush(wsutil.WriteMessage(s.writer(), m, s.cfg.FragmentSize))
}

// SendText is a shortcut for Send(wsutil.NewTextMessage(text)).
func (s *Session) SendText(text string) error {
	return s.Send(wsutil.NewTextMessage(text))
}

// Close starts the closing handshake with given code and reason. The
// session waits for the peer's Close frame for at most the configured close
// timeout and then drops the stream.
func (s *Session) Close(code ws.StatusCode, reason string) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	s.state = StateClosingLocal
	s.info = CloseInfo{Code: code, Reason: reason}
	s.armLocked(&TimeoutError{Op: "close", After: s.cfg.CloseTimeout})
	s.mu.Unlock()

	return s.writeFrame(ws.NewCloseFrame(code, reason))
}

func (s *Session) handshake() error {
	if d := s.cfg.HandshakeTimeout; d > 0 {
		t := time.AfterFunc(d, func() {
			s.expire(StateHandshaking, &TimeoutError{Op: "handshake", After: d})
		})
		defer t.Stop()
	}
	for {
		req, n, err := ws.ParseRequest(s.buf)
		if err == ws.ErrNeedMoreData {
			if len(s.buf) > s.cfg.MaxHeaderSize {
				return s.reject(ws.ErrHandshakeHeaderTooLarge)
			}
			if err = s.read(); err != nil {
				return err
			}
			continue
		}
		if err == nil && n > s.cfg.MaxHeaderSize {
			err = ws.ErrHandshakeHeaderTooLarge
		}
		if err == nil {
			err = ws.ValidateRequest(req)
		}
		if err != nil {
			return s.reject(err)
		}

		// Frames pipelined right after the request stay in the buffer.
		s.consume(n)
		s.req = req

		return s.accept(ws.AcceptKey(req.Headers["sec-websocket-key"]))
	}
}

func (s *Session) accept(key string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	werr := ws.WriteUpgradeResponse(s.conn, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abortErr != nil {
		return s.abortErr
	}
	if werr != nil {
		return &StreamError{Op: "write", Err: werr}
	}
	s.state = StateOpen
	s.opened = true

	return nil
}

func (s *Session) reject(err error) error {
	s.log.Debug().Err(err).Msg("handshake rejected")

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if werr := ws.WriteRejectResponse(s.conn, err.Error()); werr != nil {
		s.log.Debug().Err(werr).Msg("could not write handshake response")
	}
	return err
}

func (s *Session) serve() error {
	control := wsutil.ControlHandler(wsutil.FrameWriterFunc(s.writeFrame))
	for {
		f, n, err := ws.DecodeFrame(s.buf)
		if err == ws.ErrNeedMoreData {
			if err = s.checkPending(); err != nil {
				return err
			}
			if err = s.read(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		s.consume(n)

		if err = ws.CheckHeader(f.Header, ws.StateServerSide|s.asm.State()); err != nil {
			return err
		}
		done, err := s.handle(f, control)
		if err != nil || done {
			return err
		}
	}
}

// handle processes single frame. It returns true when the closing handshake
// is complete.
func (s *Session) handle(f ws.Frame, control wsutil.FrameHandler) (bool, error) {
	op := f.Header.OpCode
	if s.State() == StateClosingLocal {
		// Waiting for the peer's Close frame, everything else is dropped.
		if op == ws.OpClose {
			code, _, err := wsutil.ParseClose(f)
			s.log.Debug().Err(err).Uint16("code", uint16(code)).Msg("close acknowledged")
			if err != nil {
				s.mu.Lock()
				s.info.Err = err
				s.mu.Unlock()
			}
			return true, nil
		}
		return false, nil
	}

	if op.IsControl() {
		if op == ws.OpClose && !s.closingRemote() {
			// Close was called concurrently and our Close frame is already
			// sent, so this frame completes the handshake.
			return true, nil
		}
		err := control(f)

		var ce wsutil.ClosedError
		if errors.As(err, &ce) {
			s.mu.Lock()
			s.info = CloseInfo{Code: ce.Code, Reason: ce.Reason, Remote: true}
			s.mu.Unlock()
			return true, nil
		}
		return false, err
	}

	m, ok, err := s.asm.Feed(f)
	if err != nil || !ok {
		return false, err
	}
	s.h.OnMessage(s, m)

	return false, nil
}

// checkPending fails early if the partially received data frame would make
// the current message exceed the size limit.
func (s *Session) checkPending() error {
	limit := s.cfg.MaxMessageSize
	if limit <= 0 {
		return nil
	}
	h, _, err := ws.DecodeHeader(s.buf)
	if err != nil || h.OpCode.IsControl() {
		return nil
	}
	if h.Length > limit-int64(s.asm.Buffered()) {
		return wsutil.ErrMessageTooBig
	}
	return nil
}

func (s *Session) read() error {
	chunk := pbytes.GetLen(s.cfg.ReadChunkSize)
	defer pbytes.Put(chunk)

	n, err := s.conn.Read(chunk)
	s.buf = append(s.buf, chunk[:n]...)
	if err == nil || n > 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abortErr != nil {
		return s.abortErr
	}
	return &StreamError{Op: "read", Err: err}
}

func (s *Session) consume(n int) {
	s.buf = append(s.buf[:0], s.buf[n:]...)
}

// finish records the outcome of the session and sends a Close frame for
// protocol level failures.
func (s *Session) finish(err error) {
	if err == nil {
		return
	}
	var fail ws.StatusCode

	s.mu.Lock()
	switch {
	case ws.IsProtocolError(err):
		fail = ws.StatusProtocolError
	case errors.Is(err, wsutil.ErrMessageTooBig):
		fail = ws.StatusMessageTooBig
	case s.closeSent:
		s.info.Err = err
	default:
		s.info = CloseInfo{Code: ws.StatusAbnormalClosure, Err: err}
	}
	if fail != 0 {
		s.info = CloseInfo{Code: fail, Reason: err.Error(), Err: err}
		s.armLocked(&TimeoutError{Op: "close", After: s.cfg.CloseTimeout})
	}
	s.log.Debug().Err(err).Stringer("state", s.state).Msg("session failed")
	s.mu.Unlock()

	if fail != 0 {
		if werr := s.writeFrame(ws.NewCloseFrame(fail, err.Error())); werr != nil {
			s.log.Debug().Err(werr).Msg("could not send close frame")
		}
	}
}

func (s *Session) teardown() CloseInfo {
	s.mu.Lock()
	s.state = StateClosed
	if s.timer != nil {
		s.timer.Stop()
	}
	opened := s.opened
	info := s.info
	s.mu.Unlock()

	if err := s.conn.Close(); err != nil {
		s.log.Debug().Err(err).Msg("could not close stream")
	}
	// Pending writes fail once the stream is closed.
	s.wmu.Lock()
	if s.bw != nil {
		pbufio.PutWriter(s.bw)
		s.bw = nil
	}
	s.wmu.Unlock()
	s.asm.Reset()
	s.buf = nil

	s.log.Debug().
		Uint16("code", uint16(info.Code)).
		Bool("remote", info.Remote).
		Err(info.Err).
		Msg("session closed")

	if opened {
		s.h.OnClose(s, info)
	}
	close(s.done)

	return info
}

// shutdown is called when the Run context is done.
func (s *Session) shutdown() {
	switch s.State() {
	case StateHandshaking:
		s.expire(StateHandshaking, ErrServerClosed)
	case StateOpen:
		_ = s.Close(ws.StatusGoingAway, "server shutdown")
	}
}

// expire aborts the session with err if it is still in given state.
func (s *Session) expire(in State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == in {
		s.abortLocked(err)
	}
}

// armLocked starts the timer which aborts the session with err unless it
// is closed within err.After.
func (s *Session) armLocked(err *TimeoutError) {
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(err.After, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != StateClosed {
			s.abortLocked(err)
		}
	})
}

// abortLocked closes the stream, making pending read fail with err.
func (s *Session) abortLocked(err error) {
	if s.abortErr == nil {
		s.abortErr = err
	}
	_ = s.conn.Close()
}

// closingRemote moves an open session to StateClosingRemote and bounds
// the time left to echo the peer's Close frame.
func (s *Session) closingRemote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return false
	}
	s.state = StateClosingRemote
	s.armLocked(&TimeoutError{Op: "close", After: s.cfg.CloseTimeout})
	return true
}

// writeFrame writes a single frame. Nothing is written after our Close
// frame.
func (s *Session) writeFrame(f ws.Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	switch {
	case s.abortErr != nil:
		err := s.abortErr
		s.mu.Unlock()
		return err
	case s.state == StateClosed:
		s.mu.Unlock()
		return ErrNotOpen
	case s.closeSent:
		s.mu.Unlock()
		return nil
	}
	if f.Header.OpCode == ws.OpClose {
		s.closeSent = true
	}
	s.mu.Unlock()

	var err error
	if f.Header.OpCode == ws.OpPong && len(f.Payload) == 0 {
		_, err = s.writer().Write(ws.CompiledPong)
	} else {
		err = ws.WriteFrame(s.writer(), f)
	}
	return s.flush(err)
}

// flush flushes buffered frames. Write errors abort the session. It must be
// called with wmu held.
func (s *Session) flush(err error) error {
	if err == nil {
		err = s.bw.Flush()
	}
	if err == nil {
		return nil
	}
	err = &StreamError{Op: "write", Err: err}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortLocked(err)
	if s.abortErr != err {
		// The stream was closed on purpose.
		return s.abortErr
	}
	return err
}

// writer returns buffered stream writer. It must be called with wmu held.
func (s *Session) writer() *bufio.Writer {
	if s.bw == nil {
		s.bw = pbufio.GetWriter(s.conn, s.cfg.WriteBufferSize)
	}
	return s.bw
}
