package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

const maxAcceptDelay = time.Second

// Option configures Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager and its sessions.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// Manager accepts connections and runs a Session for each of them. At most
// Config.MaxClients sessions run at a time; while the limit is reached the
// accept loop waits for a session to finish.
type Manager struct {
	cfg Config
	h   Handler
	log zerolog.Logger

	pool   *ants.PoolWithFunc
	ctx    context.Context
	cancel context.CancelFunc

	closed atomic.Bool
	active atomic.Int64
	wg     sync.WaitGroup

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[io.ReadWriteCloser]struct{}
}

// NewManager creates Manager which serves sessions with h.
func NewManager(cfg Config, h Handler, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:       cfg.withDefaults(),
		h:         h,
		log:       zerolog.Nop(),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[io.ReadWriteCloser]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	pool, err := ants.NewPoolWithFunc(m.cfg.MaxClients, m.serveSession,
		ants.WithPanicHandler(m.recoverSession),
		ants.WithLogger(&m.log),
	)
	if err != nil {
		m.cancel()
		return nil, err
	}
	m.pool = pool

	return m, nil
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// ListenAndServe listens on the TCP network address addr and then calls
// Serve.
func (m *Manager) ListenAndServe(addr string) error {
	if m.closed.Load() {
		return ErrServerClosed
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.Serve(ln)
}

// Serve accepts connections on ln until it fails or Shutdown is called.
// Serve always closes ln and returns a non-nil error; after Shutdown the
// error is ErrServerClosed.
func (m *Manager) Serve(ln net.Listener) error {
	if !m.trackListener(ln, true) {
		ln.Close()
		return ErrServerClosed
	}
	defer m.trackListener(ln, false)

	m.log.Info().
		Str("addr", ln.Addr().String()).
		Int("max_clients", m.cfg.MaxClients).
		Msg("accepting connections")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if m.closed.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else {
					delay *= 2
				}
				if delay > maxAcceptDelay {
					delay = maxAcceptDelay
				}
				m.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept error")
				time.Sleep(delay)
				continue
			}
			ln.Close()
			return err
		}
		delay = 0

		if err = m.ServeConn(conn); err != nil {
			return err
		}
	}
}

// ServeConn runs a session over conn. It blocks while MaxClients sessions
// are running. The manager takes ownership of conn.
func (m *Manager) ServeConn(conn io.ReadWriteCloser) error {
	if !m.trackConn(conn, true) {
		conn.Close()
		return ErrServerClosed
	}
	m.wg.Add(1)

	if err := m.pool.Invoke(conn); err != nil {
		m.wg.Done()
		m.trackConn(conn, false)
		conn.Close()
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrServerClosed
		}
		return err
	}
	return nil
}

// Shutdown stops accepting connections and asks every open session to
// close with 1001 Going Away. Sessions still running after the configured
// shutdown timeout, or when ctx is done, are dropped.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	m.mu.Lock()
	for ln := range m.listeners {
		ln.Close()
	}
	m.mu.Unlock()

	m.log.Info().Int("active", m.Active()).Msg("shutting down")
	m.cancel()

	grace := m.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < grace {
			grace = d
		}
	}
	err := m.pool.ReleaseTimeout(grace)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ants.ErrTimeout) {
		return err
	}

	m.mu.Lock()
	m.log.Warn().Int("active", len(m.conns)).Msg("dropping sessions after shutdown timeout")
	for conn := range m.conns {
		conn.Close()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) serveSession(arg any) {
	conn := arg.(io.ReadWriteCloser)

	m.active.Add(1)
	defer func() {
		m.active.Add(-1)
		m.trackConn(conn, false)
		m.wg.Done()
	}()

	NewSession(conn, m.cfg, m.h, m.log).Run(m.ctx)
}

func (m *Manager) recoverSession(p any) {
	m.log.Error().Interface("panic", p).Msg("session panicked")
}

func (m *Manager) trackListener(ln net.Listener, add bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if add {
		if m.closed.Load() {
			return false
		}
		m.listeners[ln] = struct{}{}
	} else {
		delete(m.listeners, ln)
	}
	return true
}

func (m *Manager) trackConn(conn io.ReadWriteCloser, add bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if add {
		if m.closed.Load() {
			return false
		}
		m.conns[conn] = struct{}{}
	} else {
		delete(m.conns, conn)
	}
	return true
}
