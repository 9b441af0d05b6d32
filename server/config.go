package server

import "time"

// Defaults applied by Config for zero fields.
const (
	DefaultMaxClients       = 64
	DefaultCloseTimeout     = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultReadChunkSize    = 4096
	DefaultWriteBufferSize  = 4096
	DefaultMaxHeaderSize    = 8192
	DefaultMaxMessageSize   = 32 << 20
)

// Config holds session and manager limits.
//
// Zero values are replaced by defaults. Negative HandshakeTimeout or
// MaxMessageSize disable the corresponding limit.
type Config struct {
	// MaxClients is the number of sessions served concurrently.
	MaxClients int

	// CloseTimeout bounds the wait for the peer's Close frame after the
	// server has sent its own.
	CloseTimeout time.Duration

	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration

	// ShutdownTimeout is the grace period given to open sessions to finish
	// the closing handshake on shutdown.
	ShutdownTimeout time.Duration

	ReadChunkSize   int
	WriteBufferSize int

	// MaxHeaderSize limits the size of the handshake request header block.
	MaxHeaderSize int

	// MaxMessageSize limits total payload of one (possibly fragmented)
	// message. Peers exceeding it are closed with 1009.
	MaxMessageSize int64

	// FragmentSize splits outgoing messages into frames of at most that many
	// payload bytes. Zero sends every message as a single frame.
	FragmentSize int
}

// DefaultConfig returns Config with all fields set to their defaults.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxClients <= 0 {
		c.MaxClients = DefaultMaxClients
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = DefaultReadChunkSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = DefaultWriteBufferSize
	}
	if c.MaxHeaderSize <= 0 {
		c.MaxHeaderSize = DefaultMaxHeaderSize
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.FragmentSize < 0 {
		c.FragmentSize = 0
	}
	return c
}
