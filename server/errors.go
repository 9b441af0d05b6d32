package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/wsd/ws"
)

// Errors returned by Session and Manager methods.
var (
	ErrServerClosed = errors.New("server: closed")
	ErrNotOpen      = errors.New("server: session is not open")
)

// StreamError reports a failure of the underlying byte stream. No Close
// frame is sent after it.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return "stream " + e.Op + ": " + e.Err.Error()
}

func (e *StreamError) Unwrap() error { return e.Err }

// TimeoutError reports that the peer did not complete the opening or
// closing handshake in time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// Timeout always returns true.
func (e *TimeoutError) Timeout() bool { return true }

// CloseInfo describes how a session ended.
type CloseInfo struct {
	// Code is the status code of the Close frame which ended the session:
	// received from the peer when Remote is set, sent by the server
	// otherwise. Sessions ended by stream failures carry
	// ws.StatusAbnormalClosure.
	Code   ws.StatusCode
	Reason string
	Remote bool

	// Err is the error which ended the session, if any.
	Err error
}

// Clean reports whether the session ended with a completed closing
// handshake.
func (c CloseInfo) Clean() bool {
	return c.Err == nil
}
