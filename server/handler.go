package server

import "github.com/gobwas/wsd/wsutil"

// Handler receives session events. All callbacks of one session are called
// from the session's own goroutine, so a slow callback stalls only that
// session.
type Handler interface {
	// OnOpen is called once the opening handshake succeeded.
	OnOpen(s *Session)

	// OnMessage is called for every complete data message.
	OnMessage(s *Session, m wsutil.Message)

	// OnClose is called once for every session which reached OnOpen.
	OnClose(s *Session, info CloseInfo)
}

// HandlerFuncs is an adapter to build Handler from functions. Nil fields
// are no-ops.
type HandlerFuncs struct {
	Open    func(*Session)
	Message func(*Session, wsutil.Message)
	Close   func(*Session, CloseInfo)
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnOpen(s *Session) {
	if h.Open != nil {
		h.Open(s)
	}
}

func (h HandlerFuncs) OnMessage(s *Session, m wsutil.Message) {
	if h.Message != nil {
		h.Message(s, m)
	}
}

func (h HandlerFuncs) OnClose(s *Session, info CloseInfo) {
	if h.Close != nil {
		h.Close(s, info)
	}
}
