// Package echo implements the default application served by wsd: every
// message is sent back to its author.
package echo

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/gobwas/wsd/server"
	"github.com/gobwas/wsd/ws"
	"github.com/gobwas/wsd/wsutil"
)

// Farewell is the text message which makes the server close the session.
const Farewell = "bye"

// Handler echoes messages back to the peer. A text message equal to
// Farewell, ignoring case and surrounding space, closes the session with
// 1000 instead.
type Handler struct {
	log zerolog.Logger
}

var _ server.Handler = (*Handler)(nil)

// New creates echo handler which logs with log.
func New(log zerolog.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) OnOpen(s *server.Session) {
	h.log.Info().
		Str("session", s.ID()).
		Str("path", s.Request().Path).
		Msg("client connected")
}

func (h *Handler) OnMessage(s *server.Session, m wsutil.Message) {
	ev := h.log.Debug().Str("session", s.ID()).Stringer("op", m.OpCode).Int("size", len(m.Payload))
	if m.IsText() {
		ev = ev.Bytes("text", m.Payload)
	}
	ev.Msg("message")

	if m.IsText() && strings.EqualFold(strings.TrimSpace(string(m.Payload)), Farewell) {
		if err := s.Close(ws.StatusNormalClosure, ""); err != nil {
			h.log.Debug().Err(err).Str("session", s.ID()).Msg("close failed")
		}
		return
	}
	if err := s.Send(m); err != nil {
		h.log.Debug().Err(err).Str("session", s.ID()).Msg("echo failed")
	}
}

func (h *Handler) OnClose(s *server.Session, info server.CloseInfo) {
	ev := h.log.Info()
	if !info.Clean() {
		ev = h.log.Warn().Err(info.Err)
	}
	ev.Str("session", s.ID()).
		Int("code", int(info.Code)).
		Str("reason", info.Reason).
		Bool("remote", info.Remote).
		Msg("client disconnected")
}
