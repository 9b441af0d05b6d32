package wsutil

import "github.com/gobwas/wsd/ws"

// Message represents a message from peer, that could be presented in one or
// more frames. That is, it contains payload of all message fragments and
// operation code of initial frame for this message.
type Message struct {
	OpCode  ws.OpCode
	Payload []byte
}

// NewTextMessage returns text message with s as payload.
func NewTextMessage(s string) Message {
	return Message{OpCode: ws.OpText, Payload: []byte(s)}
}

// NewBinaryMessage returns binary message with p as payload.
// Note that p is not copied.
func NewBinaryMessage(p []byte) Message {
	return Message{OpCode: ws.OpBinary, Payload: p}
}

// IsText reports whether m is a text message.
func (m Message) IsText() bool { return m.OpCode == ws.OpText }

// IsBinary reports whether m is a binary message.
func (m Message) IsBinary() bool { return m.OpCode == ws.OpBinary }
