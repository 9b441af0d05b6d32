package server

// State is the lifecycle state of a Session.
type State uint8

// Session states. A session only moves forward through them.
const (
	StateHandshaking State = iota
	StateOpen
	StateClosingLocal
	StateClosingRemote
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosingLocal:
		return "closing_local"
	case StateClosingRemote:
		return "closing_remote"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
