package client

// State is the client-side view of the session lifecycle.
type State int

const (
	StateJoining State = iota
	StateWaitingForPartner
	StateReadyPending
	StateDrawing
	StateSessionEnded
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateWaitingForPartner:
		return "waiting_for_partner"
	case StateReadyPending:
		return "ready_pending"
	case StateDrawing:
		return "drawing"
	case StateSessionEnded:
		return "session_ended"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}
