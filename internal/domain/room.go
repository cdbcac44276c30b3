package domain

// SessionState is the lifecycle of one room occupancy.
type SessionState string

const (
	StateWaiting      SessionState = "waiting"
	StateReadyPending SessionState = "ready_pending"
	StateActive       SessionState = "active"
	StateEnded        SessionState = "ended"
)

// Gathering reports whether the room is still collecting readiness.
func (s SessionState) Gathering() bool {
	return s == StateWaiting || s == StateReadyPending
}
