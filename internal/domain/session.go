package domain

import (
	"time"

	"github.com/segmentio/ksuid"
)

type SessionOutcome string

const (
	OutcomeRunning   SessionOutcome = "running"
	OutcomeCompleted SessionOutcome = "completed"
	OutcomeAbandoned SessionOutcome = "abandoned"
)

// Session is the history record of one occupancy that reached the active state.
// Strokes are counted, never stored.
type Session struct {
	ID               string         `json:"id"`
	PlayerOne        string         `json:"player_one"`
	PlayerTwo        string         `json:"player_two"`
	DurationSeconds  int            `json:"duration_seconds"`
	StrokesPlayerOne int            `json:"strokes_player_one"`
	StrokesPlayerTwo int            `json:"strokes_player_two"`
	Outcome          SessionOutcome `json:"outcome"`
	StartedAt        time.Time      `json:"started_at"`
	EndedAt          *time.Time     `json:"ended_at,omitempty"`
}

func NewSession(playerOne, playerTwo string, durationSeconds int, now time.Time) *Session {
	return &Session{
		ID:              ksuid.New().String(),
		PlayerOne:       playerOne,
		PlayerTwo:       playerTwo,
		DurationSeconds: durationSeconds,
		Outcome:         OutcomeRunning,
		StartedAt:       now,
	}
}

func (s *Session) CountStroke(role Role) {
	switch role {
	case RolePlayerOne:
		s.StrokesPlayerOne++
	case RolePlayerTwo:
		s.StrokesPlayerTwo++
	}
}

func (s *Session) Finish(outcome SessionOutcome, now time.Time) {
	s.Outcome = outcome
	s.EndedAt = &now
}

type SessionEventKind string

const (
	SessionStarted SessionEventKind = "session_started"
	SessionEnded   SessionEventKind = "session_ended"
)

// SessionEvent is a copy of the record at the moment of the transition.
type SessionEvent struct {
	Kind    SessionEventKind `json:"kind"`
	Session Session          `json:"session"`
}
