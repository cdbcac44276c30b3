package client

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/protocol"
)

var (
	ErrNotDrawing   = errors.New("client: not in a drawing session")
	ErrInvalidState = errors.New("client: operation not allowed in current state")
)

// Sender delivers client messages to the server.
type Sender interface {
	Send(msg protocol.ClientMessage) error
}

// Renderer owns the local and partner buffers.
type Renderer interface {
	Reset()
	ApplyLocal(op domain.DrawingOperation)
	ApplyPartner(op domain.DrawingOperation)
	Compose(self domain.Role) image.Image
}

// Partner is what the client knows about the other participant.
type Partner struct {
	Profile domain.Profile
	Role    domain.Role
	Ready   bool
}

// Session is the client state machine. It is driven from a single event
// loop and is not safe for concurrent use.
type Session struct {
	send   Sender
	render Renderer
	log    *slog.Logger

	state     State
	profile   domain.Profile
	role      domain.Role
	ready     bool
	partner   *Partner
	remaining int
	artifact  image.Image
}

func NewSession(send Sender, render Renderer, profile domain.Profile, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		send:    send,
		render:  render,
		log:     log,
		state:   StateJoining,
		profile: profile.Normalize(),
	}
}

func (s *Session) State() State            { return s.state }
func (s *Session) Role() domain.Role       { return s.role }
func (s *Session) Ready() bool             { return s.ready }
func (s *Session) Remaining() int          { return s.remaining }
func (s *Session) Profile() domain.Profile { return s.profile }
func (s *Session) Artifact() image.Image   { return s.artifact }
func (s *Session) Partner() (Partner, bool) {
	if s.partner == nil {
		return Partner{}, false
	}
	return *s.partner, true
}

// Start announces the profile to the server.
func (s *Session) Start() error {
	s.state = StateJoining
	return s.send.Send(protocol.Join{
		DisplayName: s.profile.DisplayName,
		Avatar:      s.profile.Avatar,
		City:        s.profile.City,
	})
}

// Handle applies one server message.
func (s *Session) Handle(msg protocol.ServerMessage) error {
	switch m := msg.(type) {
	case protocol.RoleAssigned:
		if s.state != StateJoining {
			return fmt.Errorf("%w: roleAssigned in %s", ErrInvalidState, s.state)
		}
		s.role = m.Role
		s.state = StateWaitingForPartner

	case protocol.PartnerInfo:
		s.partner = &Partner{
			Profile: domain.Profile{DisplayName: m.DisplayName, Avatar: m.Avatar, City: m.City},
			Role:    m.Role,
			Ready:   m.Ready,
		}
		s.settleReadiness()

	case protocol.PartnerProfileUpdate:
		if s.partner != nil {
			s.partner.Profile.Apply(m.Patch())
		}

	case protocol.PartnerReadyUpdate:
		if s.partner != nil {
			s.partner.Ready = m.Ready
		}
		s.settleReadiness()

	case protocol.SessionStart:
		s.render.Reset()
		s.remaining = 0
		s.artifact = nil
		s.state = StateDrawing

	case protocol.TimeRemaining:
		s.remaining = m.Seconds

	case protocol.SessionEnd:
		if s.state != StateDrawing {
			return fmt.Errorf("%w: sessionEnd in %s", ErrInvalidState, s.state)
		}
		s.remaining = 0
		s.state = StateSessionEnded
		s.artifact = s.render.Compose(s.role)

	case protocol.DrawOpRelayed:
		if s.state != StateDrawing {
			s.log.Debug("partner op outside session dropped")
			return nil
		}
		s.render.ApplyPartner(m.DrawingOperation)

	case protocol.RoomFull:
		s.state = StateRejected

	case protocol.PartnerLeft:
		s.partner = nil
		if s.state == StateSessionEnded || s.state == StateRejected {
			return nil
		}
		// сервер сбрасывает комнату в waiting и флаги готовности
		s.ready = false
		s.remaining = 0
		s.state = StateWaitingForPartner

	default:
		return fmt.Errorf("%w: unexpected %s", domain.ErrInvalidMessage, msg.MessageType())
	}
	return nil
}

// SetReady toggles local readiness while gathering.
func (s *Session) SetReady(ready bool) error {
	if s.state != StateWaitingForPartner && s.state != StateReadyPending {
		return fmt.Errorf("%w: setReady in %s", ErrInvalidState, s.state)
	}
	if err := s.send.Send(protocol.SetReady{Ready: &ready}); err != nil {
		return err
	}
	s.ready = ready
	s.settleReadiness()
	return nil
}

// settleReadiness moves between WAITING_FOR_PARTNER and READY_PENDING on a
// local or remote toggle. Other states are left alone.
func (s *Session) settleReadiness() {
	if s.state != StateWaitingForPartner && s.state != StateReadyPending {
		return
	}
	if s.ready || (s.partner != nil && s.partner.Ready) {
		s.state = StateReadyPending
	} else {
		s.state = StateWaitingForPartner
	}
}

func (s *Session) UpdateProfile(patch domain.ProfilePatch) error {
	if patch.Empty() {
		return fmt.Errorf("%w: empty profile update", domain.ErrInvalidMessage)
	}
	s.profile.Apply(patch)
	return s.send.Send(protocol.ProfileUpdate{DisplayName: patch.DisplayName, Avatar: patch.Avatar, City: patch.City})
}

// Draw renders op locally first, then sends it. There is no ack.
func (s *Session) Draw(op domain.DrawingOperation) error {
	if s.state != StateDrawing {
		return ErrNotDrawing
	}
	if err := op.Validate(); err != nil {
		return err
	}
	s.render.ApplyLocal(op)
	return s.send.Send(protocol.DrawOp{DrawingOperation: op})
}
