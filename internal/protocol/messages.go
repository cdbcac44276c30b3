package protocol

import (
	"fmt"

	"github.com/cwrk-planet/duet/internal/domain"
)

// Типы событий, которые ходят по WS
const (
	TypeJoin                 = "join"
	TypeRoleAssigned         = "roleAssigned"
	TypePartnerInfo          = "partnerInfo"
	TypeProfileUpdate        = "profileUpdate"
	TypePartnerProfileUpdate = "partnerProfileUpdate"
	TypeSetReady             = "setReady"
	TypePartnerReadyUpdate   = "partnerReadyUpdate"
	TypeSessionStart         = "sessionStart"
	TypeTimeRemaining        = "timeRemaining"
	TypeSessionEnd           = "sessionEnd"
	TypeDrawOp               = "drawOp"
	TypeDrawOpRelayed        = "drawOpRelayed"
	TypeRoomFull             = "roomFull"
	TypePartnerLeft          = "partnerLeft"
)

// ClientMessage is sent by a participant to the server.
type ClientMessage interface {
	MessageType() string
	clientMessage()
}

// ServerMessage is sent by the server to a participant.
type ServerMessage interface {
	MessageType() string
	serverMessage()
}

// --- client -> server ---

type Join struct {
	DisplayName string  `json:"displayName"`
	Avatar      *string `json:"avatar,omitempty"`
	City        *string `json:"city,omitempty"`
}

func (m Join) Profile() domain.Profile {
	return domain.Profile{DisplayName: m.DisplayName, Avatar: m.Avatar, City: m.City}.Normalize()
}

type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	City        *string `json:"city,omitempty"`
}

func (m ProfileUpdate) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{DisplayName: m.DisplayName, Avatar: m.Avatar, City: m.City}
}

func (m ProfileUpdate) Validate() error {
	if m.Patch().Empty() {
		return fmt.Errorf("%w: empty profile update", domain.ErrInvalidMessage)
	}
	return nil
}

type SetReady struct {
	Ready *bool `json:"ready"`
}

func (m SetReady) Validate() error {
	if m.Ready == nil {
		return fmt.Errorf("%w: setReady requires ready", domain.ErrInvalidMessage)
	}
	return nil
}

type DrawOp struct {
	domain.DrawingOperation
}

func (m DrawOp) Validate() error { return m.DrawingOperation.Validate() }

// --- server -> client ---

type RoleAssigned struct {
	Role domain.Role `json:"role"`
}

func (m RoleAssigned) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidMessage, m.Role)
	}
	return nil
}

type PartnerInfo struct {
	DisplayName string      `json:"displayName"`
	Avatar      *string     `json:"avatar,omitempty"`
	City        *string     `json:"city,omitempty"`
	Ready       bool        `json:"ready"`
	Role        domain.Role `json:"role"`
}

func NewPartnerInfo(p *domain.Participant) PartnerInfo {
	return PartnerInfo{
		DisplayName: p.Profile.DisplayName,
		Avatar:      p.Profile.Avatar,
		City:        p.Profile.City,
		Ready:       p.Ready,
		Role:        p.Role,
	}
}

type PartnerProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	City        *string `json:"city,omitempty"`
}

func (m PartnerProfileUpdate) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{DisplayName: m.DisplayName, Avatar: m.Avatar, City: m.City}
}

type PartnerReadyUpdate struct {
	Ready       bool   `json:"ready"`
	DisplayName string `json:"displayName"`
}

type SessionStart struct{}

type TimeRemaining struct {
	Seconds int `json:"seconds"`
}

func (m TimeRemaining) Validate() error {
	if m.Seconds < 0 {
		return fmt.Errorf("%w: negative seconds", domain.ErrInvalidMessage)
	}
	return nil
}

type SessionEnd struct{}

type DrawOpRelayed struct {
	domain.DrawingOperation
}

func (m DrawOpRelayed) Validate() error { return m.DrawingOperation.Validate() }

type RoomFull struct{}

type PartnerLeft struct{}

func (Join) MessageType() string          { return TypeJoin }
func (ProfileUpdate) MessageType() string { return TypeProfileUpdate }
func (SetReady) MessageType() string      { return TypeSetReady }
func (DrawOp) MessageType() string        { return TypeDrawOp }

func (Join) clientMessage()          {}
func (ProfileUpdate) clientMessage() {}
func (SetReady) clientMessage()      {}
func (DrawOp) clientMessage()        {}

func (RoleAssigned) MessageType() string         { return TypeRoleAssigned }
func (PartnerInfo) MessageType() string          { return TypePartnerInfo }
func (PartnerProfileUpdate) MessageType() string { return TypePartnerProfileUpdate }
func (PartnerReadyUpdate) MessageType() string   { return TypePartnerReadyUpdate }
func (SessionStart) MessageType() string         { return TypeSessionStart }
func (TimeRemaining) MessageType() string        { return TypeTimeRemaining }
func (SessionEnd) MessageType() string           { return TypeSessionEnd }
func (DrawOpRelayed) MessageType() string        { return TypeDrawOpRelayed }
func (RoomFull) MessageType() string             { return TypeRoomFull }
func (PartnerLeft) MessageType() string          { return TypePartnerLeft }

func (RoleAssigned) serverMessage()         {}
func (PartnerInfo) serverMessage()          {}
func (PartnerProfileUpdate) serverMessage() {}
func (PartnerReadyUpdate) serverMessage()   {}
func (SessionStart) serverMessage()         {}
func (TimeRemaining) serverMessage()        {}
func (SessionEnd) serverMessage()           {}
func (DrawOpRelayed) serverMessage()        {}
func (RoomFull) serverMessage()             {}
func (PartnerLeft) serverMessage()          {}
