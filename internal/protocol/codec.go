package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/duet/internal/domain"
)

// Message is the wire envelope.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var clientTypes = map[string]func() ClientMessage{
	TypeJoin:          func() ClientMessage { return &Join{} },
	TypeProfileUpdate: func() ClientMessage { return &ProfileUpdate{} },
	TypeSetReady:      func() ClientMessage { return &SetReady{} },
	TypeDrawOp:        func() ClientMessage { return &DrawOp{} },
}

var serverTypes = map[string]func() ServerMessage{
	TypeRoleAssigned:         func() ServerMessage { return &RoleAssigned{} },
	TypePartnerInfo:          func() ServerMessage { return &PartnerInfo{} },
	TypePartnerProfileUpdate: func() ServerMessage { return &PartnerProfileUpdate{} },
	TypePartnerReadyUpdate:   func() ServerMessage { return &PartnerReadyUpdate{} },
	TypeSessionStart:         func() ServerMessage { return &SessionStart{} },
	TypeTimeRemaining:        func() ServerMessage { return &TimeRemaining{} },
	TypeSessionEnd:           func() ServerMessage { return &SessionEnd{} },
	TypeDrawOpRelayed:        func() ServerMessage { return &DrawOpRelayed{} },
	TypeRoomFull:             func() ServerMessage { return &RoomFull{} },
	TypePartnerLeft:          func() ServerMessage { return &PartnerLeft{} },
}

type validator interface {
	Validate() error
}

// DecodeClient parses a frame sent by a participant. Unknown types and
// unknown payload fields are rejected with ErrInvalidMessage.
func DecodeClient(data []byte) (ClientMessage, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	mk, ok := clientTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidMessage, env.Type)
	}
	msg := mk()
	if err := decodePayload(env.Payload, msg); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Type, err)
	}
	return deref(msg).(ClientMessage), nil
}

// DecodeServer parses a frame sent by the server.
func DecodeServer(data []byte) (ServerMessage, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	mk, ok := serverTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidMessage, env.Type)
	}
	msg := mk()
	if err := decodePayload(env.Payload, msg); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Type, err)
	}
	return deref(msg).(ServerMessage), nil
}

// Encode wraps a message into the envelope.
func Encode(msg interface{ MessageType() string }) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return json.Marshal(Message{Type: msg.MessageType(), Payload: payload})
}

func decodeEnvelope(data []byte) (Message, error) {
	var env Message
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if env.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", domain.ErrInvalidMessage)
	}
	return env, nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", domain.ErrInvalidMessage)
	}
	if v, ok := dst.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// deref turns the *T used for decoding back into the T value variants are switched on.
func deref(msg any) any {
	switch m := msg.(type) {
	case *Join:
		return *m
	case *ProfileUpdate:
		return *m
	case *SetReady:
		return *m
	case *DrawOp:
		return *m
	case *RoleAssigned:
		return *m
	case *PartnerInfo:
		return *m
	case *PartnerProfileUpdate:
		return *m
	case *PartnerReadyUpdate:
		return *m
	case *SessionStart:
		return *m
	case *TimeRemaining:
		return *m
	case *SessionEnd:
		return *m
	case *DrawOpRelayed:
		return *m
	case *RoomFull:
		return *m
	case *PartnerLeft:
		return *m
	}
	return msg
}
