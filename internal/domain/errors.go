package domain

import "errors"

var (
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyJoined     = errors.New("connection already joined the room")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrPartnerAbsent     = errors.New("partner not connected")
	ErrTimerRunning      = errors.New("session timer already running")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrInvalidOperation  = errors.New("invalid drawing operation")
	ErrSessionNotFound   = errors.New("session not found")
)
