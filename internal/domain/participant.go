package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultDisplayName = "Anonymous"
	maxDisplayName     = 64
)

type Role string

const (
	RolePlayerOne Role = "player1"
	RolePlayerTwo Role = "player2"
)

// Roles lists the room slots in assignment order.
var Roles = []Role{RolePlayerOne, RolePlayerTwo}

// MaxParticipants is the room capacity: one participant per role.
var MaxParticipants = len(Roles)

func (r Role) Valid() bool {
	return r == RolePlayerOne || r == RolePlayerTwo
}

type Profile struct {
	DisplayName string
	Avatar      *string
	City        *string
}

// Normalize trims the display name and applies the default.
func (p Profile) Normalize() Profile {
	p.DisplayName = normalizeName(p.DisplayName)
	return p
}

// ProfilePatch carries only the fields a client chose to change.
type ProfilePatch struct {
	DisplayName *string
	Avatar      *string
	City        *string
}

func (p ProfilePatch) Empty() bool {
	return p.DisplayName == nil && p.Avatar == nil && p.City == nil
}

func (p *Profile) Apply(patch ProfilePatch) {
	if patch.DisplayName != nil {
		p.DisplayName = normalizeName(*patch.DisplayName)
	}
	if patch.Avatar != nil {
		p.Avatar = patch.Avatar
	}
	if patch.City != nil {
		p.City = patch.City
	}
}

type Participant struct {
	ID       string
	Profile  Profile
	Role     Role
	Ready    bool
	JoinedAt time.Time
}

func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDisplayName
	}
	if utf8.RuneCountInString(s) > maxDisplayName {
		s = string([]rune(s)[:maxDisplayName])
	}
	return s
}
