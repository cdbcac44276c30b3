package room

import (
	"errors"
	"testing"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
)

func TestRegistry_RolesAndCapacity(t *testing.T) {
	r := NewRegistry(domain.MaxParticipants)

	role, err := assignRole(r)
	if err != nil || role != domain.RolePlayerOne {
		t.Fatalf("first role = %q, %v", role, err)
	}
	if _, err := r.Register("a", domain.Profile{DisplayName: "A"}, role, time.Time{}); err != nil {
		t.Fatalf("register a: %v", err)
	}

	role, _ = assignRole(r)
	if role != domain.RolePlayerTwo {
		t.Fatalf("second role = %q", role)
	}
	if _, err := r.Register("b", domain.Profile{}, role, time.Time{}); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if _, err := assignRole(r); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if _, err := r.Register("c", domain.Profile{}, domain.RolePlayerOne, time.Time{}); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull on third register, got %v", err)
	}
	if _, err := r.Register("a", domain.Profile{}, domain.RolePlayerOne, time.Time{}); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	b, _ := r.Get("b")
	if b.Profile.DisplayName != domain.DefaultDisplayName {
		t.Fatalf("default name not applied: %q", b.Profile.DisplayName)
	}
	if p := r.Partner("a"); p == nil || p.ID != "b" {
		t.Fatalf("partner of a = %+v", p)
	}
}

func TestRegistry_VacatedRoleIsReused(t *testing.T) {
	r := NewRegistry(domain.MaxParticipants)
	_, _ = r.Register("a", domain.Profile{}, domain.RolePlayerOne, time.Time{})
	_, _ = r.Register("b", domain.Profile{}, domain.RolePlayerTwo, time.Time{})

	if _, ok := r.Unregister("a"); !ok {
		t.Fatalf("unregister a failed")
	}
	if _, ok := r.Unregister("a"); ok {
		t.Fatalf("second unregister must report false")
	}

	role, err := assignRole(r)
	if err != nil || role != domain.RolePlayerOne {
		t.Fatalf("vacated role = %q, %v", role, err)
	}
}

func TestRegistry_Readiness(t *testing.T) {
	r := NewRegistry(domain.MaxParticipants)
	if r.AllReady() {
		t.Fatalf("empty registry is not all ready")
	}
	a, _ := r.Register("a", domain.Profile{}, domain.RolePlayerOne, time.Time{})
	b, _ := r.Register("b", domain.Profile{}, domain.RolePlayerTwo, time.Time{})

	a.Ready = true
	if !r.AnyReady() || r.AllReady() {
		t.Fatalf("any/all mismatch with one ready")
	}
	b.Ready = true
	if !r.AllReady() {
		t.Fatalf("expected all ready")
	}

	r.ResetReady()
	if r.AnyReady() {
		t.Fatalf("reset did not clear flags")
	}

	list := r.List()
	if len(list) != 2 || list[0].Role != domain.RolePlayerOne || list[1].Role != domain.RolePlayerTwo {
		t.Fatalf("list order: %+v", list)
	}
}
