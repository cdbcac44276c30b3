package room

import (
	"fmt"
	"sort"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
)

// Registry tracks the participants of one room. It is owned by the room
// goroutine and is not safe for concurrent use.
type Registry struct {
	capacity     int
	participants map[string]*domain.Participant
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity:     capacity,
		participants: make(map[string]*domain.Participant, capacity),
	}
}

func (r *Registry) Register(id string, profile domain.Profile, role domain.Role, joinedAt time.Time) (*domain.Participant, error) {
	if _, ok := r.participants[id]; ok {
		return nil, domain.ErrAlreadyJoined
	}
	if len(r.participants) >= r.capacity {
		return nil, domain.ErrRoomFull
	}
	if r.HasRole(role) {
		return nil, fmt.Errorf("%w: role %s taken", domain.ErrRoomFull, role)
	}

	p := &domain.Participant{
		ID:       id,
		Profile:  profile.Normalize(),
		Role:     role,
		JoinedAt: joinedAt,
	}
	r.participants[id] = p
	return p, nil
}

// Update applies a partial profile; unknown ids report false.
func (r *Registry) Update(id string, patch domain.ProfilePatch) (*domain.Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return nil, false
	}
	p.Profile.Apply(patch)
	return p, true
}

func (r *Registry) Unregister(id string) (*domain.Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return nil, false
	}
	delete(r.participants, id)
	return p, true
}

func (r *Registry) Get(id string) (*domain.Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

// Partner returns the other participant, if any.
func (r *Registry) Partner(id string) *domain.Participant {
	for pid, p := range r.participants {
		if pid != id {
			return p
		}
	}
	return nil
}

func (r *Registry) HasRole(role domain.Role) bool {
	for _, p := range r.participants {
		if p.Role == role {
			return true
		}
	}
	return false
}

func (r *Registry) Len() int { return len(r.participants) }

func (r *Registry) Full() bool { return len(r.participants) >= r.capacity }

func (r *Registry) AllReady() bool {
	if len(r.participants) == 0 {
		return false
	}
	for _, p := range r.participants {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Registry) AnyReady() bool {
	for _, p := range r.participants {
		if p.Ready {
			return true
		}
	}
	return false
}

func (r *Registry) ResetReady() {
	for _, p := range r.participants {
		p.Ready = false
	}
}

// List returns copies ordered by role.
func (r *Registry) List() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// assignRole hands out the first vacant role in domain.Roles order.
func assignRole(r *Registry) (domain.Role, error) {
	if r.Full() {
		return "", domain.ErrRoomFull
	}
	for _, role := range domain.Roles {
		if !r.HasRole(role) {
			return role, nil
		}
	}
	return "", domain.ErrRoomFull
}
