package room

import "github.com/cwrk-planet/duet/internal/domain"

// Observer receives session lifecycle events from the room goroutine.
// Implementations must not block.
type Observer interface {
	Notify(ev domain.SessionEvent)
}

type nopObserver struct{}

func (nopObserver) Notify(domain.SessionEvent) {}
