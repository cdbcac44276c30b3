package ws

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/protocol"
)

var ErrQueueFull = errors.New("ws: send queue full")

// Hub maps connection ids to live sockets and delivers room messages to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

func (h *Hub) Add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send encodes msg and queues it for connID. Best-effort: the frame is
// dropped when the connection is gone or its queue is full.
func (h *Hub) Send(connID string, msg protocol.ServerMessage) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return domain.ErrPartnerAbsent
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return fmt.Errorf("%w: %s", ErrQueueFull, connID)
	}
	return nil
}
