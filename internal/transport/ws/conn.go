package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Conn is one participant socket. Frames are queued into send and written
// by the connection's writeLoop only, so the room never waits on the network.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	drain     chan struct{} // закрыть после отправки очереди
	closed    chan struct{}
	drainOnce sync.Once
	closeOnce sync.Once
}

func newConn(id string, c *websocket.Conn, queue int) *Conn {
	if queue <= 0 {
		queue = 1
	}
	return &Conn{
		id:     id,
		ws:     c,
		send:   make(chan []byte, queue),
		drain:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// enqueue never blocks; a full queue drops the frame.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// CloseAfterFlush asks writeLoop to write what is queued, send a close frame
// and shut the socket.
func (c *Conn) CloseAfterFlush() {
	c.drainOnce.Do(func() { close(c.drain) })
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) write(data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
