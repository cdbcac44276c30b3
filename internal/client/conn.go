package client

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/duet/internal/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Conn is the client end of the socket. Writes are serialised by a mutex
// because the event loop and the pong handler may write concurrently.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Send(msg protocol.ClientMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Read blocks for the next server message. Undecodable frames are returned
// as errors wrapping domain.ErrInvalidMessage and can be skipped.
func (c *Conn) Read() (protocol.ServerMessage, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeServer(data)
}

// Close sends a normal close frame and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.ws.Close()
}
