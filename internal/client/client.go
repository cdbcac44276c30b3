package client

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/protocol"

	"github.com/gorilla/websocket"
)

var ErrStopped = errors.New("client: event loop stopped")

// Client runs the single event loop that serialises server messages and
// local input against one Session.
type Client struct {
	conn *Conn
	sess *Session
	log  *slog.Logger

	cmds    chan func()
	stopped chan struct{}

	// OnState is called on the loop after every state change. It must not
	// call Do synchronously.
	OnState func(prev, next State, s *Session)
}

func New(conn *Conn, render Renderer, profile domain.Profile, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		conn:    conn,
		sess:    NewSession(conn, render, profile, log),
		log:     log,
		cmds:    make(chan func()),
		stopped: make(chan struct{}),
	}
}

// Run joins the room and processes events until the socket closes, the
// server rejects the client or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.stopped)

	inbound := make(chan protocol.ServerMessage)
	readErr := make(chan error, 1)
	go c.readLoop(ctx, inbound, readErr)

	if err := c.sess.Start(); err != nil {
		_ = c.conn.Close()
		return err
	}

	for {
		select {
		case msg := <-inbound:
			prev := c.sess.State()
			if err := c.sess.Handle(msg); err != nil {
				c.log.Warn("server message ignored", "type", msg.MessageType(), "err", err)
			}
			c.changed(prev)
			if c.sess.State() == StateRejected {
				_ = c.conn.Close()
				return domain.ErrRoomFull
			}
		case fn := <-c.cmds:
			prev := c.sess.State()
			fn()
			c.changed(prev)
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		case <-ctx.Done():
			_ = c.conn.Close()
			return nil
		}
	}
}

// Do runs fn on the event loop and returns its error.
func (c *Client) Do(ctx context.Context, fn func(s *Session) error) error {
	errc := make(chan error, 1)
	cmd := func() { errc <- fn(c.sess) }

	select {
	case c.cmds <- cmd:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-errc
}

func (c *Client) SetReady(ctx context.Context, ready bool) error {
	return c.Do(ctx, func(s *Session) error { return s.SetReady(ready) })
}

func (c *Client) Draw(ctx context.Context, op domain.DrawingOperation) error {
	return c.Do(ctx, func(s *Session) error { return s.Draw(op) })
}

func (c *Client) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) error {
	return c.Do(ctx, func(s *Session) error { return s.UpdateProfile(patch) })
}

// Session exposes the state machine; read it from OnState or Do only.
func (c *Client) Session() *Session { return c.sess }

func (c *Client) changed(prev State) {
	next := c.sess.State()
	if next == prev {
		return
	}
	c.log.Info("client state", "from", prev.String(), "to", next.String())
	if c.OnState != nil {
		c.OnState(prev, next, c.sess)
	}
}

func (c *Client) readLoop(ctx context.Context, inbound chan<- protocol.ServerMessage, readErr chan<- error) {
	for {
		msg, err := c.conn.Read()
		if err != nil {
			if errors.Is(err, domain.ErrInvalidMessage) || errors.Is(err, domain.ErrInvalidOperation) {
				c.log.Warn("server frame rejected", "err", err)
				continue
			}
			readErr <- err
			return
		}
		select {
		case inbound <- msg:
		case <-c.stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}
