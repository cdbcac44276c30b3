package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type RoomSvc interface {
	Join(ctx context.Context, connID string, profile domain.Profile) (domain.Role, error)
	Leave(ctx context.Context, connID string) error
	SetReady(ctx context.Context, connID string, ready bool) error
	UpdateProfile(ctx context.Context, connID string, patch domain.ProfilePatch) error
	Relay(ctx context.Context, connID string, op domain.DrawingOperation) error
}

type Options struct {
	PingEvery      time.Duration
	ReadLimit      int64
	SendQueue      int
	AllowedOrigins []string
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	room     RoomSvc
	log      *slog.Logger

	pingEvery time.Duration
	readLimit int64
	sendQueue int
}

func NewServer(hub *Hub, room RoomSvc, opts Options, log *slog.Logger) *Server {
	if opts.PingEvery <= 0 {
		opts.PingEvery = 15 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:  hub,
		room: room,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		pingEvery: opts.PingEvery,
		readLimit: opts.ReadLimit,
		sendQueue: opts.SendQueue,
	}
}

// WS endpoint: GET /ws
// Соединение получает id сразу, роль только после join.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newConn(uuid.NewString(), conn, s.sendQueue)
	s.hub.Add(c)
	log := s.log.With("conn_id", c.id, "remote", r.RemoteAddr)
	log.Debug("ws connected")

	ctx := context.WithoutCancel(r.Context())

	written := make(chan struct{})
	go func() {
		defer close(written)
		s.writeLoop(c, log)
	}()
	flushing := s.readLoop(ctx, c, log)

	if err := s.room.Leave(ctx, c.id); err != nil && !errors.Is(err, domain.ErrUnknownConnection) {
		log.Debug("ws leave failed", "err", err)
	}
	s.hub.Remove(c)
	if flushing {
		<-written
	}
	if err := c.Close(); err != nil {
		log.Debug("ws close failed", "err", err)
	}
	log.Debug("ws disconnected")
}

// readLoop reports true when the connection was rejected and writeLoop is
// flushing the final frames.
func (s *Server) readLoop(ctx context.Context, c *Conn, log *slog.Logger) bool {
	c.ws.SetReadLimit(s.readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read failed", "err", err)
			}
			return false
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(2 * s.pingEvery))

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			log.Warn("ws message rejected", "err", err)
			continue
		}
		if stop := s.dispatch(ctx, c, msg, log); stop {
			return true
		}
	}
}

// dispatch routes one client message to the room. It reports true when the
// connection must stop reading.
func (s *Server) dispatch(ctx context.Context, c *Conn, msg protocol.ClientMessage, log *slog.Logger) bool {
	var err error
	switch m := msg.(type) {
	case protocol.Join:
		_, err = s.room.Join(ctx, c.id, m.Profile())
		if errors.Is(err, domain.ErrRoomFull) {
			log.Info("ws join rejected: room full")
			if err := s.hub.Send(c.id, protocol.RoomFull{}); err != nil {
				log.Debug("ws roomFull not queued", "err", err)
			}
			c.CloseAfterFlush()
			return true
		}
	case protocol.ProfileUpdate:
		err = s.room.UpdateProfile(ctx, c.id, m.Patch())
	case protocol.SetReady:
		err = s.room.SetReady(ctx, c.id, *m.Ready)
	case protocol.DrawOp:
		err = s.room.Relay(ctx, c.id, m.DrawingOperation)
	}
	if err != nil {
		logDropped(log, msg.MessageType(), err)
	}
	return false
}

func (s *Server) writeLoop(c *Conn, log *slog.Logger) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			if err := c.write(data); err != nil {
				log.Debug("ws write failed", "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("ws ping failed", "err", err)
			}
		case <-c.drain:
			s.flush(c, log)
			return
		case <-c.closed:
			return
		}
	}
}

// flush writes the queued frames, then a close frame, then closes the socket.
func (s *Server) flush(c *Conn, log *slog.Logger) {
	defer func() { _ = c.Close() }()
	for {
		select {
		case data := <-c.send:
			if err := c.write(data); err != nil {
				log.Debug("ws flush failed", "err", err)
				return
			}
		default:
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "room full")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func logDropped(log *slog.Logger, typ string, err error) {
	switch {
	case errors.Is(err, domain.ErrPartnerAbsent), errors.Is(err, ErrQueueFull):
		log.Debug("ws message dropped", "type", typ, "err", err)
	default:
		log.Warn("ws message dropped", "type", typ, "err", err)
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
