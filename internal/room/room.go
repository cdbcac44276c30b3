package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/protocol"
)

var (
	ErrClosed           = errors.New("room closed")
	errCountdownStarted = fmt.Errorf("%w: countdown already started", domain.ErrTimerRunning)
)

// Outbox delivers server messages to a connection. Send must not block;
// an unknown connection yields domain.ErrPartnerAbsent.
type Outbox interface {
	Send(connID string, msg protocol.ServerMessage) error
}

type Config struct {
	SessionSeconds int
	TickInterval   time.Duration
}

// Snapshot is a read-only view of the room for the HTTP surface.
type Snapshot struct {
	State            domain.SessionState  `json:"state"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	SessionID        string               `json:"session_id,omitempty"`
	Participants     []ParticipantSummary `json:"participants"`
}

type ParticipantSummary struct {
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
	City        *string     `json:"city,omitempty"`
	Ready       bool        `json:"ready"`
	JoinedAt    time.Time   `json:"joined_at"`
}

// Room is the coordinator of a single two-party drawing room. All state is
// owned by the goroutine started with Run; the exported methods post a
// command to it and wait until it has been processed.
type Room struct {
	cfg      Config
	out      Outbox
	observer Observer
	log      *slog.Logger
	now      func() time.Time

	inbox   chan func()
	stopped chan struct{}
	runCtx  context.Context

	registry  *Registry
	state     domain.SessionState
	countdown *Countdown
	remaining int
	session   *domain.Session
}

type Option func(*Room)

func WithObserver(o Observer) Option {
	return func(r *Room) {
		if o != nil {
			r.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Room) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Room) { r.now = now }
}

func New(cfg Config, out Outbox, opts ...Option) *Room {
	if cfg.SessionSeconds <= 0 {
		cfg.SessionSeconds = 60
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	r := &Room{
		cfg:      cfg,
		out:      out,
		observer: nopObserver{},
		log:      slog.Default(),
		now:      time.Now,
		inbox:    make(chan func()),
		stopped:  make(chan struct{}),
		registry: NewRegistry(domain.MaxParticipants),
		state:    domain.StateWaiting,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes commands one at a time until ctx is done.
func (r *Room) Run(ctx context.Context) {
	r.runCtx = ctx
	defer close(r.stopped)

	r.log.Info("room started", "session_seconds", r.cfg.SessionSeconds)
	for {
		select {
		case fn := <-r.inbox:
			r.safe(fn)
		case <-ctx.Done():
			if r.countdown != nil {
				r.countdown.Stop()
				r.countdown = nil
			}
			r.log.Info("room stopped")
			return
		}
	}
}

// Join assigns a role to the connection and exchanges profiles with the partner.
func (r *Room) Join(ctx context.Context, connID string, profile domain.Profile) (domain.Role, error) {
	var (
		role domain.Role
		err  error
	)
	if execErr := r.exec(ctx, func() { role, err = r.join(connID, profile) }); execErr != nil {
		return "", execErr
	}
	return role, err
}

// Leave removes the connection; unknown ids yield domain.ErrUnknownConnection.
func (r *Room) Leave(ctx context.Context, connID string) error {
	var err error
	if execErr := r.exec(ctx, func() { err = r.leave(connID) }); execErr != nil {
		return execErr
	}
	return err
}

func (r *Room) SetReady(ctx context.Context, connID string, ready bool) error {
	var err error
	if execErr := r.exec(ctx, func() { err = r.setReady(connID, ready) }); execErr != nil {
		return execErr
	}
	return err
}

func (r *Room) UpdateProfile(ctx context.Context, connID string, patch domain.ProfilePatch) error {
	var err error
	if execErr := r.exec(ctx, func() { err = r.updateProfile(connID, patch) }); execErr != nil {
		return execErr
	}
	return err
}

// Relay forwards op to the partner. It never reports delivery; a missing
// partner yields domain.ErrPartnerAbsent for logging only.
func (r *Room) Relay(ctx context.Context, connID string, op domain.DrawingOperation) error {
	var err error
	if execErr := r.exec(ctx, func() { err = r.relay(connID, op) }); execErr != nil {
		return execErr
	}
	return err
}

func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := r.exec(ctx, func() { snap = r.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// exec runs fn on the room goroutine and waits for it to finish.
func (r *Room) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case r.inbox <- cmd:
	case <-r.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// once accepted the command always completes: the loop recovers panics
	<-done
	return nil
}

// post queues fn without waiting; used by the countdown goroutine.
func (r *Room) post(ctx context.Context, fn func()) {
	select {
	case r.inbox <- fn:
	case <-r.stopped:
	case <-ctx.Done():
	}
}

func (r *Room) safe(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("room command panic", "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// ---- handlers, room goroutine only ----

func (r *Room) join(connID string, profile domain.Profile) (domain.Role, error) {
	if _, ok := r.registry.Get(connID); ok {
		return "", domain.ErrAlreadyJoined
	}
	role, err := assignRole(r.registry)
	if err != nil {
		r.log.Info("join rejected", "conn_id", connID, "err", err)
		return "", err
	}
	p, err := r.registry.Register(connID, profile, role, r.now())
	if err != nil {
		return "", err
	}

	r.send(connID, protocol.RoleAssigned{Role: role})
	if partner := r.registry.Partner(connID); partner != nil {
		r.send(partner.ID, protocol.NewPartnerInfo(p))
		r.send(connID, protocol.NewPartnerInfo(partner))
		if partner.Ready {
			r.send(connID, protocol.PartnerReadyUpdate{Ready: true, DisplayName: partner.Profile.DisplayName})
		}
	}

	r.log.Info("participant joined",
		"conn_id", connID, "role", role, "name", p.Profile.DisplayName, "participants", r.registry.Len())
	return role, nil
}

func (r *Room) leave(connID string) error {
	p, ok := r.registry.Unregister(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}

	prev := r.state
	switch prev {
	case domain.StateActive:
		r.stopCountdown()
		r.finishSession(domain.OutcomeAbandoned)
	case domain.StateEnded:
		r.session = nil
	}

	// the occupancy is over: whoever stays starts from a fresh waiting state
	r.registry.ResetReady()
	r.state = domain.StateWaiting
	r.remaining = 0

	if partner := r.registry.Partner(connID); partner != nil {
		r.send(partner.ID, protocol.PartnerLeft{})
	}

	r.log.Info("participant left",
		"conn_id", connID, "role", p.Role, "name", p.Profile.DisplayName,
		"prev_state", prev, "participants", r.registry.Len())
	return nil
}

func (r *Room) setReady(connID string, ready bool) error {
	p, ok := r.registry.Get(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	if p.Ready == ready {
		return nil
	}
	p.Ready = ready

	if partner := r.registry.Partner(connID); partner != nil {
		r.send(partner.ID, protocol.PartnerReadyUpdate{Ready: ready, DisplayName: p.Profile.DisplayName})
	}
	r.evaluateReadiness()
	return nil
}

// evaluateReadiness is re-run on every readiness change; the transition to
// active happens only from a gathering state, so sessionStart is edge-triggered.
func (r *Room) evaluateReadiness() {
	if !r.state.Gathering() {
		return
	}
	switch {
	case r.registry.Len() == domain.MaxParticipants && r.registry.AllReady():
		r.startSession()
	case r.registry.AnyReady():
		r.state = domain.StateReadyPending
	default:
		r.state = domain.StateWaiting
	}
}

func (r *Room) startSession() {
	if r.countdown != nil {
		r.log.Warn("session start ignored", "err", domain.ErrTimerRunning)
		return
	}

	var p1, p2 string
	for _, p := range r.registry.List() {
		switch p.Role {
		case domain.RolePlayerOne:
			p1 = p.Profile.DisplayName
		case domain.RolePlayerTwo:
			p2 = p.Profile.DisplayName
		}
	}
	r.session = domain.NewSession(p1, p2, r.cfg.SessionSeconds, r.now())
	r.state = domain.StateActive
	r.remaining = r.cfg.SessionSeconds

	r.broadcast(protocol.SessionStart{})
	r.observer.Notify(domain.SessionEvent{Kind: domain.SessionStarted, Session: *r.session})

	cd := &Countdown{Seconds: r.cfg.SessionSeconds, Interval: r.cfg.TickInterval}
	cd.OnTick = func(ctx context.Context, remaining int) {
		r.post(ctx, func() { r.onTick(cd, remaining) })
	}
	cd.OnExpire = func(ctx context.Context) {
		r.post(ctx, func() { r.onExpire(cd) })
	}
	r.countdown = cd

	ctx := r.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cd.Start(ctx); err != nil {
		r.log.Warn("countdown start failed", "err", err)
	}

	r.log.Info("session started", "session_id", r.session.ID, "player1", p1, "player2", p2)
}

func (r *Room) onTick(cd *Countdown, remaining int) {
	if cd != r.countdown {
		return
	}
	r.remaining = remaining
	r.broadcast(protocol.TimeRemaining{Seconds: remaining})
}

func (r *Room) onExpire(cd *Countdown) {
	if cd != r.countdown || r.state != domain.StateActive {
		return
	}
	r.countdown = nil
	r.remaining = 0
	r.state = domain.StateEnded

	r.broadcast(protocol.SessionEnd{})
	r.finishSession(domain.OutcomeCompleted)
}

func (r *Room) stopCountdown() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
}

func (r *Room) finishSession(outcome domain.SessionOutcome) {
	if r.session == nil {
		return
	}
	r.session.Finish(outcome, r.now())
	r.observer.Notify(domain.SessionEvent{Kind: domain.SessionEnded, Session: *r.session})
	r.log.Info("session finished",
		"session_id", r.session.ID, "outcome", outcome,
		"strokes_player1", r.session.StrokesPlayerOne, "strokes_player2", r.session.StrokesPlayerTwo)
	if outcome == domain.OutcomeAbandoned {
		r.session = nil
	}
}

func (r *Room) updateProfile(connID string, patch domain.ProfilePatch) error {
	p, ok := r.registry.Update(connID, patch)
	if !ok {
		return domain.ErrUnknownConnection
	}
	if partner := r.registry.Partner(connID); partner != nil {
		out := protocol.PartnerProfileUpdate{Avatar: patch.Avatar, City: patch.City}
		if patch.DisplayName != nil {
			name := p.Profile.DisplayName
			out.DisplayName = &name
		}
		r.send(partner.ID, out)
	}
	return nil
}

func (r *Room) relay(connID string, op domain.DrawingOperation) error {
	p, ok := r.registry.Get(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	partner := r.registry.Partner(connID)
	if partner == nil {
		return domain.ErrPartnerAbsent
	}
	if r.state == domain.StateActive && r.session != nil {
		r.session.CountStroke(p.Role)
	}
	return r.out.Send(partner.ID, protocol.DrawOpRelayed{DrawingOperation: op})
}

func (r *Room) snapshot() Snapshot {
	snap := Snapshot{
		State:            r.state,
		RemainingSeconds: r.remaining,
		Participants:     make([]ParticipantSummary, 0, r.registry.Len()),
	}
	if r.session != nil {
		snap.SessionID = r.session.ID
	}
	for _, p := range r.registry.List() {
		snap.Participants = append(snap.Participants, ParticipantSummary{
			Role:        p.Role,
			DisplayName: p.Profile.DisplayName,
			City:        p.Profile.City,
			Ready:       p.Ready,
			JoinedAt:    p.JoinedAt,
		})
	}
	return snap
}

func (r *Room) send(connID string, msg protocol.ServerMessage) {
	if err := r.out.Send(connID, msg); err != nil {
		r.log.Debug("send dropped", "conn_id", connID, "type", msg.MessageType(), "err", err)
	}
}

func (r *Room) broadcast(msg protocol.ServerMessage) {
	for _, p := range r.registry.List() {
		r.send(p.ID, msg)
	}
}
