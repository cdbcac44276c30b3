package room

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/protocol"
)

type fakeOutbox struct {
	mu   sync.Mutex
	msgs map[string][]protocol.ServerMessage
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{msgs: make(map[string][]protocol.ServerMessage)}
}

func (f *fakeOutbox) Send(connID string, msg protocol.ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[connID] = append(f.msgs[connID], msg)
	return nil
}

func (f *fakeOutbox) all(connID string) []protocol.ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.ServerMessage(nil), f.msgs[connID]...)
}

func (f *fakeOutbox) count(connID, typ string) int {
	n := 0
	for _, m := range f.all(connID) {
		if m.MessageType() == typ {
			n++
		}
	}
	return n
}

func (f *fakeOutbox) waitFor(t *testing.T, connID, typ string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.count(connID, typ) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%s never received %s; got %v", connID, typ, types(f.all(connID)))
}

func types(msgs []protocol.ServerMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.MessageType())
	}
	return out
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (o *recordingObserver) Notify(ev domain.SessionEvent) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() []domain.SessionEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.SessionEvent(nil), o.events...)
}

func startRoom(t *testing.T, seconds int, opts ...Option) (*Room, *fakeOutbox) {
	t.Helper()
	out := newFakeOutbox()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	r := New(Config{SessionSeconds: seconds, TickInterval: 5 * time.Millisecond}, out, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(cancel)
	return r, out
}

func join(t *testing.T, r *Room, id, name string) domain.Role {
	t.Helper()
	role, err := r.Join(context.Background(), id, domain.Profile{DisplayName: name})
	if err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
	return role
}

func TestRoom_JoinExchangesPartnerInfo(t *testing.T) {
	r, out := startRoom(t, 3)
	ctx := context.Background()

	if role := join(t, r, "a", "Alice"); role != domain.RolePlayerOne {
		t.Fatalf("a role = %s", role)
	}
	if err := r.SetReady(ctx, "a", true); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if role := join(t, r, "b", "Bob"); role != domain.RolePlayerTwo {
		t.Fatalf("b role = %s", role)
	}

	got := out.all("b")
	if len(got) != 3 {
		t.Fatalf("b messages = %v", types(got))
	}
	if ra, ok := got[0].(protocol.RoleAssigned); !ok || ra.Role != domain.RolePlayerTwo {
		t.Fatalf("first message to b = %#v", got[0])
	}
	pi, ok := got[1].(protocol.PartnerInfo)
	if !ok || pi.DisplayName != "Alice" || !pi.Ready || pi.Role != domain.RolePlayerOne {
		t.Fatalf("partnerInfo to b = %#v", got[1])
	}
	if pr, ok := got[2].(protocol.PartnerReadyUpdate); !ok || !pr.Ready || pr.DisplayName != "Alice" {
		t.Fatalf("late joiner readiness = %#v", got[2])
	}

	var sawBob bool
	for _, m := range out.all("a") {
		if pi, ok := m.(protocol.PartnerInfo); ok && pi.DisplayName == "Bob" {
			sawBob = true
		}
	}
	if !sawBob {
		t.Fatalf("a never learned about Bob: %v", types(out.all("a")))
	}
}

func TestRoom_ThirdJoinRejected(t *testing.T) {
	r, out := startRoom(t, 3)
	join(t, r, "a", "A")
	join(t, r, "b", "B")

	_, err := r.Join(context.Background(), "c", domain.Profile{DisplayName: "C"})
	if !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if n := len(out.all("c")); n != 0 {
		t.Fatalf("rejected connection got %d messages", n)
	}

	snap, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Participants) != 2 || snap.State != domain.StateWaiting {
		t.Fatalf("room changed by rejected join: %+v", snap)
	}
}

func TestRoom_FullSessionLifecycle(t *testing.T) {
	obs := &recordingObserver{}
	r, out := startRoom(t, 3, WithObserver(obs))
	ctx := context.Background()

	join(t, r, "a", "A")
	join(t, r, "b", "B")

	_ = r.SetReady(ctx, "a", true)
	snap, _ := r.Snapshot(ctx)
	if snap.State != domain.StateReadyPending {
		t.Fatalf("state after one ready = %s", snap.State)
	}

	// repeated ready with the same value is a no-op
	_ = r.SetReady(ctx, "a", true)
	if n := out.count("b", protocol.TypePartnerReadyUpdate); n != 1 {
		t.Fatalf("b got %d partnerReadyUpdate", n)
	}

	_ = r.SetReady(ctx, "b", true)
	out.waitFor(t, "a", protocol.TypeSessionEnd)
	out.waitFor(t, "b", protocol.TypeSessionEnd)

	for _, id := range []string{"a", "b"} {
		if n := out.count(id, protocol.TypeSessionStart); n != 1 {
			t.Fatalf("%s got %d sessionStart", id, n)
		}
		if n := out.count(id, protocol.TypeSessionEnd); n != 1 {
			t.Fatalf("%s got %d sessionEnd", id, n)
		}

		var secs []int
		var endSeen bool
		for _, m := range out.all(id) {
			switch m := m.(type) {
			case protocol.TimeRemaining:
				if endSeen {
					t.Fatalf("timeRemaining after sessionEnd")
				}
				secs = append(secs, m.Seconds)
			case protocol.SessionEnd:
				endSeen = true
			}
		}
		want := []int{3, 2, 1, 0}
		if len(secs) != len(want) {
			t.Fatalf("%s ticks = %v", id, secs)
		}
		for i := range want {
			if secs[i] != want[i] {
				t.Fatalf("%s ticks = %v", id, secs)
			}
		}
	}

	snap, _ = r.Snapshot(ctx)
	if snap.State != domain.StateEnded {
		t.Fatalf("state after expiry = %s", snap.State)
	}

	// readiness changes after the session do not restart it
	_ = r.SetReady(ctx, "a", false)
	_ = r.SetReady(ctx, "a", true)
	if n := out.count("b", protocol.TypeSessionStart); n != 1 {
		t.Fatalf("session restarted while ended")
	}

	events := obs.snapshot()
	if len(events) != 2 || events[0].Kind != domain.SessionStarted || events[1].Kind != domain.SessionEnded {
		t.Fatalf("observer events = %+v", events)
	}
	if events[1].Session.Outcome != domain.OutcomeCompleted {
		t.Fatalf("outcome = %s", events[1].Session.Outcome)
	}
}

func TestRoom_ReadyToggleBeforeStart(t *testing.T) {
	r, out := startRoom(t, 3)
	ctx := context.Background()
	join(t, r, "a", "A")
	join(t, r, "b", "B")

	_ = r.SetReady(ctx, "a", true)
	_ = r.SetReady(ctx, "a", false)
	snap, _ := r.Snapshot(ctx)
	if snap.State != domain.StateWaiting {
		t.Fatalf("state = %s", snap.State)
	}

	_ = r.SetReady(ctx, "b", true)
	if n := out.count("a", protocol.TypeSessionStart); n != 0 {
		t.Fatalf("session started with one participant ready")
	}
	if n := out.count("b", protocol.TypePartnerReadyUpdate); n != 2 {
		t.Fatalf("b got %d partnerReadyUpdate", n)
	}
}

func TestRoom_DisconnectFreesRole(t *testing.T) {
	r, out := startRoom(t, 3)
	ctx := context.Background()
	join(t, r, "a", "A")
	join(t, r, "b", "B")
	_ = r.SetReady(ctx, "b", true)

	if err := r.Leave(ctx, "a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := r.Leave(ctx, "a"); !errors.Is(err, domain.ErrUnknownConnection) {
		t.Fatalf("second leave = %v", err)
	}
	if n := out.count("b", protocol.TypePartnerLeft); n != 1 {
		t.Fatalf("b got %d partnerLeft", n)
	}

	if role := join(t, r, "c", "C"); role != domain.RolePlayerOne {
		t.Fatalf("new joiner role = %s", role)
	}

	snap, _ := r.Snapshot(ctx)
	for _, p := range snap.Participants {
		if p.Ready {
			t.Fatalf("readiness survived departure: %+v", p)
		}
	}
}

func TestRoom_DisconnectDuringSessionCancelsTimer(t *testing.T) {
	obs := &recordingObserver{}
	out := newFakeOutbox()
	r := New(Config{SessionSeconds: 1000, TickInterval: 5 * time.Millisecond}, out,
		WithObserver(obs), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	join(t, r, "a", "A")
	join(t, r, "b", "B")
	_ = r.SetReady(ctx, "a", true)
	_ = r.SetReady(ctx, "b", true)
	out.waitFor(t, "b", protocol.TypeTimeRemaining)

	if err := r.Relay(ctx, "b", domain.DrawingOperation{Tool: domain.ToolBrush, Size: 2}); err != nil {
		t.Fatalf("relay: %v", err)
	}
	out.waitFor(t, "a", protocol.TypeDrawOpRelayed)

	if err := r.Leave(ctx, "a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	out.waitFor(t, "b", protocol.TypePartnerLeft)

	settled := out.count("b", protocol.TypeTimeRemaining)
	time.Sleep(30 * time.Millisecond)
	if n := out.count("b", protocol.TypeTimeRemaining); n != settled {
		t.Fatalf("ticks continued after disconnect: %d -> %d", settled, n)
	}
	if n := out.count("b", protocol.TypeSessionEnd); n != 0 {
		t.Fatalf("sessionEnd sent after abandon")
	}

	snap, _ := r.Snapshot(ctx)
	if snap.State != domain.StateWaiting {
		t.Fatalf("state after abandon = %s", snap.State)
	}

	events := obs.snapshot()
	last := events[len(events)-1]
	if last.Kind != domain.SessionEnded || last.Session.Outcome != domain.OutcomeAbandoned {
		t.Fatalf("last event = %+v", last)
	}
	if last.Session.StrokesPlayerTwo != 1 {
		t.Fatalf("strokes = %+v", last.Session)
	}
}

func TestRoom_RelayWithoutPartner(t *testing.T) {
	r, out := startRoom(t, 3)
	join(t, r, "a", "A")

	op := domain.DrawingOperation{FromX: 1, FromY: 2, ToX: 3, ToY: 4, Tool: domain.ToolEraser, Size: 10, Opacity: 255}
	if err := r.Relay(context.Background(), "a", op); !errors.Is(err, domain.ErrPartnerAbsent) {
		t.Fatalf("expected ErrPartnerAbsent, got %v", err)
	}
	if n := out.count("a", protocol.TypeDrawOpRelayed); n != 0 {
		t.Fatalf("op echoed to sender")
	}
}

func TestRoom_ProfileUpdateForwarded(t *testing.T) {
	r, out := startRoom(t, 3)
	ctx := context.Background()
	join(t, r, "a", "A")
	join(t, r, "b", "B")

	city := "Tbilisi"
	if err := r.UpdateProfile(ctx, "a", domain.ProfilePatch{City: &city}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var upd *protocol.PartnerProfileUpdate
	for _, m := range out.all("b") {
		if u, ok := m.(protocol.PartnerProfileUpdate); ok {
			upd = &u
		}
	}
	if upd == nil || upd.City == nil || *upd.City != city || upd.DisplayName != nil {
		t.Fatalf("partnerProfileUpdate = %#v", upd)
	}
}

func TestRoom_ClosedAfterStop(t *testing.T) {
	out := newFakeOutbox()
	r := New(Config{}, out, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if _, err := r.Join(context.Background(), "a", domain.Profile{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRoom_SnapshotUsesInjectedClock(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r, _ := startRoom(t, 3, WithClock(func() time.Time { return at }))
	join(t, r, "a", "Alice")

	snap, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Participants) != 1 || !snap.Participants[0].JoinedAt.Equal(at) {
		t.Fatalf("participants = %+v", snap.Participants)
	}
}
