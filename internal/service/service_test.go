package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
)

type memSink struct {
	mu   sync.Mutex
	got  []domain.SessionEventKind
	fail bool
}

func (s *memSink) Record(_ context.Context, ev domain.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev.Kind)
	if s.fail {
		return errors.New("boom")
	}
	return nil
}

func (s *memSink) kinds() []domain.SessionEventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SessionEventKind(nil), s.got...)
}

func TestDispatcher_DeliversInOrderToAllSinks(t *testing.T) {
	failing, ok := &memSink{fail: true}, &memSink{}
	d := NewDispatcher(8, slog.New(slog.NewTextHandler(io.Discard, nil)), failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	s := domain.NewSession("A", "B", 60, time.Now())
	d.Notify(domain.SessionEvent{Kind: domain.SessionStarted, Session: *s})
	d.Notify(domain.SessionEvent{Kind: domain.SessionEnded, Session: *s})

	deadline := time.Now().Add(2 * time.Second)
	for len(ok.kinds()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	for _, sink := range []*memSink{failing, ok} {
		got := sink.kinds()
		if len(got) != 2 || got[0] != domain.SessionStarted || got[1] != domain.SessionEnded {
			t.Fatalf("sink got %v", got)
		}
	}
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	d := NewDispatcher(1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ev := domain.SessionEvent{Kind: domain.SessionStarted}

	d.Notify(ev)
	d.Notify(ev)
	d.Notify(ev)
	if d.Dropped() != 2 {
		t.Fatalf("dropped = %d", d.Dropped())
	}
}

type fakeStore struct{ limit int }

func (f *fakeStore) List(_ context.Context, limit int, _ string) ([]domain.Session, string, error) {
	f.limit = limit
	return nil, "", nil
}

func (f *fakeStore) Get(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func TestHistoryService_LimitClamp(t *testing.T) {
	store := &fakeStore{}
	h := NewHistoryService(store)

	cases := map[int]int{0: 20, -3: 20, 7: 7, 500: 50}
	for in, want := range cases {
		if _, _, err := h.List(context.Background(), in, ""); err != nil {
			t.Fatalf("list: %v", err)
		}
		if store.limit != want {
			t.Fatalf("limit %d -> %d, want %d", in, store.limit, want)
		}
	}

	if _, _, err := NewHistoryService(nil).List(context.Background(), 10, ""); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("expected ErrHistoryDisabled, got %v", err)
	}
}
