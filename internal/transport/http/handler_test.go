package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/room"
	"github.com/cwrk-planet/duet/internal/service"
)

type stubRoom struct {
	snap room.Snapshot
	err  error
}

func (s stubRoom) Snapshot(context.Context) (room.Snapshot, error) { return s.snap, s.err }

type stubStore struct {
	items []domain.Session
	err   error
}

func (s stubStore) List(context.Context, int, string) ([]domain.Session, string, error) {
	return s.items, "next", s.err
}

func (s stubStore) Get(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func newTestRouter(rm RoomReader, history *service.HistoryService) http.Handler {
	return NewRouter(Deps{
		Handler:        NewHandler(rm, history),
		WS:             func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		AllowedOrigins: []string{"*"},
	})
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Room(t *testing.T) {
	snap := room.Snapshot{
		State:        domain.StateReadyPending,
		Participants: []room.ParticipantSummary{{Role: domain.RolePlayerOne, DisplayName: "A", Ready: true}},
	}
	h := newTestRouter(stubRoom{snap: snap}, service.NewHistoryService(nil))

	rec := do(t, h, "/room")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got room.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != domain.StateReadyPending || len(got.Participants) != 1 || !got.Participants[0].Ready {
		t.Fatalf("snapshot = %+v", got)
	}

	if rec := do(t, newTestRouter(stubRoom{err: errors.New("room closed")}, nil), "/room"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("closed room status = %d", rec.Code)
	}
}

func TestRouter_Sessions(t *testing.T) {
	disabled := newTestRouter(stubRoom{}, service.NewHistoryService(nil))
	if rec := do(t, disabled, "/sessions"); rec.Code != http.StatusNotImplemented {
		t.Fatalf("disabled history status = %d", rec.Code)
	}

	items := []domain.Session{{ID: "s1", PlayerOne: "A", PlayerTwo: "B", Outcome: domain.OutcomeCompleted}}
	h := newTestRouter(stubRoom{}, service.NewHistoryService(stubStore{items: items}))

	rec := do(t, h, "/sessions?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got SessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "s1" || got.NextCursor != "next" {
		t.Fatalf("sessions = %+v", got)
	}

	if rec := do(t, h, "/sessions?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
	if rec := do(t, h, "/sessions/unknown"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", rec.Code)
	}
}

func TestRouter_HealthAndWS(t *testing.T) {
	h := newTestRouter(stubRoom{}, nil)
	if rec := do(t, h, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, "/ws"); rec.Code != http.StatusTeapot {
		t.Fatalf("ws route not wired: %d", rec.Code)
	}
}
