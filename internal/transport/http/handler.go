package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/logger"
	"github.com/cwrk-planet/duet/internal/postgres"
	"github.com/cwrk-planet/duet/internal/room"
	"github.com/cwrk-planet/duet/internal/service"

	"github.com/go-chi/chi/v5"
)

type RoomReader interface {
	Snapshot(ctx context.Context) (room.Snapshot, error)
}

type Handler struct {
	room    RoomReader
	history *service.HistoryService
}

func NewHandler(rm RoomReader, history *service.HistoryService) *Handler {
	return &Handler{room: rm, history: history}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionsResponse struct {
	Items      []domain.Session `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /room
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.room.Snapshot(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("handler.GetRoom:", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /sessions?limit=&cursor=
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_limit"})
			return
		}
		limit = n
	}
	cursor := r.URL.Query().Get("cursor")

	items, next, err := h.history.List(r.Context(), limit, cursor)
	if err != nil {
		h.writeHistoryError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Session{}
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Items: items, NextCursor: next})
}

// GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeHistoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) writeHistoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "history_disabled"})
	case errors.Is(err, postgres.ErrInvalidCursor):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found"})
	default:
		logger.FromContext(r.Context()).Error("handler.history:", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
	}
}
