package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/duet/internal/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Logging пишет метод, путь, статус, длительность и request id.
// The request logger is stored in the context for handlers.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())

		log := logger.Ctx(r.Context()).With("req_id", reqID)
		ctx := logger.WithContext(r.Context(), log)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			// hijacked (websocket) or nothing written
			status = http.StatusSwitchingProtocols
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
