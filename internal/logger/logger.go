package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// Init builds the process logger and installs it as slog's default.
func Init(cfg Config) *slog.Logger {
	cfg = cfg.defaults()

	var h slog.Handler
	if cfg.Backend == BackendZap {
		h = newZapHandler(cfg)
	} else {
		h = newStdHandler(cfg)
	}

	l := slog.New(h.WithAttrs(baseAttrs(cfg)))
	current.Store(l)
	slog.SetDefault(l)
	return l
}

// L returns the process logger, initialising a default one on first use.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return Init(Config{})
}

type ctxKey struct{}

// WithContext кладёт логгер (обычно с request/conn атрибутами) в контекст.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext достаёт логгер из контекста или возвращает L().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return L()
}
