package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// observe logs one call and turns a handler panic into codes.Internal.
func observe(log *slog.Logger, kind, method string, start time.Time, err *error) {
	if r := recover(); r != nil {
		log.Error("grpc panic", "kind", kind, "method", method, "panic", r, "stack", string(debug.Stack()))
		*err = status.Error(codes.Internal, "internal server error")
	}
	code := status.Code(*err)
	level := slog.LevelDebug
	if code != codes.OK && code != codes.Canceled {
		level = slog.LevelWarn
	}
	log.Log(context.Background(), level, "grpc call",
		"kind", kind, "method", method, "code", code.String(), "dur", time.Since(start).String())
}

// UnaryServerInterceptor adds a deadline when the caller sent none.
func UnaryServerInterceptor(log *slog.Logger, guard time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer observe(log, "unary", info.FullMethod, time.Now(), &err)

		if _, ok := ctx.Deadline(); !ok && guard > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, guard)
			defer cancel()
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor covers health Watch streams.
func StreamServerInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer observe(log, "stream", info.FullMethod, time.Now(), &err)
		return handler(srv, ss)
	}
}
