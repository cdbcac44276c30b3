package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// instanceID names this process in aggregated logs: host plus a short random suffix.
func instanceID(explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "duet"
	}
	return host + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func baseAttrs(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.Int("pid", os.Getpid()),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}
