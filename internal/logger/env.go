package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// DetectEnv reads DUET_ENV, then APP_ENV; anything unrecognised is dev.
func DetectEnv() Env {
	raw := os.Getenv("DUET_ENV")
	if raw == "" {
		raw = os.Getenv("APP_ENV")
	}
	return ParseEnv(raw)
}

func ParseEnv(s string) Env {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod":
		return EnvStage
	}
	return EnvDev
}

// ParseLevel maps a config string to a slog level; unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		if strings.EqualFold(strings.TrimSpace(s), "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return l
}
