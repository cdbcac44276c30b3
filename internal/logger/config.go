package logger

import (
	"io"
	"log/slog"
	"os"
)

type Backend string

const (
	BackendStd Backend = "std" // slog text (dev) или JSON
	BackendZap Backend = "zap" // zap core через slog-zap
)

// Config describes one process-wide logger. Zero values are filled by defaults().
type Config struct {
	Service    string
	Version    string
	InstanceID string
	Env        Env

	Backend   Backend
	Level     slog.Level
	Debug     bool // force debug when Level is left at info
	AddSource bool
	Output    io.Writer

	// zap only: per second, log the first SampleInitial entries with the
	// same message, then every SampleThereafter-th.
	SampleInitial    int
	SampleThereafter int
}

func (c Config) defaults() Config {
	if c.Env == "" {
		c.Env = DetectEnv()
	}
	if c.Service == "" {
		c.Service = "duet"
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.Backend == "" {
		c.Backend = BackendStd
		if c.Env != EnvDev {
			c.Backend = BackendZap
		}
	}
	if c.SampleInitial <= 0 {
		c.SampleInitial = 100
	}
	if c.SampleThereafter <= 0 {
		c.SampleThereafter = 10
	}
	if c.Debug && c.Level == slog.LevelInfo {
		c.Level = slog.LevelDebug
	}
	c.InstanceID = instanceID(c.InstanceID)
	return c
}
