package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr string `yaml:"addr"`
}

type HTTP struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // duet
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

// Room holds the session protocol knobs.
type Room struct {
	SessionSeconds int           `yaml:"sessionSeconds"` // 60
	TickInterval   time.Duration `yaml:"tickInterval"`   // 1s
	SendQueue      int           `yaml:"sendQueue"`      // outbound messages buffered per connection
	PingEvery      time.Duration `yaml:"pingEvery"`      // 15s
	ReadLimit      int64         `yaml:"readLimit"`      // bytes, avatars travel inline
}

// Postgres is optional: an empty DSN disables session history.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	ApplicationName string        `yaml:"applicationName"`
	Migrate         bool          `yaml:"migrate"`
}

func (p Postgres) Enabled() bool { return p.DSN != "" }

// Redis is optional: an empty Addr disables event publishing.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Room     Room     `yaml:"room"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
}

// LoadConfig reads .env (if present) and then the YAML file at CONFIG_PATH.
// ${VAR} references inside the YAML are expanded from the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Room.SessionSeconds < 0 {
		return errors.New("room.sessionSeconds must be >= 0")
	}
	if c.Room.TickInterval < 0 {
		return errors.New("room.tickInterval must be >= 0")
	}

	// установка дефолтов, если значения не указаны
	c.HTTP.ReadTimeout = durationOr(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = durationOr(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.IdleTimeout = durationOr(c.HTTP.IdleTimeout, 60*time.Second)
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "duet"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Room.SessionSeconds == 0 {
		c.Room.SessionSeconds = 60
	}
	c.Room.TickInterval = durationOr(c.Room.TickInterval, time.Second)
	c.Room.PingEvery = durationOr(c.Room.PingEvery, 15*time.Second)
	if c.Room.SendQueue <= 0 {
		c.Room.SendQueue = 256
	}
	if c.Room.ReadLimit <= 0 {
		c.Room.ReadLimit = 1 << 20
	}

	if c.Redis.Enabled() && c.Redis.Channel == "" {
		c.Redis.Channel = "duet:sessions"
	}
	if c.Postgres.Enabled() && c.Postgres.ApplicationName == "" {
		c.Postgres.ApplicationName = c.Logging.Service
	}
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
