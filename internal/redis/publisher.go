package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

const lastSessionTTL = 24 * time.Hour

// Publisher announces session lifecycle events on a pub/sub channel and
// keeps the latest record of each session under a short-lived key.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Publisher{client: client, channel: cfg.Channel}, nil
}

func (p *Publisher) Record(ctx context.Context, ev domain.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, data)
	pipe.Set(ctx, SessionKey(ev.Session.ID), data, lastSessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Kind, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

func SessionKey(id string) string {
	return "duet:session:" + id
}
