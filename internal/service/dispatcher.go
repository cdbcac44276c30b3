package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/duet/internal/domain"
)

// Sink stores or forwards a session event (postgres, redis).
type Sink interface {
	Record(ctx context.Context, ev domain.SessionEvent) error
}

// Dispatcher takes session events from the room goroutine without blocking
// it and hands them to every sink from a single worker, so a session's
// started event always reaches a sink before its ended event.
type Dispatcher struct {
	sinks   []Sink
	queue   chan domain.SessionEvent
	timeout time.Duration
	log     *slog.Logger
	dropped atomic.Int64
}

func NewDispatcher(queue int, log *slog.Logger, sinks ...Sink) *Dispatcher {
	if queue <= 0 {
		queue = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan domain.SessionEvent, queue),
		timeout: 5 * time.Second,
		log:     log,
	}
}

// Notify implements room.Observer. A full queue drops the event.
func (d *Dispatcher) Notify(ev domain.SessionEvent) {
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("session event dropped", "kind", ev.Kind, "session_id", ev.Session.ID)
	}
}

func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Run delivers events until ctx is done, then drains what is already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	ctx := context.Background()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev domain.SessionEvent) {
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		if err := s.Record(sctx, ev); err != nil {
			d.log.Error("session event sink failed",
				"kind", ev.Kind, "session_id", ev.Session.ID, slog.Any("err", err))
		}
		cancel()
	}
}
