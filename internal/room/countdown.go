package room

import (
	"context"
	"sync"
	"time"
)

// Countdown is a cancellable repeating task: OnTick fires with the full
// duration right away and then once per interval with the remaining
// seconds down to 0; OnExpire fires once after the tick for 0.
// Callbacks run on the countdown goroutine and receive its context,
// which is done once Stop is called.
type Countdown struct {
	Seconds  int
	Interval time.Duration
	OnTick   func(ctx context.Context, remaining int)
	OnExpire func(ctx context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func (c *Countdown) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errCountdownStarted
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop cancels the countdown without waiting for the goroutine.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Done is closed when the countdown goroutine has returned.
func (c *Countdown) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Countdown) run(ctx context.Context) {
	defer close(c.done)

	remaining := c.Seconds
	if remaining < 0 {
		remaining = 0
	}
	c.tick(ctx, remaining)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining--
			c.tick(ctx, remaining)
		}
	}

	if ctx.Err() == nil && c.OnExpire != nil {
		c.OnExpire(ctx)
	}
}

func (c *Countdown) tick(ctx context.Context, remaining int) {
	if ctx.Err() == nil && c.OnTick != nil {
		c.OnTick(ctx, remaining)
	}
}
