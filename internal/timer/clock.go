package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/cookmode/internal/logger"
)

// ClockOption configures the clock.
type ClockOption func(*Clock)

// WithTickInterval sets how often the clock fires. Production uses one
// second, which is what a Manager tick means.
func WithTickInterval(d time.Duration) ClockOption {
	return func(c *Clock) {
		c.interval = d
	}
}

// Clock is the single time source for every timer. It calls fn once per
// interval from one goroutine, so timers never drift apart.
type Clock struct {
	fn       func(ctx context.Context)
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClock creates a stopped clock.
func NewClock(fn func(ctx context.Context), log *logger.Logger, opts ...ClockOption) *Clock {
	c := &Clock{
		fn:       fn,
		log:      log,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking in the background. Non-blocking; a second call
// while running is ignored.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.log.Warn("timer clock already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.done = make(chan struct{})

	go c.loop(childCtx, c.done)
	c.log.Info("timer clock started (tick=%s)", c.interval)
}

// Stop halts the clock and waits for the loop to exit, so no tick is
// delivered after Stop returns.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	done := c.done
	c.mu.Unlock()

	<-done
	c.log.Info("timer clock stopped")
}

func (c *Clock) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fn(ctx)
		}
	}
}
