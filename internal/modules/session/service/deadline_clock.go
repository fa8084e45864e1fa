package service

import (
	"sync"
	"time"

	"raterc/internal/modules/session/domain"
	"raterc/internal/platform/clock"
)

const tickInterval = time.Second

// DeadlineClock counts down to an absolute end instant. It publishes the
// remaining seconds once on arming and then on every tick, calls onExpire the
// first time the remainder reaches zero, and stops on its own afterwards.
type DeadlineClock struct {
	clock    clock.Clock
	tickers  clock.TickerFactory
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

func NewDeadlineClock(clk clock.Clock, tickers clock.TickerFactory) *DeadlineClock {
	return &DeadlineClock{clock: clk, tickers: tickers, interval: tickInterval}
}

// Arm replaces any previous schedule. Callbacks run on the clock goroutine.
func (c *DeadlineClock) Arm(end time.Time, onTick func(domain.Countdown), onExpire func()) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.running = true
	c.mu.Unlock()

	go c.run(end.UTC(), stop, onTick, onExpire)
}

// Stop cancels the schedule without waiting for the clock goroutine.
func (c *DeadlineClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.running = false
}

func (c *DeadlineClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *DeadlineClock) run(end time.Time, stop chan struct{}, onTick func(domain.Countdown), onExpire func()) {
	ticker := c.tickers.NewTicker(c.interval)
	defer ticker.Stop()

	last := -1
	for {
		remaining := domain.RemainingSeconds(end, c.clock.Now())
		if last >= 0 && remaining > last {
			remaining = last
		}
		last = remaining

		select {
		case <-stop:
			return
		default:
		}
		if onTick != nil {
			onTick(domain.NewCountdown(remaining))
		}
		if remaining == 0 {
			if c.finish(stop) && onExpire != nil {
				onExpire()
			}
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C():
		}
	}
}

// finish retires the schedule identified by stop. It reports false when the
// schedule was stopped or replaced in the meantime.
func (c *DeadlineClock) finish(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != stop {
		return false
	}
	c.stop = nil
	c.running = false
	return true
}
