// Package round implements the round engine: a countdown controller driven by
// an injected clock, a per-round state machine, and a session that sequences
// rounds over a tournament's question set.
package round

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/common"
)

// Countdown owns one timer's remaining-time state. It ticks once per second
// on the injected clock and fires its expiry callback exactly once. A
// generation counter invalidates ticks from a stopped or restarted source, so
// a stale tick can never touch a newer timer.
type Countdown struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	total     int
	remaining int
	running   bool
	gen       int
	done      chan struct{}
	onExpire  func()
	onTick    func(remaining int)
}

// NewCountdown creates an inactive controller. Use clockwork.NewRealClock()
// in production and a fake clock in tests.
func NewCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{clock: clock}
}

// OnTick registers a handler invoked after every decrement, including the
// final one to zero. Must be set before Start.
func (c *Countdown) OnTick(fn func(remaining int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// Start resets the controller to totalSeconds and begins ticking. Starting
// while already running stops the previous timing source first; only one
// source is ever active per controller.
func (c *Countdown) Start(totalSeconds int, onExpire func()) error {
	if totalSeconds <= 0 {
		return common.NewValidationError("total_seconds", "must be positive")
	}

	c.mu.Lock()
	if c.running {
		close(c.done)
	}
	c.gen++
	gen := c.gen
	c.total = totalSeconds
	c.remaining = totalSeconds
	c.running = true
	c.done = make(chan struct{})
	c.onExpire = onExpire
	done := c.done
	c.mu.Unlock()

	go c.run(gen, done)
	return nil
}

// Stop halts ticking. Calling Stop on an inactive controller is a no-op.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.gen++
	close(c.done)
}

// SetTotal replaces totalSeconds and resets remaining to the new value.
// Elapsed time is not carried over.
func (c *Countdown) SetTotal(totalSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = totalSeconds
	c.remaining = totalSeconds
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Total returns the configured duration.
func (c *Countdown) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Running reports whether a timing source is active.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// PercentRemaining projects remaining time onto 0..100. A zero total always
// yields 0, and the result is clamped so it can never go negative.
func (c *Countdown) PercentRemaining() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total == 0 {
		return 0
	}
	pct := float64(c.remaining) / float64(c.total) * 100
	if pct < 0 {
		return 0
	}
	return pct
}

func (c *Countdown) run(gen int, done chan struct{}) {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			if gen != c.gen || !c.running {
				// Stale source: a Stop or restart happened after this
				// tick was scheduled.
				c.mu.Unlock()
				return
			}

			var expire func()
			if c.remaining <= 1 {
				c.remaining = 0
				c.running = false
				expire = c.onExpire
			} else {
				c.remaining--
			}
			remaining := c.remaining
			tick := c.onTick
			c.mu.Unlock()

			if tick != nil {
				tick(remaining)
			}
			if expire != nil {
				expire()
				return
			}
		}
	}
}
