package exam

import (
	"sync"
	"time"
)

// CriticalThreshold is the remaining time at which the countdown enters its
// critical presentation state. Presentation-only, no callback.
const CriticalThreshold = 60 * time.Second

// Countdown is the single exam-wide timer, anchored to startTime + total.
// Remaining time is recomputed from the wall clock on every tick rather than
// decremented, so it survives interval throttling and coarse tick rates:
//
//	remaining = max(0, total - (now - start))
//
// The warning callback fires exactly once per session when remaining drops
// to the warning threshold; the time-up callback fires exactly once when
// remaining hits zero, after which the countdown stops ticking.
type Countdown struct {
	clock  Clock
	start  time.Time
	total  time.Duration
	warnAt time.Duration

	onWarning func()
	onTimeUp  func()

	mu      sync.Mutex
	warned  bool
	expired bool
}

// NewCountdown creates a countdown anchored at start. Either callback may
// be nil.
func NewCountdown(clock Clock, start time.Time, total, warnAt time.Duration, onWarning, onTimeUp func()) *Countdown {
	return &Countdown{
		clock:     clock,
		start:     start,
		total:     total,
		warnAt:    warnAt,
		onWarning: onWarning,
		onTimeUp:  onTimeUp,
	}
}

// Remaining returns the time left, clamped at zero.
func (c *Countdown) Remaining() time.Duration {
	elapsed := c.clock.Now().Sub(c.start)
	if elapsed >= c.total {
		return 0
	}
	return c.total - elapsed
}

// RemainingSeconds returns the whole seconds left.
func (c *Countdown) RemainingSeconds() int {
	return int(c.Remaining() / time.Second)
}

// Critical reports whether the countdown is in its final minute.
func (c *Countdown) Critical() bool {
	return c.Remaining() <= CriticalThreshold
}

// Tick evaluates the thresholds once and fires any pending callbacks.
// Returns true when the countdown has expired. Safe to call after expiry;
// callbacks never fire twice.
func (c *Countdown) Tick() bool {
	remaining := c.Remaining()

	c.mu.Lock()
	if c.expired {
		c.mu.Unlock()
		return true
	}

	fireWarning := false
	fireTimeUp := false

	if !c.warned && remaining <= c.warnAt {
		c.warned = true
		fireWarning = true
	}
	if remaining == 0 {
		c.expired = true
		fireTimeUp = true
	}
	c.mu.Unlock()

	// Callbacks run outside the lock; they may call back into the session.
	if fireWarning && c.onWarning != nil {
		c.onWarning()
	}
	if fireTimeUp && c.onTimeUp != nil {
		c.onTimeUp()
	}
	return fireTimeUp
}

// Stop expires the countdown without firing time-up. Idempotent; required
// on every session exit path so no callback fires into a torn-down session.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.expired = true
	c.mu.Unlock()
}
