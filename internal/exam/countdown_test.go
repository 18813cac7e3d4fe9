package exam

import (
	"testing"
	"time"
)

func TestCountdown_RemainingIsWallClockDerived(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute, nil, nil)

	if c.Remaining() != 45*time.Minute {
		t.Fatalf("at start: got %v", c.Remaining())
	}

	clock.Advance(20 * time.Minute)
	if c.Remaining() != 25*time.Minute {
		t.Fatalf("after 20m: got %v", c.Remaining())
	}
	if c.RemainingSeconds() != 1500 {
		t.Fatalf("seconds: got %d", c.RemainingSeconds())
	}

	// Exactly at the deadline.
	clock.Advance(25 * time.Minute)
	if c.Remaining() != 0 {
		t.Fatalf("at deadline: got %v", c.Remaining())
	}

	// Never negative, no matter how late the observer.
	clock.Advance(3 * time.Hour)
	if c.Remaining() != 0 {
		t.Fatalf("past deadline: got %v", c.Remaining())
	}
}

// Remaining time is recomputed from the anchor, not decremented, so missed
// or throttled ticks cannot stretch the exam.
func TestCountdown_SurvivesMissedTicks(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute, nil, nil)

	// No Tick calls at all for 44 minutes.
	clock.Advance(44 * time.Minute)
	if c.Remaining() != time.Minute {
		t.Fatalf("after silent 44m: got %v", c.Remaining())
	}
}

func TestCountdown_WarningFiresOnce(t *testing.T) {
	clock := newFakeClock()
	warnings := 0
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute,
		func() { warnings++ }, nil)

	clock.Advance(39 * time.Minute)
	c.Tick()
	if warnings != 0 {
		t.Fatalf("fired before threshold: %d", warnings)
	}

	clock.Advance(time.Minute) // exactly 5m remaining
	c.Tick()
	if warnings != 1 {
		t.Fatalf("at threshold: want 1, got %d", warnings)
	}

	clock.Advance(time.Minute)
	c.Tick()
	c.Tick()
	if warnings != 1 {
		t.Fatalf("must fire once per session: got %d", warnings)
	}
}

func TestCountdown_TimeUpFiresOnce(t *testing.T) {
	clock := newFakeClock()
	timeUps := 0
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute,
		nil, func() { timeUps++ })

	clock.Advance(45 * time.Minute)
	if !c.Tick() {
		t.Fatal("Tick must report expiry at the deadline")
	}
	if timeUps != 1 {
		t.Fatalf("time-up: want 1, got %d", timeUps)
	}

	if !c.Tick() {
		t.Fatal("Tick must keep reporting expiry")
	}
	if timeUps != 1 {
		t.Fatalf("time-up must fire once: got %d", timeUps)
	}
}

// A tick that lands past both thresholds fires the warning and the expiry
// in order on the same evaluation.
func TestCountdown_LateTickFiresBothCallbacks(t *testing.T) {
	clock := newFakeClock()
	var order []string
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute,
		func() { order = append(order, "warning") },
		func() { order = append(order, "time-up") })

	clock.Advance(50 * time.Minute)
	c.Tick()

	if len(order) != 2 || order[0] != "warning" || order[1] != "time-up" {
		t.Fatalf("callback order: %v", order)
	}
}

func TestCountdown_Critical(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute, nil, nil)

	clock.Advance(43 * time.Minute)
	if c.Critical() {
		t.Fatal("2m remaining is not critical")
	}
	clock.Advance(time.Minute)
	if !c.Critical() {
		t.Fatal("60s remaining is critical")
	}
	clock.Advance(5 * time.Minute)
	if !c.Critical() {
		t.Fatal("expired stays critical")
	}
}

func TestCountdown_StopSuppressesCallbacks(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	c := NewCountdown(clock, clock.Now(), 45*time.Minute, 5*time.Minute,
		func() { fired++ }, func() { fired++ })

	c.Stop()
	c.Stop() // idempotent

	clock.Advance(time.Hour)
	if !c.Tick() {
		t.Fatal("Tick must report expiry after Stop")
	}
	if fired != 0 {
		t.Fatalf("no callback may fire into a stopped countdown: got %d", fired)
	}
}
