// Package countdown implements a restart-safe countdown timer. Only the start
// time is persisted; remaining time is always recomputed from the clock, so a
// process restart or duplicate request cannot stretch the window.
package countdown

import (
	"fmt"
	"time"
)

// Timer is a fixed-duration countdown anchored at StartedAt.
type Timer struct {
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// New starts a timer at now.
func New(duration time.Duration, now time.Time) Timer {
	return Timer{Duration: duration, StartedAt: now}
}

// Remaining returns duration - (now - start), clamped to zero.
func (t Timer) Remaining(now time.Time) time.Duration {
	remaining := t.Duration - now.Sub(t.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsComplete reports whether the countdown has reached zero.
func (t Timer) IsComplete(now time.Time) bool {
	return t.Remaining(now) == 0
}

// IsActive reports whether the countdown is still running.
func (t Timer) IsActive(now time.Time) bool {
	return !t.IsComplete(now)
}

// Formatted renders the remaining time as "m:ss".
func (t Timer) Formatted(now time.Time) string {
	remaining := t.Remaining(now).Round(time.Second)
	minutes := int(remaining.Minutes())
	seconds := int(remaining.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Reset restarts the countdown at now.
func (t *Timer) Reset(now time.Time) {
	t.StartedAt = now
}
