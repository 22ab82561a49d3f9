// Package quota implements the per-user daily action limits. Counters live in
// Redis keyed by user, action and IST date; this package holds the pure
// counter arithmetic and the reset-boundary computation.
package quota

import (
	"fmt"
	"time"
)

// ActionType is a gated user action.
type ActionType string

const (
	ActionProfiles ActionType = "profiles"
	ActionChats    ActionType = "chats"
	ActionLikes    ActionType = "likes"
)

// ValidAction reports whether a is a known gated action.
func ValidAction(a ActionType) bool {
	switch a {
	case ActionProfiles, ActionChats, ActionLikes:
		return true
	}
	return false
}

// ColorState is the display hint derived from remaining quota.
type ColorState string

const (
	ColorGreen  ColorState = "green"
	ColorOrange ColorState = "orange"
	ColorRed    ColorState = "red"
)

// Counter is a point-in-time view of one user's usage for one action.
type Counter struct {
	Used  int
	Limit int
}

// Remaining returns the number of actions left today, never negative.
func (c Counter) Remaining() int {
	remaining := c.Limit - c.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsLimitReached reports whether the ceiling has been hit.
func (c Counter) IsLimitReached() bool {
	return c.Remaining() == 0
}

// CanPerformAction reports whether one more action is allowed.
func (c Counter) CanPerformAction() bool {
	return c.Remaining() > 0
}

// PercentageUsed returns used/limit in percent, clamped to [0,100].
func (c Counter) PercentageUsed() int {
	if c.Limit <= 0 {
		return 100
	}
	pct := c.Used * 100 / c.Limit
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// ColorState maps remaining quota to a traffic-light hint:
// green above 60% remaining, orange between 20% and 60%, red below 20%.
func (c Counter) ColorState() ColorState {
	if c.Limit <= 0 {
		return ColorRed
	}
	remainingPct := c.Remaining() * 100 / c.Limit
	switch {
	case remainingPct > 60:
		return ColorGreen
	case remainingPct >= 20:
		return ColorOrange
	default:
		return ColorRed
	}
}

// NextReset returns the next local-midnight boundary after now in loc.
// The result is always strictly after now.
func NextReset(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, 1)
}

// DateKey returns the local date string used in counter keys. Keys carry the
// date so a counter from a previous day is simply never read again.
func DateKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}

// TimeUntilReset returns the duration until the next local midnight.
func TimeUntilReset(now time.Time, loc *time.Location) time.Duration {
	return NextReset(now, loc).Sub(now)
}

// FormatUntilReset renders a duration as "Xh Ym" (or "Ym" under an hour).
func FormatUntilReset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
