package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestCounterRemaining(t *testing.T) {
	tests := []struct {
		name     string
		counter  Counter
		expected int
	}{
		{"untouched", Counter{Used: 0, Limit: 10}, 10},
		{"partially used", Counter{Used: 4, Limit: 10}, 6},
		{"at limit", Counter{Used: 10, Limit: 10}, 0},
		{"over limit never negative", Counter{Used: 12, Limit: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.counter.Remaining())
		})
	}
}

func TestCounterLimitChecks(t *testing.T) {
	c := Counter{Used: 9, Limit: 10}
	assert.True(t, c.CanPerformAction())
	assert.False(t, c.IsLimitReached())

	c.Used = 10
	assert.False(t, c.CanPerformAction())
	assert.True(t, c.IsLimitReached())
}

func TestCounterColorState(t *testing.T) {
	tests := []struct {
		name     string
		counter  Counter
		expected ColorState
	}{
		{"fresh counter is green", Counter{Used: 0, Limit: 10}, ColorGreen},
		{"just over 60 percent remaining", Counter{Used: 3, Limit: 10}, ColorGreen},
		{"60 percent remaining is orange", Counter{Used: 4, Limit: 10}, ColorOrange},
		{"20 percent remaining is orange", Counter{Used: 8, Limit: 10}, ColorOrange},
		{"below 20 percent is red", Counter{Used: 9, Limit: 10}, ColorRed},
		{"exhausted is red", Counter{Used: 10, Limit: 10}, ColorRed},
		{"zero limit is red", Counter{Used: 0, Limit: 0}, ColorRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.counter.ColorState())
		})
	}
}

func TestCounterPercentageUsed(t *testing.T) {
	assert.Equal(t, 0, Counter{Used: 0, Limit: 10}.PercentageUsed())
	assert.Equal(t, 50, Counter{Used: 5, Limit: 10}.PercentageUsed())
	assert.Equal(t, 100, Counter{Used: 10, Limit: 10}.PercentageUsed())
	assert.Equal(t, 100, Counter{Used: 15, Limit: 10}.PercentageUsed())
	assert.Equal(t, 100, Counter{Used: 0, Limit: 0}.PercentageUsed())
}

func TestNextResetIsAlwaysStrictlyAfterNow(t *testing.T) {
	loc := ist(t)

	tests := []struct {
		name string
		now  time.Time
	}{
		{"midday", time.Date(2026, 3, 15, 13, 45, 0, 0, loc)},
		{"just before midnight", time.Date(2026, 3, 15, 23, 59, 59, 0, loc)},
		{"exactly midnight", time.Date(2026, 3, 16, 0, 0, 0, 0, loc)},
		{"just after midnight", time.Date(2026, 3, 16, 0, 0, 1, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset := NextReset(tt.now, loc)
			assert.True(t, reset.After(tt.now), "reset %v must be after now %v", reset, tt.now)

			local := reset.In(loc)
			assert.Equal(t, 0, local.Hour())
			assert.Equal(t, 0, local.Minute())
			assert.Equal(t, 0, local.Second())
		})
	}
}

func TestNextResetCrossesToNextDay(t *testing.T) {
	loc := ist(t)
	now := time.Date(2026, 3, 15, 23, 30, 0, 0, loc)

	reset := NextReset(now, loc)
	assert.Equal(t, 16, reset.In(loc).Day())
	assert.Equal(t, 30*time.Minute, TimeUntilReset(now, loc))
}

func TestDateKeyChangesAtLocalMidnight(t *testing.T) {
	loc := ist(t)

	before := time.Date(2026, 3, 15, 23, 59, 59, 0, loc)
	after := time.Date(2026, 3, 16, 0, 0, 0, 0, loc)

	assert.Equal(t, "2026-03-15", DateKey(before, loc))
	assert.Equal(t, "2026-03-16", DateKey(after, loc))
	assert.NotEqual(t, DateKey(before, loc), DateKey(after, loc))
}

func TestDateKeyUsesLocalDateNotUTC(t *testing.T) {
	loc := ist(t)

	// 20:00 UTC on the 15th is already 01:30 IST on the 16th.
	now := time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-16", DateKey(now, loc))
}

func TestFormatUntilReset(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"hours and minutes", 5*time.Hour + 23*time.Minute, "5h 23m"},
		{"under an hour", 42 * time.Minute, "42m"},
		{"rounds seconds", 42*time.Minute + 31*time.Second, "43m"},
		{"zero", 0, "0m"},
		{"negative clamps to zero", -time.Minute, "0m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatUntilReset(tt.d))
		})
	}
}

func TestValidAction(t *testing.T) {
	assert.True(t, ValidAction(ActionProfiles))
	assert.True(t, ValidAction(ActionChats))
	assert.True(t, ValidAction(ActionLikes))
	assert.False(t, ValidAction(ActionType("superlikes")))
	assert.False(t, ValidAction(ActionType("")))
}
