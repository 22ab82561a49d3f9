package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerRemaining(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	timer := New(30*time.Second, start)

	assert.Equal(t, 30*time.Second, timer.Remaining(start))
	assert.Equal(t, 20*time.Second, timer.Remaining(start.Add(10*time.Second)))
	assert.Equal(t, time.Duration(0), timer.Remaining(start.Add(30*time.Second)))
	assert.Equal(t, time.Duration(0), timer.Remaining(start.Add(time.Hour)))
}

func TestTimerCompletion(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	timer := New(30*time.Second, start)

	assert.True(t, timer.IsActive(start))
	assert.False(t, timer.IsComplete(start))

	assert.True(t, timer.IsActive(start.Add(29*time.Second)))
	assert.True(t, timer.IsComplete(start.Add(30*time.Second)))
	assert.False(t, timer.IsActive(start.Add(31*time.Second)))
}

func TestTimerFormatted(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	timer := New(5*time.Minute, start)

	assert.Equal(t, "5:00", timer.Formatted(start))
	assert.Equal(t, "4:30", timer.Formatted(start.Add(30*time.Second)))
	assert.Equal(t, "0:01", timer.Formatted(start.Add(4*time.Minute+59*time.Second)))
	assert.Equal(t, "0:00", timer.Formatted(start.Add(6*time.Minute)))
}

// Remaining time is derived from wall clock and start time only, so
// reconstructing the timer (as after a process restart) cannot stretch
// the window.
func TestTimerSurvivesReconstruction(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	original := New(30*time.Second, start)

	now := start.Add(18 * time.Second)
	rebuilt := Timer{Duration: original.Duration, StartedAt: original.StartedAt}

	assert.Equal(t, original.Remaining(now), rebuilt.Remaining(now))
	assert.Equal(t, 12*time.Second, rebuilt.Remaining(now))
}

func TestTimerReset(t *testing.T) {
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	timer := New(30*time.Second, start)

	later := start.Add(45 * time.Second)
	assert.True(t, timer.IsComplete(later))

	timer.Reset(later)
	assert.True(t, timer.IsActive(later))
	assert.Equal(t, 30*time.Second, timer.Remaining(later))
}
