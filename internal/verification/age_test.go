package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeInYearsFollowsBirthdayBoundary(t *testing.T) {
	dob := time.Date(2008, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"day before 18th birthday", time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC), 17},
		{"on 18th birthday", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), 18},
		{"day after 18th birthday", time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), 18},
		{"earlier month same year", time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), 17},
		{"later month same year", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AgeInYears(dob, tt.now))
		})
	}
}

func TestAgeInYearsLeapDayBirth(t *testing.T) {
	dob := time.Date(2008, 2, 29, 0, 0, 0, 0, time.UTC)

	// In a non-leap year the birthday boundary falls on March 1.
	assert.Equal(t, 17, AgeInYears(dob, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 18, AgeInYears(dob, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestIsAdult(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsAdult(time.Date(2008, 9, 2, 0, 0, 0, 0, time.UTC), now))
	assert.True(t, IsAdult(time.Date(2008, 9, 1, 0, 0, 0, 0, time.UTC), now))
	assert.True(t, IsAdult(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), now))
}
