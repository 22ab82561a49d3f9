package verification

import "time"

// AdultAge is the minimum age in completed calendar years.
const AdultAge = 18

// AgeInYears computes exact calendar age: whole years from dob to now,
// decremented by one if now's month/day precedes the birthday. This is not
// floor(days/365); it follows the birthday boundary exactly.
func AgeInYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// IsAdult reports whether the person is at least AdultAge as of now.
func IsAdult(dob, now time.Time) bool {
	return AgeInYears(dob, now) >= AdultAge
}
