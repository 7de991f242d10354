// Package timeutil provides the wall-clock arithmetic underlying shift and
// slot computations. All functions here operate on HH:mm times of day or on
// calendar dates; none of them consult the live clock.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

var hhmmRegex = regexp.MustCompile(`^([0-9]{2}):([0-9]{2})$`)

// FormatError reports a time-of-day string that does not match the HH:mm
// 24-hour pattern.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: expected HH:mm 24-hour format", e.Value)
}

// ToMinutes parses an HH:mm string into minutes since midnight. The input
// must be exactly two 2-digit groups separated by a colon, with the hour in
// 00-23 and the minute in 00-59.
func ToMinutes(value string) (int, error) {
	m := hhmmRegex.FindStringSubmatch(value)
	if m == nil {
		return 0, &FormatError{Value: value}
	}

	var hour, minute int
	fmt.Sscanf(value, "%02d:%02d", &hour, &minute)
	if hour > 23 || minute > 59 {
		return 0, &FormatError{Value: value}
	}

	return hour*60 + minute, nil
}

// FromMinutes renders minutes since midnight back into HH:mm.
func FromMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatClock renders the time-of-day component of t as HH:mm.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// StartOfDay returns t truncated to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AtMinutes combines the calendar date of day with a time-of-day given in
// minutes since midnight. Seconds and sub-second components are zeroed.
func AtMinutes(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// IsMidnight reports whether t has a zero hour and minute component.
func IsMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0
}

// DaysBetween returns the whole-day distance between the dates of a and b,
// ignoring time-of-day. Positive when b is after a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}
