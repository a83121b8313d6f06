// Package timeutil normalizes every (date, time) pair the API accepts into one
// canonical representation: a UTC instant derived from the fixed business
// timezone. All stored TimeSlot and Booking timestamps go through this package,
// otherwise slot matching silently breaks across timezone boundaries.
package timeutil

import (
	"fmt"
	"time"
)

const (
	// DayFormat is the calendar-day form accepted on the wire, e.g. "2024-07-15".
	DayFormat = "2006-01-02"

	// HourFormat is the human-readable hour label, e.g. "09:00AM" or "02:00PM".
	HourFormat = "03:04PM"
)

// SlotInstant returns the canonical UTC instant for the given calendar day and
// hour-of-day interpreted in loc.
func SlotInstant(day time.Time, hour int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc).UTC()
}

// HourLabel formats an hour-of-day (0-23) as a 12-hour label.
func HourLabel(hour int) string {
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format(HourFormat)
}

// ParseHourLabel parses a 12-hour label back into an hour-of-day.
// Only whole hours are valid slot boundaries.
func ParseHourLabel(label string) (int, error) {
	t, err := time.Parse(HourFormat, label)
	if err != nil {
		return 0, fmt.Errorf("invalid time label %q: %w", label, err)
	}
	if t.Minute() != 0 {
		return 0, fmt.Errorf("invalid time label %q: slots start on the hour", label)
	}
	return t.Hour(), nil
}

// ParseDay parses a calendar day string as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DayFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return day, nil
}

// NormalizeSlot converts a wire-format (date, time label) pair into the
// canonical UTC instant used as slot identity.
func NormalizeSlot(dateStr, timeLabel string, loc *time.Location) (time.Time, error) {
	day, err := ParseDay(dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := ParseHourLabel(timeLabel)
	if err != nil {
		return time.Time{}, err
	}
	return SlotInstant(day, hour, loc), nil
}

// DayBounds returns the UTC instants spanning the business-timezone calendar
// day that contains t: [start of day, start of next day).
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// StartOfDay returns midnight of the business-timezone day containing t, in UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	start, _ := DayBounds(t, loc)
	return start
}

// DayKey renders t as the business-timezone calendar day it falls on.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayFormat)
}
