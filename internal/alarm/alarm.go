// Package alarm computes when the next wake gradient should begin. It is
// pure arithmetic over a supplied wall-clock reading, so the orchestrator
// can recompute the schedule as often as it likes.
package alarm

import "time"

const (
	// SaneEpoch is the earliest wall-clock reading treated as real time
	// (2023-01-01 00:00:00 UTC). An RTC that lost power reports some time
	// near the Unix epoch, far below this line.
	SaneEpoch int64 = 1672531200

	// FallbackDelay is returned while the alarm cannot be scheduled, short
	// enough that a clock correction or re-enable is picked up promptly.
	FallbackDelay = 60 * time.Second

	minDelay = time.Second
)

// Sane reports whether t is past the sanity epoch.
func Sane(t time.Time) bool {
	return t.Unix() >= SaneEpoch
}

// StartTime returns the absolute time the next wake gradient begins: the
// alarm time minus the sunrise lead, today, rolled forward a day if that
// moment has already passed. ok is false while the alarm is disabled or
// the clock is not sane.
func StartTime(now time.Time, hour, minute int, enabled bool, sunrise time.Duration) (time.Time, bool) {
	if !enabled || !Sane(now) {
		return time.Time{}, false
	}

	alarmAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	start := alarmAt.Add(-sunrise)
	if !start.After(now) {
		start = start.Add(24 * time.Hour)
	}
	return start, true
}

// NextWake returns how long to wait before the next gradient start. The
// result is never below one second, so an alarm landing exactly on the
// current instant schedules for the next day instead of refiring in a loop.
func NextWake(now time.Time, hour, minute int, enabled bool, sunrise time.Duration) time.Duration {
	start, ok := StartTime(now, hour, minute, enabled, sunrise)
	if !ok {
		return FallbackDelay
	}

	d := start.Sub(now)
	if d < minDelay {
		d = minDelay
	}
	return d
}
