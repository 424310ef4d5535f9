// Package clock is the daemon's wall clock. Peers sync the time of day
// over the wireless link; rather than touching the host clock, the sync is
// held as an offset applied to every reading.
package clock

import (
	"sync"
	"time"

	"dawnlamp/internal/alarm"
)

// Clock produces wall-clock readings with the last synced offset applied.
// Safe for concurrent use; writes arrive from wireless callbacks while the
// control loop reads.
type Clock struct {
	mu     sync.Mutex
	offset time.Duration
	base   func() time.Time
}

// New returns a clock over the host time.
func New() *Clock {
	return NewWithBase(time.Now)
}

// NewWithBase returns a clock over a custom time source.
func NewWithBase(base func() time.Time) *Clock {
	return &Clock{base: base}
}

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base().Add(c.offset)
}

// Sane reports whether the current reading is past the sanity epoch.
func (c *Clock) Sane() bool {
	return alarm.Sane(c.Now())
}

// SetTimeOfDay moves the clock so it reads the given time of day, keeping
// the date of the current reading. A reading still below the sanity epoch
// carries no usable date, so the sync lands on the day after the epoch;
// that choice keeps any time of day on the sane side in every timezone,
// which is what re-arms alarm scheduling after a cold boot.
func (c *Clock) SetTimeOfDay(hour, minute, second int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.base()
	ref := base.Add(c.offset)
	if !alarm.Sane(ref) {
		ref = time.Unix(alarm.SaneEpoch+24*60*60, 0).In(base.Location())
	}

	want := time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, second, 0, base.Location())
	c.offset = want.Sub(base)
	return want
}

// Offset returns the currently applied sync offset.
func (c *Clock) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}
