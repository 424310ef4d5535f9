package hw

import "time"

// Event is the outcome of one button poll.
type Event uint8

const (
	EventNone Event = iota
	EventShort
	EventLong
)

func (e Event) String() string {
	switch e {
	case EventShort:
		return "short"
	case EventLong:
		return "long"
	}
	return "none"
}

// DefaultLongPress is the hold threshold for a long press.
const DefaultLongPress = 2 * time.Second

// classifier turns sampled button levels into press events. A long press
// is reported exactly once, while the button is still held, as soon as
// the threshold is reached; the matching release is silent. A short
// press is reported on release.
type classifier struct {
	threshold time.Duration

	pressed  bool
	start    time.Time
	longDone bool
}

func newClassifier(threshold time.Duration) classifier {
	if threshold <= 0 {
		threshold = DefaultLongPress
	}
	return classifier{threshold: threshold}
}

func (c *classifier) update(pressed bool, now time.Time) Event {
	switch {
	case pressed && !c.pressed:
		c.pressed = true
		c.start = now
		c.longDone = false
	case pressed && !c.longDone:
		if now.Sub(c.start) >= c.threshold {
			c.longDone = true
			return EventLong
		}
	case !pressed && c.pressed:
		held := now.Sub(c.start)
		c.pressed = false
		c.start = time.Time{}
		if c.longDone || held >= c.threshold {
			c.longDone = false
			return EventNone
		}
		return EventShort
	}
	return EventNone
}
