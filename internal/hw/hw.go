// Package hw abstracts the lamp's peripherals: the four-digit display,
// the two-channel light, the battery gauge and the user button. The real
// implementations drive Linux interfaces (GPIO character devices, sysfs
// PWM and IIO) and build only on linux; the fakes allow testing without
// hardware.
package hw

import (
	"context"
	"time"
)

// Display is the four-digit seven-segment time display.
type Display interface {
	// Show renders HH:MM with the separator dot.
	Show(hour, minute int) error
	// Clear blanks all digits.
	Clear() error
	// SetEnabled turns the panel drive on or off.
	SetEnabled(enabled bool) error
	Close() error
}

// Light is the two-channel warm/cool lamp output.
type Light interface {
	// SetMix sets both duty percentages immediately.
	SetMix(warm, cool int) error
	// SetMixFade ramps both channels to the target over fade. A later
	// mix call supersedes an unfinished ramp.
	SetMixFade(warm, cool int, fade time.Duration) error
	Off() error
	Close() error
}

// Battery samples the battery level.
type Battery interface {
	// ReadPercent returns the charge level in percent.
	ReadPercent(ctx context.Context) (int, error)
	Close() error
}

// Button classifies presses of the single user button.
type Button interface {
	// Poll samples the line and returns at most one event per call.
	Poll(now time.Time) Event
	Close() error
}

// Mix splits a brightness budget across the warm and cool channels by
// color temperature: 0 is fully cool, 100 fully warm. A channel whose
// share of the budget is non-zero never rounds down to zero percent.
func Mix(brightness, colorTemp int) (warm, cool int) {
	b := clampPercent(brightness)
	ct := clampPercent(colorTemp)
	if b == 0 {
		return 0, 0
	}
	warm = b * ct / 100
	cool = b * (100 - ct) / 100
	if ct > 0 && warm == 0 {
		warm = 1
	}
	if ct < 100 && cool == 0 {
		cool = 1
	}
	return warm, cool
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// sleepCtx sleeps for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
