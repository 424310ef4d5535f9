//go:build linux

package hw

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads the user button through the GPIO character device.
type RealButton struct {
	line      *gpiocdev.Line
	activeLow bool
	cls       classifier
}

// NewRealButton requests the button line. The stock hardware wires the
// button to ground, so active-low with the internal pull-up is the
// default wiring.
func NewRealButton(chip string, offset int, activeLow bool, threshold time.Duration) (*RealButton, error) {
	bias := gpiocdev.WithPullUp
	if !activeLow {
		bias = gpiocdev.WithPullDown
	}
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput, bias)
	if err != nil {
		return nil, fmt.Errorf("request button line %s:%d: %w", chip, offset, err)
	}
	return &RealButton{line: line, activeLow: activeLow, cls: newClassifier(threshold)}, nil
}

// Poll samples the line. A read failure freezes the classifier rather
// than synthesizing a release.
func (b *RealButton) Poll(now time.Time) Event {
	raw, err := b.line.Value()
	if err != nil {
		log.Debug().Err(err).Msg("button read failed")
		return EventNone
	}
	pressed := raw != 0
	if b.activeLow {
		pressed = raw == 0
	}
	return b.cls.update(pressed, now)
}

func (b *RealButton) Close() error {
	return b.line.Close()
}
