package device

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"dawnlamp/internal/curve"
	"dawnlamp/internal/hw"
	"dawnlamp/internal/journal"
)

// outputState tracks what the loop last pushed to the adapters so a
// tick that changes nothing issues no hardware calls.
type outputState struct {
	lightOn    bool
	warm, cool int

	displayOn bool
	shownHour int
	shownMin  int
	everShown bool
}

// output is one tick's desired adapter state, computed under the mutex
// and applied outside it.
type output struct {
	lightOn    bool
	warm, cool int
	fade       time.Duration

	displayOn bool
	hour, min int
}

// Run drives the control loop until ctx is cancelled. The loop wakes on
// the poll tick or early on Kick, polls the button, steps the state
// machine and pushes the resulting display and light state.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().Dur("poll", o.cfg.PollInterval).Msg("device loop started")
	o.record(journal.EventBoot, map[string]any{"boot_id": o.cfg.BootID})
	o.publishState()

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.shutdownOutputs()
			log.Info().Msg("device loop stopped")
			return nil
		case <-ticker.C:
		case <-o.wake:
		}

		o.tick(o.clk.Now())
	}
}

// tick runs one state-machine step.
func (o *Orchestrator) tick(now time.Time) {
	ev := o.hw.Button.Poll(now)

	o.mu.Lock()
	before := o.mode
	o.stepLocked(now, ev)
	after := o.mode
	out := o.desiredOutputLocked(now)
	o.mu.Unlock()

	if after != before {
		log.Info().Str("from", before.String()).Str("to", after.String()).Stringer("button", ev).Msg("mode changed")
		o.record(journal.EventModeChange, map[string]any{"from": before.String(), "to": after.String()})
		if after == ModeAlarmGradient {
			o.record(journal.EventAlarmFired, nil)
			o.emitEvent("alarm_fired", nil)
		}
		o.publishState()
	}

	o.apply(out)
}

// stepLocked applies one button event and the clock to the mode.
func (o *Orchestrator) stepLocked(now time.Time, ev hw.Event) {
	switch ev {
	case hw.EventLong:
		// Long press toggles the manual light from any mode, including
		// mid-window show-time and a running gradient.
		if o.mode == ModeManualLight {
			o.enterLocked(ModeActiveIdle, now)
		} else {
			o.enterLocked(ModeManualLight, now)
		}
		return
	case hw.EventShort:
		switch o.mode {
		case ModeActiveIdle, ModeManualLight:
			o.prevMode = o.mode
			o.showUntil = now.Add(o.cfg.ShowTimeWindow)
			o.mode = ModeShowTime
		case ModeShowTime:
			// Another press keeps the clock up a full window longer.
			o.showUntil = now.Add(o.cfg.ShowTimeWindow)
		case ModeAlarmGradient:
			// Cancel the ramp, or close the held light after it finished.
			o.enterLocked(ModeActiveIdle, now)
		}
		return
	}

	switch o.mode {
	case ModeShowTime:
		if !now.Before(o.showUntil) {
			o.mode = o.prevMode
		}
	case ModeActiveIdle:
		if o.nextOK && !now.Before(o.nextStart) {
			o.enterLocked(ModeAlarmGradient, now)
		}
	}
}

// enterLocked switches modes and does the entry bookkeeping.
func (o *Orchestrator) enterLocked(next Mode, now time.Time) {
	o.mode = next
	switch next {
	case ModeAlarmGradient:
		o.gradStart = now
		// The ramp always takes the full configured duration, even when
		// the clock has drifted past the nominal start; a collapsed ramp
		// would defeat the point of a gradual wake.
		o.gradDur = o.set.SunriseDuration()
		o.recomputeLocked(now)
	case ModeActiveIdle:
		o.recomputeLocked(now)
	}
}

// desiredOutputLocked renders the current mode into adapter state.
func (o *Orchestrator) desiredOutputLocked(now time.Time) output {
	var out output

	// The light follows the mode underneath a show-time window, so a
	// manual light stays lit while the clock is up.
	lightMode := o.mode
	if o.mode == ModeShowTime {
		lightMode = o.prevMode
	}

	switch lightMode {
	case ModeManualLight:
		out.lightOn = true
		out.warm, out.cool = hw.Mix(o.set.WakeBright, o.set.ColorTemp)
		out.fade = manualFadeIn
	case ModeAlarmGradient:
		b := gradientBrightness(o.curve, now.Sub(o.gradStart), o.gradDur, o.set.WakeBright)
		if b > 0 {
			out.lightOn = true
			out.warm, out.cool = hw.Mix(b, o.set.ColorTemp)
		}
	}

	// The clock is visible in every mode with something happening.
	if o.mode != ModeActiveIdle {
		out.displayOn = true
		out.hour, out.min = now.Hour(), now.Minute()
	}
	return out
}

// gradientBrightness maps elapsed ramp time to a brightness percent.
// Once the ramp has started the published value never drops to zero,
// and at or past the full duration it is exactly the target.
func gradientBrightness(c curve.Curve, elapsed, total time.Duration, target int) int {
	if elapsed <= 0 || target <= 0 {
		return 0
	}
	if elapsed >= total {
		return target
	}
	p := float64(elapsed) / float64(total)
	b := int(math.Round(c.At(p) * float64(target)))
	if b < 1 {
		b = 1
	}
	if b > target {
		b = target
	}
	return b
}

// apply pushes the desired state to the adapters, skipping calls whose
// target state is already live. Adapter failures are logged and the
// next tick retries naturally.
func (o *Orchestrator) apply(out output) {
	switch {
	case out.lightOn && (!o.out.lightOn || out.warm != o.out.warm || out.cool != o.out.cool):
		var err error
		if out.fade > 0 && !o.out.lightOn {
			err = o.hw.Light.SetMixFade(out.warm, out.cool, out.fade)
		} else {
			err = o.hw.Light.SetMix(out.warm, out.cool)
		}
		if err != nil {
			log.Warn().Err(err).Int("warm", out.warm).Int("cool", out.cool).Msg("light update failed")
		} else {
			o.out.lightOn = true
			o.out.warm, o.out.cool = out.warm, out.cool
		}
	case !out.lightOn && o.out.lightOn:
		if err := o.hw.Light.Off(); err != nil {
			log.Warn().Err(err).Msg("light off failed")
		} else {
			o.out.lightOn = false
			o.out.warm, o.out.cool = 0, 0
		}
	}

	switch {
	case out.displayOn:
		if !o.out.displayOn {
			if err := o.hw.Display.SetEnabled(true); err != nil {
				log.Warn().Err(err).Msg("display enable failed")
				break
			}
			o.out.displayOn = true
		}
		if !o.out.everShown || out.hour != o.out.shownHour || out.min != o.out.shownMin {
			if err := o.hw.Display.Show(out.hour, out.min); err != nil {
				log.Warn().Err(err).Msg("display show failed")
				break
			}
			o.out.shownHour, o.out.shownMin = out.hour, out.min
			o.out.everShown = true
		}
	case o.out.displayOn:
		if err := o.hw.Display.Clear(); err != nil {
			log.Warn().Err(err).Msg("display clear failed")
		}
		if err := o.hw.Display.SetEnabled(false); err != nil {
			log.Warn().Err(err).Msg("display disable failed")
		}
		o.out.displayOn = false
		o.out.everShown = false
	}
}

// shutdownOutputs parks the adapters dark on loop exit.
func (o *Orchestrator) shutdownOutputs() {
	if err := o.hw.Light.Off(); err != nil {
		log.Debug().Err(err).Msg("light off on shutdown failed")
	}
	if err := o.hw.Display.Clear(); err != nil {
		log.Debug().Err(err).Msg("display clear on shutdown failed")
	}
	if err := o.hw.Display.SetEnabled(false); err != nil {
		log.Debug().Err(err).Msg("display disable on shutdown failed")
	}
}
