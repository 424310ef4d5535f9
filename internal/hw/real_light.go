//go:build linux

package hw

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RealLight drives the warm/cool PWM pair through exported sysfs pwm
// channels. Fades are stepped in software from a helper goroutine; a
// newer mix call bumps the generation counter and the stale fade stops
// at its next step.
type RealLight struct {
	cfg LightConfig

	mu  sync.Mutex
	gen uint64
}

// NewRealLight opens the two pwm channel directories, programs the
// period and enables both channels at zero duty.
func NewRealLight(cfg LightConfig) (*RealLight, error) {
	cfg = cfg.withDefaults()
	if cfg.WarmPath == "" || cfg.CoolPath == "" {
		return nil, fmt.Errorf("light pwm paths not configured")
	}

	l := &RealLight{cfg: cfg}
	for _, dir := range []string{cfg.WarmPath, cfg.CoolPath} {
		if err := writePWMAttr(dir, "period", cfg.PeriodNanos); err != nil {
			return nil, err
		}
		if err := writePWMAttr(dir, "duty_cycle", 0); err != nil {
			return nil, err
		}
		if err := writePWMAttr(dir, "enable", 1); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *RealLight) SetMix(warm, cool int) error {
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()
	return l.apply(warm, cool)
}

// SetMixFade ramps both channels to the target in fixed steps spread
// over fade. The first step lands immediately so a short fade is never
// invisible.
func (l *RealLight) SetMixFade(warm, cool int, fade time.Duration) error {
	if fade <= 0 {
		return l.SetMix(warm, cool)
	}

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	steps := l.cfg.FadeSteps
	startWarm, startCool := l.currentPercents()
	go func() {
		for i := 1; i <= steps; i++ {
			l.mu.Lock()
			stale := l.gen != gen
			l.mu.Unlock()
			if stale {
				return
			}
			w := startWarm + (warm-startWarm)*i/steps
			c := startCool + (cool-startCool)*i/steps
			if err := l.apply(w, c); err != nil {
				log.Debug().Err(err).Msg("fade step failed")
				return
			}
			if i < steps {
				time.Sleep(fade / time.Duration(steps))
			}
		}
	}()
	return nil
}

func (l *RealLight) Off() error {
	return l.SetMix(0, 0)
}

// Close parks both channels dark and disabled.
func (l *RealLight) Close() error {
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()

	var firstErr error
	for _, dir := range []string{l.cfg.WarmPath, l.cfg.CoolPath} {
		if err := writePWMAttr(dir, "duty_cycle", 0); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := writePWMAttr(dir, "enable", 0); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *RealLight) apply(warm, cool int) error {
	if err := writePWMAttr(l.cfg.WarmPath, "duty_cycle", dutyForPercent(warm, l.cfg.PeriodNanos)); err != nil {
		return err
	}
	return writePWMAttr(l.cfg.CoolPath, "duty_cycle", dutyForPercent(cool, l.cfg.PeriodNanos))
}

// currentPercents reads the live duty back so a fade starts from the
// real output, not an assumed one. Read failures start the fade from
// dark, which only makes the ramp slightly more gentle.
func (l *RealLight) currentPercents() (warm, cool int) {
	return readPWMPercent(l.cfg.WarmPath, l.cfg.PeriodNanos), readPWMPercent(l.cfg.CoolPath, l.cfg.PeriodNanos)
}

func readPWMPercent(dir string, period int) int {
	raw, err := os.ReadFile(filepath.Join(dir, "duty_cycle"))
	if err != nil {
		return 0
	}
	duty, err := strconv.Atoi(string(trimPWM(raw)))
	if err != nil || period <= 0 {
		return 0
	}
	return duty * 100 / period
}

func writePWMAttr(dir, attr string, value int) error {
	path := filepath.Join(dir, attr)
	if err := os.WriteFile(path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func trimPWM(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == ' ') {
		b = b[:len(b)-1]
	}
	return b
}
