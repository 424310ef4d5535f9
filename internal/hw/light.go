package hw

import "time"

// LightConfig describes the sysfs PWM pair of the real light. Zero
// fields fall back to the stock hardware values.
type LightConfig struct {
	WarmPath string // pwm channel directory
	CoolPath string

	PeriodNanos int
	FadeSteps   int
}

func (c LightConfig) withDefaults() LightConfig {
	if c.PeriodNanos == 0 {
		c.PeriodNanos = periodFromHz(24000)
	}
	if c.FadeSteps == 0 {
		c.FadeSteps = 20
	}
	return c
}

func periodFromHz(hz int) int {
	return int(time.Second) / hz
}

// dutyForPercent converts a percentage into nanoseconds of duty. The 1%
// step is the adapter's minimum visible level; Mix never hands a live
// channel less than that.
func dutyForPercent(pct, period int) int {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return period
	}
	return period * pct / 100
}
