package hw

import "time"

// BatteryConfig describes the sampling path of the real battery gauge.
// Zero fields fall back to the stock hardware values.
type BatteryConfig struct {
	Chip       string // gpio chip carrying the divider enable line
	EnableLine int

	RawPath       string // IIO sysfs raw attribute
	RawFull       int    // full-scale raw reading
	VrefMillivolt int

	// Divider between the battery and the ADC pad, in ohms.
	DividerTop    int
	DividerBottom int

	EmptyMillivolt int
	FullMillivolt  int

	Samples    int
	SettleTime time.Duration
	SampleGap  time.Duration
}

func (c BatteryConfig) withDefaults() BatteryConfig {
	if c.Chip == "" {
		c.Chip = "gpiochip0"
	}
	if c.RawFull == 0 {
		c.RawFull = 4095
	}
	if c.VrefMillivolt == 0 {
		c.VrefMillivolt = 3300
	}
	if c.DividerTop == 0 {
		c.DividerTop = 15100
	}
	if c.DividerBottom == 0 {
		c.DividerBottom = 5100
	}
	if c.EmptyMillivolt == 0 {
		c.EmptyMillivolt = 3300
	}
	if c.FullMillivolt == 0 {
		c.FullMillivolt = 4200
	}
	if c.Samples == 0 {
		c.Samples = 8
	}
	if c.SettleTime == 0 {
		c.SettleTime = 5 * time.Millisecond
	}
	if c.SampleGap == 0 {
		c.SampleGap = 2 * time.Millisecond
	}
	return c
}

// scaleDivider maps the ADC pad voltage back through the resistor
// divider to the battery voltage, rounding.
func scaleDivider(mv, top, bottom int) int {
	return (mv*(top+bottom) + bottom/2) / bottom
}

// percentFromMillivolt maps battery voltage onto 0-100 linearly between
// the empty and full points.
func percentFromMillivolt(mv, empty, full int) int {
	if mv <= empty {
		return 0
	}
	if mv >= full {
		return 100
	}
	return (mv - empty) * 100 / (full - empty)
}
