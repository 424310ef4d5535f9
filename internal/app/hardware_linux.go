//go:build linux

package app

import (
	"github.com/rs/zerolog/log"

	"dawnlamp/internal/config"
	"dawnlamp/internal/device"
	"dawnlamp/internal/hw"
)

// openHardware builds the adapter set. With hardware.fake set, or when
// an adapter has no configured path, its fake stands in so the daemon
// stays runnable on a development host.
func openHardware(cfg config.HardwareConfig) (device.Hardware, error) {
	if cfg.Fake {
		log.Warn().Msg("hardware.fake set, all adapters are faked")
		return fakeHardware(cfg), nil
	}

	var h device.Hardware

	button, err := hw.NewRealButton(cfg.Button.Chip, cfg.Button.Line, !cfg.Button.ActiveHigh, cfg.Button.LongPress.Duration())
	if err != nil {
		return h, err
	}
	h.Button = button

	display, err := hw.NewRealDisplay(cfg.Display.Chip, cfg.Display.SDALine, cfg.Display.SCLLine, cfg.Display.Intensity)
	if err != nil {
		closeHardware(h)
		return device.Hardware{}, err
	}
	h.Display = display

	light, err := hw.NewRealLight(hw.LightConfig{
		WarmPath: cfg.Light.WarmPath,
		CoolPath: cfg.Light.CoolPath,
	})
	if err != nil {
		closeHardware(h)
		return device.Hardware{}, err
	}
	h.Light = light

	battery, err := hw.NewRealBattery(hw.BatteryConfig{
		Chip:       cfg.Battery.Chip,
		EnableLine: cfg.Battery.EnableLine,
		RawPath:    cfg.Battery.RawPath,
	})
	if err != nil {
		closeHardware(h)
		return device.Hardware{}, err
	}
	h.Battery = battery

	return h, nil
}
