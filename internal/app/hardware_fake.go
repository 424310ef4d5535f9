package app

import (
	"dawnlamp/internal/config"
	"dawnlamp/internal/device"
	"dawnlamp/internal/hw"
)

// fakeHardware builds the in-process adapter set. The fake battery sits
// at a healthy level so the characteristic stays exercisable.
func fakeHardware(cfg config.HardwareConfig) device.Hardware {
	return device.Hardware{
		Display: hw.NewFakeDisplay(),
		Light:   hw.NewFakeLight(),
		Battery: hw.NewFakeBattery(87),
		Button:  hw.NewFakeButton(cfg.Button.LongPress.Duration()),
	}
}
