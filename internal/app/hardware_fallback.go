//go:build !linux

package app

import (
	"github.com/rs/zerolog/log"

	"dawnlamp/internal/config"
	"dawnlamp/internal/device"
)

// openHardware on non-linux hosts always fakes the adapters; the real
// ones need the GPIO character device and sysfs.
func openHardware(cfg config.HardwareConfig) (device.Hardware, error) {
	log.Warn().Msg("no gpio support on this platform, all adapters are faked")
	return fakeHardware(cfg), nil
}
