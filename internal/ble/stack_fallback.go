//go:build !ble

package ble

import "github.com/rs/zerolog/log"

// NewStack returns the in-process fake. Builds without the ble tag run
// the full session against it, which keeps the binary usable on hosts
// without a controller.
func NewStack() (Stack, error) {
	log.Warn().Msg("built without ble tag, wireless stack is faked")
	return NewFakeStack(), nil
}
