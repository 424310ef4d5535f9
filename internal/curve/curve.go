// Package curve maps elapsed wake-gradient fraction to brightness
// fraction. The builtin cubic ease-in keeps the early ramp gentle; an
// optional Lua script can replace the shape entirely.
package curve

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	glua "github.com/yuin/gopher-lua"
)

// Curve maps an elapsed fraction p in [0,1] to a brightness fraction in
// [0,1]. Implementations must be safe to call repeatedly from a single
// goroutine; they need not be monotonic, though the builtin is.
type Curve interface {
	At(p float64) float64
}

// CubicEaseIn is the stock wake curve, brightness = p cubed.
type CubicEaseIn struct{}

func (CubicEaseIn) At(p float64) float64 {
	p = clamp01(p)
	return p * p * p
}

// luaCurve evaluates a user script's curve(p) function. The script is
// loaded once; each evaluation pushes a fresh call. Errors fall back to
// the builtin so a broken script degrades the shape, not the alarm.
type luaCurve struct {
	state    *glua.LState
	fn       *glua.LFunction
	fallback Curve
}

// Load compiles the Lua script at path and returns a curve backed by
// its curve(p) global. Load failures are returned to the caller so
// wiring can decide between fail and fall back.
func Load(ctx context.Context, path string) (Curve, error) {
	L := glua.NewState()
	L.SetContext(ctx)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("load curve script: %w", err)
	}

	fn, ok := L.GetGlobal("curve").(*glua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("curve script %s defines no curve(p) function", path)
	}

	log.Info().Str("script", path).Msg("custom wake curve loaded")
	return &luaCurve{state: L, fn: fn, fallback: CubicEaseIn{}}, nil
}

// LoadOrBuiltin returns the script curve when path is set and loads
// cleanly, and the builtin otherwise.
func LoadOrBuiltin(ctx context.Context, path string) Curve {
	if path == "" {
		return CubicEaseIn{}
	}
	c, err := Load(ctx, path)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to builtin wake curve")
		return CubicEaseIn{}
	}
	return c
}

func (c *luaCurve) At(p float64) float64 {
	p = clamp01(p)

	if err := c.state.CallByParam(glua.P{Fn: c.fn, NRet: 1, Protect: true}, glua.LNumber(p)); err != nil {
		log.Warn().Err(err).Msg("curve script call failed")
		return c.fallback.At(p)
	}
	ret := c.state.Get(-1)
	c.state.Pop(1)

	n, ok := ret.(glua.LNumber)
	if !ok || math.IsNaN(float64(n)) {
		log.Warn().Str("got", ret.Type().String()).Msg("curve script returned a non-number")
		return c.fallback.At(p)
	}
	return clamp01(float64(n))
}

// Close releases the script state. The builtin needs no closing.
func Close(c Curve) {
	if lc, ok := c.(*luaCurve); ok {
		lc.state.Close()
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
