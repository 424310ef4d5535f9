//go:build linux

package hw

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const ch455HalfPeriod = 5 * time.Microsecond

// RealDisplay drives the CH455G over two open-drain lines. Sleep
// granularity makes the bus slow, which the chip tolerates; it has no
// minimum clock.
type RealDisplay struct {
	sda *gpiocdev.Line
	scl *gpiocdev.Line
	sys byte
}

// NewRealDisplay requests the bus lines, programs the system parameter
// and blanks the panel.
func NewRealDisplay(chip string, sdaOffset, sclOffset, intensity int) (*RealDisplay, error) {
	sda, err := gpiocdev.RequestLine(chip, sdaOffset, gpiocdev.AsOutput(1), gpiocdev.AsOpenDrain)
	if err != nil {
		return nil, fmt.Errorf("request display sda %s:%d: %w", chip, sdaOffset, err)
	}
	scl, err := gpiocdev.RequestLine(chip, sclOffset, gpiocdev.AsOutput(1), gpiocdev.AsOpenDrain)
	if err != nil {
		sda.Close()
		return nil, fmt.Errorf("request display scl %s:%d: %w", chip, sclOffset, err)
	}

	d := &RealDisplay{sda: sda, scl: scl, sys: ch455Sys(intensity, true, false)}
	if err := d.write2(ch455SysParam, d.sys); err != nil {
		sda.Close()
		scl.Close()
		return nil, fmt.Errorf("display init: %w", err)
	}
	if err := d.Clear(); err != nil {
		sda.Close()
		scl.Close()
		return nil, fmt.Errorf("display init: %w", err)
	}
	return d, nil
}

func (d *RealDisplay) Show(hour, minute int) error {
	digs, err := timeDigits(hour, minute)
	if err != nil {
		return err
	}
	return d.writeDigits(digs)
}

func (d *RealDisplay) Clear() error {
	return d.writeDigits([4]byte{})
}

func (d *RealDisplay) SetEnabled(enabled bool) error {
	sys := d.sys &^ ch455Enable
	if enabled {
		sys |= ch455Enable
	}
	d.sys = sys
	return d.write2(ch455SysParam, d.sys)
}

// Close blanks and sleeps the panel, parks the bus lines low and
// releases them.
func (d *RealDisplay) Close() error {
	_ = d.writeDigits([4]byte{})
	d.sys = (d.sys &^ ch455Enable) | ch455Sleep
	_ = d.write2(ch455SysParam, d.sys)
	_ = d.sda.SetValue(0)
	_ = d.scl.SetValue(0)

	errSDA := d.sda.Close()
	errSCL := d.scl.Close()
	if errSDA != nil {
		return errSDA
	}
	return errSCL
}

func (d *RealDisplay) writeDigits(digs [4]byte) error {
	cmds := [4]byte{ch455Digit0, ch455Digit1, ch455Digit2, ch455Digit3}
	for i, cmd := range cmds {
		if err := d.write2(cmd, digs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *RealDisplay) write2(b1, b2 byte) error {
	if err := d.start(); err != nil {
		return err
	}
	if err := d.writeByte(b1); err != nil {
		return err
	}
	if err := d.writeByte(b2); err != nil {
		return err
	}
	return d.stop()
}

func (d *RealDisplay) start() error {
	if err := d.sda.SetValue(1); err != nil {
		return err
	}
	if err := d.scl.SetValue(1); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	if err := d.sda.SetValue(0); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	return d.scl.SetValue(0)
}

func (d *RealDisplay) stop() error {
	if err := d.sda.SetValue(0); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	if err := d.scl.SetValue(1); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	if err := d.sda.SetValue(1); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	return nil
}

func (d *RealDisplay) writeByte(b byte) error {
	for i := 7; i >= 0; i-- {
		if err := d.writeBit(b >> i & 1); err != nil {
			return err
		}
	}
	// The ack bit is fixed high; the chip never drives SDA.
	return d.writeBit(1)
}

func (d *RealDisplay) writeBit(bit byte) error {
	if err := d.sda.SetValue(int(bit)); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	if err := d.scl.SetValue(1); err != nil {
		return err
	}
	time.Sleep(ch455HalfPeriod)
	return d.scl.SetValue(0)
}
