package hw

import "fmt"

// CH455 command bytes per the WCH datasheet. Every command is one
// two-byte transfer with a fixed-high ack bit.
const (
	ch455SysParam byte = 0x48
	ch455Digit0   byte = 0x68
	ch455Digit1   byte = 0x6A
	ch455Digit2   byte = 0x6C
	ch455Digit3   byte = 0x6E

	// sys param layout: [KOFF][INTENS:3][7SEG][SLEEP]0[ENA]
	ch455Enable         byte = 1 << 0
	ch455Sleep          byte = 1 << 2
	ch455SevenSeg       byte = 1 << 3
	ch455IntensityShift      = 4
	ch455KeyscanOff     byte = 1 << 7
)

// Segment patterns for 0-9, bit0..6 = A..G, bit7 the dot.
var segDigits = [10]byte{
	0x3F, 0x06, 0x5B, 0x4F, 0x66,
	0x6D, 0x7D, 0x07, 0x7F, 0x6F,
}

const segDot byte = 0x80

// ch455Sys builds the system parameter byte. Intensity runs 0-7 where 0
// means full drive per the datasheet encoding. Keyscan stays off and
// 8-seg mode (7SEG clear) keeps the dot usable.
func ch455Sys(intensity int, enabled, sleep bool) byte {
	b := ch455KeyscanOff
	b |= byte(intensity&0x7) << ch455IntensityShift
	if sleep {
		b |= ch455Sleep
	}
	if enabled {
		b |= ch455Enable
	}
	return b
}

// timeDigits renders HH:MM into the four digit registers, left to right.
// The module has no colon, only a single dot on the hours-units digit.
func timeDigits(hour, minute int) ([4]byte, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return [4]byte{}, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	return [4]byte{
		segDigits[hour/10],
		segDigits[hour%10] | segDot,
		segDigits[minute/10],
		segDigits[minute%10],
	}, nil
}
