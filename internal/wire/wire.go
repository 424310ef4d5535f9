// Package wire normalizes the loosely formatted payloads that assorted
// client tools write to the lamp's characteristics. Each decoder tries a
// fixed list of encodings in priority order; the first structural match
// wins, and a matched payload that fails range validation is rejected
// without consulting the more permissive encodings below it.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBadEncoding reports a payload matching none of the accepted encodings.
	ErrBadEncoding = errors.New("payload matches no accepted encoding")
	// ErrOutOfRange reports a structurally valid payload whose value is out of range.
	ErrOutOfRange = errors.New("value out of range")
)

// Alarm is the canonical decoded form of an alarm time/enable write.
type Alarm struct {
	Hour    int
	Minute  int
	Enabled bool
}

// Digits renders the alarm in its canonical five-digit wire form (HHMME),
// the form echoed back on characteristic reads.
func (a Alarm) Digits() []byte {
	e := byte('0')
	if a.Enabled {
		e = '1'
	}
	return []byte{
		'0' + byte(a.Hour/10), '0' + byte(a.Hour%10),
		'0' + byte(a.Minute/10), '0' + byte(a.Minute%10),
		e,
	}
}

func (a Alarm) String() string {
	state := "off"
	if a.Enabled {
		state = "on"
	}
	return fmt.Sprintf("%02d:%02d/%s", a.Hour, a.Minute, state)
}

// Clock is the canonical decoded form of a time-of-day sync write.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// DecodeAlarm decodes an alarm time/enable payload. Accepted encodings, in
// priority order:
//
//  1. Exactly five ASCII digits HHMME, E in {'0','1'}.
//  2. Exactly four ASCII digits HHMM; enable defaults to on.
//  3. ASCII digits wrapped in whitespace/NUL padding: five digits as form 1,
//     one to four digits zero-left-padded to HHMM as form 2.
//  4. Two bytes of packed BCD assembling to a valid HHMM.
//  5. A little-endian 16- or 32-bit integer at most 2359 whose decimal
//     digits form a valid HHMM.
//
// The binary forms carry no enable flag and leave the alarm enabled. A
// binary payload that does not assemble to a valid time is not a match for
// its strategy, so 2-byte sequences fall from BCD through to little-endian.
func DecodeAlarm(payload []byte) (Alarm, error) {
	if len(payload) == 5 && allDigits(payload[:4]) && isFlag(payload[4]) {
		return alarmFromDigits(payload[:4], payload[4] == '1')
	}

	if len(payload) == 4 && allDigits(payload) {
		return alarmFromDigits(payload, true)
	}

	if t := trimPadding(payload); allDigits(t) {
		if len(t) == 5 && isFlag(t[4]) {
			return alarmFromDigits(t[:4], t[4] == '1')
		}
		if n := len(t); n <= 4 {
			padded := []byte{'0', '0', '0', '0'}
			copy(padded[4-n:], t)
			return alarmFromDigits(padded, true)
		}
	}

	if len(payload) == 2 {
		if d, ok := bcdDigits(payload); ok {
			if a, err := alarmFromDigits(d, true); err == nil {
				return a, nil
			}
		}
	}

	if v, ok := leValue(payload); ok && v <= 2359 && v%100 < 60 {
		return Alarm{Hour: int(v / 100), Minute: int(v % 100), Enabled: true}, nil
	}

	return Alarm{}, ErrBadEncoding
}

// DecodeClock decodes a time-of-day payload through the same ladder widened
// to six digits HHMMSS: exact ASCII, padded ASCII, three bytes of packed
// BCD, then a little-endian integer at most 235959.
func DecodeClock(payload []byte) (Clock, error) {
	if len(payload) == 6 && allDigits(payload) {
		return clockFromDigits(payload)
	}

	if t := trimPadding(payload); len(t) == 6 && allDigits(t) {
		return clockFromDigits(t)
	}

	if len(payload) == 3 {
		if d, ok := bcdDigits(payload); ok {
			if c, err := clockFromDigits(d); err == nil {
				return c, nil
			}
		}
	}

	if v, ok := leValue(payload); ok && v <= 235959 {
		c := Clock{Hour: int(v / 10000), Minute: int(v / 100 % 100), Second: int(v % 100)}
		if c.Minute < 60 && c.Second < 60 {
			return c, nil
		}
	}

	return Clock{}, ErrBadEncoding
}

// DecodeByte decodes a single-byte characteristic value. A one-byte payload
// is taken at face value; longer payloads may spell the value in up to
// three ASCII digits wrapped in padding. The decoded value must lie in
// [lo, hi].
func DecodeByte(payload []byte, lo, hi uint8) (uint8, error) {
	if len(payload) == 1 {
		return byteInRange(uint16(payload[0]), lo, hi)
	}

	if t := trimPadding(payload); len(t) >= 1 && len(t) <= 3 && allDigits(t) {
		var v uint16
		for _, c := range t {
			v = v*10 + uint16(c-'0')
		}
		if v > 255 {
			return 0, fmt.Errorf("value %d: %w", v, ErrOutOfRange)
		}
		return byteInRange(v, lo, hi)
	}

	return 0, ErrBadEncoding
}

func byteInRange(v uint16, lo, hi uint8) (uint8, error) {
	if v < uint16(lo) || v > uint16(hi) {
		return 0, fmt.Errorf("value %d outside [%d, %d]: %w", v, lo, hi, ErrOutOfRange)
	}
	return uint8(v), nil
}

func alarmFromDigits(d []byte, enabled bool) (Alarm, error) {
	hour := int(d[0]-'0')*10 + int(d[1]-'0')
	minute := int(d[2]-'0')*10 + int(d[3]-'0')
	if hour > 23 {
		return Alarm{}, fmt.Errorf("hour %d: %w", hour, ErrOutOfRange)
	}
	if minute > 59 {
		return Alarm{}, fmt.Errorf("minute %d: %w", minute, ErrOutOfRange)
	}
	return Alarm{Hour: hour, Minute: minute, Enabled: enabled}, nil
}

func clockFromDigits(d []byte) (Clock, error) {
	hour := int(d[0]-'0')*10 + int(d[1]-'0')
	minute := int(d[2]-'0')*10 + int(d[3]-'0')
	second := int(d[4]-'0')*10 + int(d[5]-'0')
	if hour > 23 {
		return Clock{}, fmt.Errorf("hour %d: %w", hour, ErrOutOfRange)
	}
	if minute > 59 {
		return Clock{}, fmt.Errorf("minute %d: %w", minute, ErrOutOfRange)
	}
	if second > 59 {
		return Clock{}, fmt.Errorf("second %d: %w", second, ErrOutOfRange)
	}
	return Clock{Hour: hour, Minute: minute, Second: second}, nil
}

func allDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isFlag(c byte) bool {
	return c == '0' || c == '1'
}

// trimPadding strips the whitespace, NUL and line-ending bytes various
// client tools wrap around their text. Only these exact bytes count as
// padding; other control bytes keep a payload out of the ASCII strategies
// so the binary strategies can claim it.
func trimPadding(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isPadding(b[start]) {
		start++
	}
	for end > start && isPadding(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isPadding(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', 0x00:
		return true
	}
	return false
}

// bcdDigits unpacks packed BCD bytes into ASCII digits, two per byte.
func bcdDigits(b []byte) ([]byte, bool) {
	d := make([]byte, 0, len(b)*2)
	for _, c := range b {
		hi, lo := c>>4, c&0x0F
		if hi > 9 || lo > 9 {
			return nil, false
		}
		d = append(d, '0'+hi, '0'+lo)
	}
	return d, true
}

func leValue(b []byte) (uint32, bool) {
	switch len(b) {
	case 2:
		return uint32(binary.LittleEndian.Uint16(b)), true
	case 4:
		return binary.LittleEndian.Uint32(b), true
	}
	return 0, false
}
