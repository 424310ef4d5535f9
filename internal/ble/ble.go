// Package ble owns the wireless peripheral session: the self-healing
// advertising lifecycle and the characteristic dispatch for the lamp's
// single GATT service. The stack itself sits behind the Stack interface so
// the session logic runs unchanged over the real radio, and over an
// in-process fake in tests and radio-less builds.
package ble

import (
	"errors"

	"dawnlamp/internal/wire"
)

// ServiceUUID16 is the 16-bit id of the lamp's primary service.
const ServiceUUID16 uint16 = 0xFF10

// Characteristic identifies one entry in the lamp's GATT table.
type Characteristic uint16

const (
	CharAlarm      Characteristic = 0xFF11 // R/W, five digits HHMME
	CharTimeSync   Characteristic = 0xFF12 // W, six digits HHMMSS
	CharBattery    Characteristic = 0xFF13 // R/N, one byte percent
	CharColorTemp  Characteristic = 0xFF14 // W, one byte 0-100
	CharWakeBright Characteristic = 0xFF15 // W, one byte 0-100
	CharSunrise    Characteristic = 0xFF16 // W, one byte 1-60 minutes
)

func (c Characteristic) String() string {
	switch c {
	case CharAlarm:
		return "alarm"
	case CharTimeSync:
		return "time_sync"
	case CharBattery:
		return "battery"
	case CharColorTemp:
		return "color_temp"
	case CharWakeBright:
		return "wake_bright"
	case CharSunrise:
		return "sunrise"
	}
	return "unknown"
}

// Status is the synchronous result returned to the peer for a read or
// write request.
type Status uint8

const (
	StatusOK Status = iota
	StatusInvalidLength
	StatusInvalidValue
	StatusNotPermitted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidLength:
		return "invalid_length"
	case StatusInvalidValue:
		return "invalid_value"
	case StatusNotPermitted:
		return "not_permitted"
	}
	return "unknown"
}

// Benign stack results the session treats as success rather than failure.
var (
	// ErrAlreadyAdvertising reports a start command finding advertising
	// already active.
	ErrAlreadyAdvertising = errors.New("advertising already active")
	// ErrNotAdvertising reports a stop command finding advertising already
	// stopped.
	ErrNotAdvertising = errors.New("advertising not active")
)

// Conn identifies one peer connection as reported by the stack.
type Conn struct {
	Handle uint16
	Addr   string
}

// Stack is the slice of the wireless stack the session drives. A nil
// return means the command was submitted and its completion (where one
// exists) will arrive through the Events sink; a non-nil return means the
// command was not submitted and no completion follows. Completions may be
// delivered synchronously from inside the command call or later from the
// stack's callback context; the session holds no state lock across
// command calls, so either is safe.
type Stack interface {
	// Bind attaches the event sink. Called once before any command.
	Bind(events Events)
	// SetDeviceName stages the GAP device name.
	SetDeviceName(name string) error
	// SetAdvertisingData programs the primary advertising block; completion
	// arrives via Events.AdvDataSet.
	SetAdvertisingData(data []byte) error
	// SetScanResponse programs the scan-response block; completion arrives
	// via Events.ScanRspSet.
	SetScanResponse(data []byte) error
	// StartAdvertising requests advertising; completion arrives via
	// Events.AdvStarted.
	StartAdvertising() error
	// StopAdvertising requests an advertising stop, reported via
	// Events.AdvStopped.
	StopAdvertising() error
	// Notify pushes a characteristic value to the connected peer.
	Notify(conn Conn, char Characteristic, value []byte) error
	// Disconnect drops the given peer.
	Disconnect(conn Conn) error
}

// Events receives stack callbacks. The stack serializes deliveries: no two
// events run concurrently.
type Events interface {
	AdvDataSet(err error)
	ScanRspSet(err error)
	AdvStarted(err error)
	AdvStopped()
	Connected(conn Conn)
	Disconnected(conn Conn)
	// ReadRequest serves a read; the returned value is only meaningful for
	// StatusOK.
	ReadRequest(conn Conn, char Characteristic) ([]byte, Status)
	// WriteRequest applies a peer write.
	WriteRequest(conn Conn, char Characteristic, value []byte) Status
	// NotifyArmed reports the peer toggling notifications for char.
	NotifyArmed(conn Conn, char Characteristic, enabled bool)
}

// Handler is the orchestrator-facing sink for decoded characteristic
// traffic and connection milestones. Calls arrive from stack callback
// context and from the session's timer goroutine, never two at once for
// the same request, and must return promptly.
type Handler interface {
	// Alarm returns the current alarm for read-back.
	Alarm() wire.Alarm
	SetAlarm(a wire.Alarm)
	SyncClock(c wire.Clock)
	SetColorTemp(v uint8)
	SetWakeBright(v uint8)
	SetSunrise(v uint8)
	// BatteryPercent samples the battery on demand. Sampling failures
	// surface as 0, not as an error.
	BatteryPercent() uint8
	PeerConnected(id, addr string)
	PeerDisconnected(id, addr string)
}
