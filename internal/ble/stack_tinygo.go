//go:build ble

package ble

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"
)

// TinyGoStack drives the host controller through tinygo.org/x/bluetooth.
//
// The backend differs from the command/completion model in a few places
// the mapping papers over:
//   - configuration and start/stop commit synchronously, so completions
//     are delivered inline from the command call;
//   - write refusals cannot be surfaced as ATT errors, so a rejected
//     write is dropped after logging and device state stays untouched;
//   - notification-descriptor writes are not reported, so notifications
//     count as armed for the whole connection. Pushing to a peer that
//     never subscribed only updates the stored value.
type TinyGoStack struct {
	mu      sync.Mutex
	adapter *bluetooth.Adapter
	events  Events

	inited  bool
	initErr error

	name     string
	services []bluetooth.UUID

	adv   *bluetooth.Advertisement
	chars map[Characteristic]*bluetooth.Characteristic
	peers map[string]bluetooth.Device
	last  *Conn
}

// NewStack returns a Stack over the default host adapter. The controller
// is touched lazily, on the first command that needs it.
func NewStack() (Stack, error) {
	return &TinyGoStack{
		adapter: bluetooth.DefaultAdapter,
		chars:   make(map[Characteristic]*bluetooth.Characteristic),
		peers:   make(map[string]bluetooth.Device),
	}, nil
}

func (t *TinyGoStack) Bind(events Events) {
	t.mu.Lock()
	t.events = events
	t.mu.Unlock()
}

func (t *TinyGoStack) ensureInit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inited {
		return t.initErr
	}
	t.inited = true
	if err := t.adapter.Enable(); err != nil {
		t.initErr = fmt.Errorf("failed to enable bluetooth adapter: %w", err)
		return t.initErr
	}
	t.adapter.SetConnectHandler(t.onConnect)
	if err := t.registerService(); err != nil {
		t.initErr = fmt.Errorf("failed to register gatt service: %w", err)
		return t.initErr
	}
	t.adv = t.adapter.DefaultAdvertisement()
	log.Info().Msg("bluetooth adapter enabled")
	return nil
}

func (t *TinyGoStack) registerService() error {
	mkChar := func(c Characteristic) *bluetooth.Characteristic {
		h := new(bluetooth.Characteristic)
		t.chars[c] = h
		return h
	}
	readEvent := func(c Characteristic) func(bluetooth.Connection, int, []byte) {
		return func(_ bluetooth.Connection, offset int, value []byte) {
			if offset != 0 {
				return
			}
			t.serveRead(c, value)
		}
	}
	writeEvent := func(c Characteristic) func(bluetooth.Connection, int, []byte) {
		return func(_ bluetooth.Connection, offset int, value []byte) {
			if offset != 0 {
				return
			}
			t.serveWrite(c, value)
		}
	}

	return t.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.New16BitUUID(ServiceUUID16),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle:     mkChar(CharAlarm),
				UUID:       bluetooth.New16BitUUID(uint16(CharAlarm)),
				Value:      make([]byte, 5),
				Flags:      bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicWritePermission,
				ReadEvent:  readEvent(CharAlarm),
				WriteEvent: writeEvent(CharAlarm),
			},
			{
				Handle:     mkChar(CharTimeSync),
				UUID:       bluetooth.New16BitUUID(uint16(CharTimeSync)),
				Flags:      bluetooth.CharacteristicWritePermission,
				WriteEvent: writeEvent(CharTimeSync),
			},
			{
				Handle:    mkChar(CharBattery),
				UUID:      bluetooth.New16BitUUID(uint16(CharBattery)),
				Value:     []byte{0},
				Flags:     bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
				ReadEvent: readEvent(CharBattery),
			},
			{
				Handle:     mkChar(CharColorTemp),
				UUID:       bluetooth.New16BitUUID(uint16(CharColorTemp)),
				Flags:      bluetooth.CharacteristicWritePermission,
				WriteEvent: writeEvent(CharColorTemp),
			},
			{
				Handle:     mkChar(CharWakeBright),
				UUID:       bluetooth.New16BitUUID(uint16(CharWakeBright)),
				Flags:      bluetooth.CharacteristicWritePermission,
				WriteEvent: writeEvent(CharWakeBright),
			},
			{
				Handle:     mkChar(CharSunrise),
				UUID:       bluetooth.New16BitUUID(uint16(CharSunrise)),
				Flags:      bluetooth.CharacteristicWritePermission,
				WriteEvent: writeEvent(CharSunrise),
			},
		},
	})
}

// serveRead fills the characteristic buffer from the session just before
// the stack answers a read.
func (t *TinyGoStack) serveRead(char Characteristic, buf []byte) {
	t.mu.Lock()
	ev := t.events
	conn := t.currentLocked()
	t.mu.Unlock()
	if ev == nil {
		return
	}
	value, status := ev.ReadRequest(conn, char)
	if status != StatusOK {
		return
	}
	clear(buf)
	copy(buf, value)
}

// serveWrite forwards a peer write; an accepted alarm write refreshes the
// stored read-back value.
func (t *TinyGoStack) serveWrite(char Characteristic, value []byte) {
	t.mu.Lock()
	ev := t.events
	conn := t.currentLocked()
	t.mu.Unlock()
	if ev == nil {
		return
	}
	if status := ev.WriteRequest(conn, char, value); status != StatusOK {
		log.Debug().Stringer("char", char).Stringer("status", status).Msg("write refused without att error")
		return
	}
	if char == CharAlarm {
		t.refreshValue(CharAlarm)
	}
}

func (t *TinyGoStack) refreshValue(char Characteristic) {
	t.mu.Lock()
	ev := t.events
	h := t.chars[char]
	conn := t.currentLocked()
	t.mu.Unlock()
	if ev == nil || h == nil {
		return
	}
	value, status := ev.ReadRequest(conn, char)
	if status != StatusOK {
		return
	}
	if _, err := h.Write(value); err != nil {
		log.Debug().Err(err).Stringer("char", char).Msg("failed to refresh characteristic value")
	}
}

func (t *TinyGoStack) currentLocked() Conn {
	if t.last != nil {
		return *t.last
	}
	return Conn{}
}

func (t *TinyGoStack) onConnect(device bluetooth.Device, connected bool) {
	addr := device.Address.String()
	conn := Conn{Addr: addr}

	t.mu.Lock()
	ev := t.events
	if connected {
		t.peers[addr] = device
		c := conn
		t.last = &c
	} else {
		delete(t.peers, addr)
		if t.last != nil && t.last.Addr == addr {
			t.last = nil
		}
	}
	t.mu.Unlock()
	if ev == nil {
		return
	}

	if connected {
		ev.Connected(conn)
		t.refreshValue(CharAlarm)
		t.refreshValue(CharBattery)
		// Descriptor writes are invisible through this backend; arm
		// notifications for the life of the connection.
		ev.NotifyArmed(conn, CharBattery, true)
		return
	}
	ev.Disconnected(conn)
}

// SetDeviceName stages the name; it reaches the controller with the next
// advertisement configuration.
func (t *TinyGoStack) SetDeviceName(name string) error {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
	return nil
}

// SetAdvertisingData maps the raw primary block back onto the structured
// options the backend wants and commits them.
func (t *TinyGoStack) SetAdvertisingData(data []byte) error {
	if err := t.ensureInit(); err != nil {
		return err
	}
	ids, err := ParseAdvertisingData(data)
	if err != nil {
		return fmt.Errorf("unusable advertising data: %w", err)
	}
	uuids := make([]bluetooth.UUID, len(ids))
	for i, id := range ids {
		uuids[i] = bluetooth.New16BitUUID(id)
	}

	t.mu.Lock()
	t.services = uuids
	ev := t.events
	t.mu.Unlock()

	ev.AdvDataSet(t.configureAdv())
	return nil
}

func (t *TinyGoStack) SetScanResponse(data []byte) error {
	if err := t.ensureInit(); err != nil {
		return err
	}
	name, err := ParseScanResponse(data)
	if err != nil {
		return fmt.Errorf("unusable scan response: %w", err)
	}

	t.mu.Lock()
	t.name = name
	ev := t.events
	t.mu.Unlock()

	ev.ScanRspSet(t.configureAdv())
	return nil
}

func (t *TinyGoStack) configureAdv() error {
	t.mu.Lock()
	opts := bluetooth.AdvertisementOptions{
		LocalName:    t.name,
		ServiceUUIDs: t.services,
	}
	adv := t.adv
	t.mu.Unlock()
	return adv.Configure(opts)
}

func (t *TinyGoStack) StartAdvertising() error {
	if err := t.ensureInit(); err != nil {
		return err
	}
	t.mu.Lock()
	adv := t.adv
	ev := t.events
	t.mu.Unlock()

	if err := adv.Start(); err != nil {
		if alreadyActive(err) {
			return ErrAlreadyAdvertising
		}
		return err
	}
	ev.AdvStarted(nil)
	return nil
}

func (t *TinyGoStack) StopAdvertising() error {
	if err := t.ensureInit(); err != nil {
		return err
	}
	t.mu.Lock()
	adv := t.adv
	ev := t.events
	t.mu.Unlock()

	if err := adv.Stop(); err != nil {
		if notActive(err) {
			return ErrNotAdvertising
		}
		return err
	}
	ev.AdvStopped()
	return nil
}

// Notify writes the value through the characteristic handle, which pushes
// it to subscribed peers.
func (t *TinyGoStack) Notify(conn Conn, char Characteristic, value []byte) error {
	t.mu.Lock()
	h := t.chars[char]
	t.mu.Unlock()
	if h == nil {
		return fmt.Errorf("no characteristic %s", char)
	}
	_, err := h.Write(value)
	return err
}

func (t *TinyGoStack) Disconnect(conn Conn) error {
	t.mu.Lock()
	device, ok := t.peers[conn.Addr]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown peer %s", conn.Addr)
	}
	return device.Disconnect()
}

// BlueZ reports state mismatches as dbus errors; the bindings pass the
// text through.
func alreadyActive(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already")
}

func notActive(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "doesnotexist") || strings.Contains(s, "not advertising")
}
