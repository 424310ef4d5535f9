// Package device is the top-level state machine of the lamp. The
// orchestrator owns the persisted configuration, consumes button and
// wireless events, schedules the wake gradient and drives the display
// and light adapters from a single control loop.
package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dawnlamp/internal/alarm"
	"dawnlamp/internal/ble"
	"dawnlamp/internal/clock"
	"dawnlamp/internal/curve"
	"dawnlamp/internal/hw"
	"dawnlamp/internal/journal"
	"dawnlamp/internal/settings"
	"dawnlamp/internal/telemetry"
	"dawnlamp/internal/wire"
)

// Mode is the orchestrator's operating mode.
type Mode uint8

const (
	// ModeActiveIdle is the default: discoverable, display and light dark.
	ModeActiveIdle Mode = iota
	// ModeShowTime shows the clock for a bounded window, then returns to
	// the prior mode.
	ModeShowTime
	// ModeAlarmGradient runs the timed wake ramp, then holds the light at
	// target until a short press.
	ModeAlarmGradient
	// ModeManualLight holds the light at the configured level until the
	// next long press.
	ModeManualLight
)

func (m Mode) String() string {
	switch m {
	case ModeActiveIdle:
		return "active_idle"
	case ModeShowTime:
		return "show_time"
	case ModeAlarmGradient:
		return "alarm_gradient"
	case ModeManualLight:
		return "manual_light"
	}
	return "unknown"
}

// Hardware bundles the peripheral adapters the orchestrator drives.
type Hardware struct {
	Display hw.Display
	Light   hw.Light
	Battery hw.Battery
	Button  hw.Button
}

// Config carries the orchestrator's tunables. Zero durations fall back
// to the defaults below.
type Config struct {
	PollInterval   time.Duration
	ShowTimeWindow time.Duration
	BootID         string
}

func (c Config) withDefaults() Config {
	if c.PollInterval == 0 {
		c.PollInterval = 200 * time.Millisecond
	}
	if c.ShowTimeWindow == 0 {
		c.ShowTimeWindow = 5 * time.Second
	}
	return c
}

// Recorder is the slice of the journal the orchestrator writes to.
type Recorder interface {
	Append(eventType journal.EventType, payload map[string]any) error
}

// SessionInfo exposes the wireless session snapshot for telemetry and
// the status surface.
type SessionInfo interface {
	Info() ble.Info
}

// Fade applied when the manual light switches on; every later
// adjustment lands immediately.
const manualFadeIn = 250 * time.Millisecond

// Snapshot is a point-in-time view of the orchestrator for the status
// surface.
type Snapshot struct {
	Mode        Mode
	Settings    settings.Settings
	NextWake    time.Time
	NextOK      bool
	Battery     int
	ClockSane   bool
	ClockOffset time.Duration
	BootID      string
}

// Orchestrator is the device state machine. Configuration mutations
// arrive from wireless callbacks and are serialized against the control
// loop by the state mutex; hardware commands are issued only from the
// loop.
type Orchestrator struct {
	cfg     Config
	clk     *clock.Clock
	store   settings.Store
	hw      Hardware
	curve   curve.Curve
	session SessionInfo
	pub     telemetry.Publisher
	jnl     Recorder

	// wake lets a wireless callback cut the current poll wait short so
	// a configuration change reaches the output within one tick.
	wake chan struct{}

	mu        sync.Mutex
	set       settings.Settings
	mode      Mode
	prevMode  Mode
	showUntil time.Time
	gradStart time.Time
	gradDur   time.Duration
	nextStart time.Time
	nextOK    bool
	lastBatt  int

	out outputState
}

// New loads the persisted configuration and builds the orchestrator.
// A stored record that fails validation is replaced wholesale by the
// defaults. pub and jnl may be nil when the corresponding surface is
// disabled; the session is attached separately since it is constructed
// around the orchestrator's handler side.
func New(cfg Config, clk *clock.Clock, store settings.Store, hardware Hardware, crv curve.Curve, pub telemetry.Publisher, jnl Recorder) (*Orchestrator, error) {
	set, reset, err := settings.LoadOrReset(store)
	if err != nil {
		log.Warn().Err(err).Msg("settings reset could not be persisted")
	}
	if reset {
		log.Warn().Msg("stored settings invalid or missing, defaults restored")
	}

	if pub == nil {
		pub = telemetry.Nop{}
	}

	o := &Orchestrator{
		cfg:   cfg.withDefaults(),
		clk:   clk,
		store: store,
		hw:    hardware,
		curve: crv,
		pub:   pub,
		jnl:   jnl,
		wake:  make(chan struct{}, 1),
		set:   set,
		mode:  ModeActiveIdle,
	}
	o.recomputeLocked(clk.Now())
	return o, nil
}

// AttachSession links the wireless session snapshot source. Called once
// during wiring, before Run.
func (o *Orchestrator) AttachSession(s SessionInfo) {
	o.session = s
}

// Snapshot returns the current device view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Mode:        o.mode,
		Settings:    o.set,
		NextWake:    o.nextStart,
		NextOK:      o.nextOK,
		Battery:     o.lastBatt,
		ClockSane:   o.clk.Sane(),
		ClockOffset: o.clk.Offset(),
		BootID:      o.cfg.BootID,
	}
}

// Kick wakes the control loop before its next poll deadline.
func (o *Orchestrator) Kick() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// recomputeLocked refreshes the next gradient start from the clock and
// the configuration.
func (o *Orchestrator) recomputeLocked(now time.Time) {
	o.nextStart, o.nextOK = alarm.StartTime(now, o.set.AlarmHour, o.set.AlarmMinute, o.set.AlarmEnabled, o.set.SunriseDuration())
	if o.nextOK {
		log.Debug().Time("next_wake", o.nextStart).Msg("next wake computed")
		return
	}
	log.Debug().Bool("enabled", o.set.AlarmEnabled).Bool("sane", alarm.Sane(now)).Msg("wake not scheduled")
}

// persistLocked saves the configuration. A failed save keeps the
// in-memory value live; it is logged, not surfaced to the peer.
func (o *Orchestrator) persistLocked() {
	if err := o.store.Save(o.set); err != nil {
		log.Warn().Err(err).Msg("failed to persist settings")
	}
}

func (o *Orchestrator) record(eventType journal.EventType, payload map[string]any) {
	if o.jnl == nil {
		return
	}
	if err := o.jnl.Append(eventType, payload); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Msg("journal append failed")
	}
}

func (o *Orchestrator) emitEvent(kind string, detail map[string]any) {
	e := telemetry.Event{Type: kind, Detail: detail}
	go func() {
		if err := o.pub.PublishEvent(e); err != nil {
			log.Debug().Err(err).Str("type", kind).Msg("telemetry event dropped")
		}
	}()
}

func (o *Orchestrator) publishState() {
	snap := o.Snapshot()
	s := telemetry.State{
		Mode:    snap.Mode.String(),
		Battery: snap.Battery,
	}
	if snap.NextOK {
		s.NextWake = snap.NextWake.Format(time.RFC3339)
	}
	if o.session != nil {
		info := o.session.Info()
		s.Advertising = info.Advertising
		s.Connected = info.Connected
	}
	go func() {
		if err := o.pub.PublishState(s); err != nil {
			log.Debug().Err(err).Msg("telemetry state dropped")
		}
	}()
}

// --- ble.Handler ---

// Alarm returns the configured alarm for characteristic read-back.
func (o *Orchestrator) Alarm() wire.Alarm {
	o.mu.Lock()
	defer o.mu.Unlock()
	return wire.Alarm{Hour: o.set.AlarmHour, Minute: o.set.AlarmMinute, Enabled: o.set.AlarmEnabled}
}

// SetAlarm applies a validated alarm write.
func (o *Orchestrator) SetAlarm(a wire.Alarm) {
	o.mu.Lock()
	o.set.AlarmHour = a.Hour
	o.set.AlarmMinute = a.Minute
	o.set.AlarmEnabled = a.Enabled
	o.persistLocked()
	o.recomputeLocked(o.clk.Now())
	o.mu.Unlock()

	o.record(journal.EventConfigWrite, map[string]any{"field": "alarm", "value": a.String()})
	o.emitEvent("config_write", map[string]any{"field": "alarm", "value": a.String()})
	o.Kick()
}

// SyncClock applies a time-of-day sync and re-arms the schedule.
func (o *Orchestrator) SyncClock(c wire.Clock) {
	synced := o.clk.SetTimeOfDay(c.Hour, c.Minute, c.Second)

	o.mu.Lock()
	o.recomputeLocked(synced)
	o.mu.Unlock()

	log.Info().Time("now", synced).Msg("wall clock synced")
	o.record(journal.EventTimeSync, map[string]any{"time": c.String()})
	o.emitEvent("time_sync", map[string]any{"time": c.String()})
	o.Kick()
}

// SetColorTemp applies a color temperature write. The running output
// retargets on the next tick.
func (o *Orchestrator) SetColorTemp(v uint8) {
	o.setField("color_temp", func(s *settings.Settings) { s.ColorTemp = int(v) }, false)
}

// SetWakeBright applies a wake brightness write.
func (o *Orchestrator) SetWakeBright(v uint8) {
	o.setField("wake_bright", func(s *settings.Settings) { s.WakeBright = int(v) }, false)
}

// SetSunrise applies a sunrise duration write and re-arms the schedule.
func (o *Orchestrator) SetSunrise(v uint8) {
	o.setField("sunrise_min", func(s *settings.Settings) { s.SunriseMinutes = int(v) }, true)
}

func (o *Orchestrator) setField(name string, mutate func(*settings.Settings), reschedule bool) {
	o.mu.Lock()
	mutate(&o.set)
	o.persistLocked()
	if reschedule {
		o.recomputeLocked(o.clk.Now())
	}
	set := o.set
	o.mu.Unlock()

	log.Info().Str("field", name).Interface("settings", set).Msg("setting written")
	o.record(journal.EventConfigWrite, map[string]any{"field": name})
	o.Kick()
}

// BatteryPercent samples the battery on demand. A failed sample reads
// as 0 percent; there is no channel to report the failure to the peer.
func (o *Orchestrator) BatteryPercent() uint8 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pct, err := o.hw.Battery.ReadPercent(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("battery sample failed")
		pct = 0
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	o.mu.Lock()
	o.lastBatt = pct
	o.mu.Unlock()
	return uint8(pct)
}

// PeerConnected records a wireless peer attaching.
func (o *Orchestrator) PeerConnected(id, addr string) {
	o.record(journal.EventBLEConnect, map[string]any{"conn_id": id, "peer": addr})
	o.publishState()
}

// PeerDisconnected records a wireless peer detaching.
func (o *Orchestrator) PeerDisconnected(id, addr string) {
	o.record(journal.EventBLEDisconnect, map[string]any{"conn_id": id, "peer": addr})
	o.publishState()
}
