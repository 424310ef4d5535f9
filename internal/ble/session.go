package ble

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dawnlamp/internal/wire"
)

// State is the advertising-lifecycle state of the session.
type State uint8

const (
	StateIdle State = iota
	StateConfiguringPayload
	StateReady
	StateAdvertising
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguringPayload:
		return "configuring_payload"
	case StateReady:
		return "ready"
	case StateAdvertising:
		return "advertising"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// Pending payload-configuration bits.
const (
	pendingAdvData uint8 = 1 << iota
	pendingScanRsp
)

// Config carries the session's tunables. Zero durations fall back to the
// defaults below.
type Config struct {
	DeviceName string

	// Backoffs for the self-healing retry path.
	RetryDisconnect time.Duration // re-advertise after a peer drops
	RetryStop       time.Duration // re-advertise after an unexpected stop
	RetryStart      time.Duration // re-issue a failed start command
	SelfHealTick    time.Duration // steady re-check interval

	BatteryNotifyPeriod time.Duration
}

func (c Config) withDefaults() Config {
	if c.DeviceName == "" {
		c.DeviceName = "dawnlamp"
	}
	if c.RetryDisconnect == 0 {
		c.RetryDisconnect = 50 * time.Millisecond
	}
	if c.RetryStop == 0 {
		c.RetryStop = 200 * time.Millisecond
	}
	if c.RetryStart == 0 {
		c.RetryStart = 800 * time.Millisecond
	}
	if c.SelfHealTick == 0 {
		c.SelfHealTick = 2 * time.Second
	}
	if c.BatteryNotifyPeriod == 0 {
		c.BatteryNotifyPeriod = 60 * time.Second
	}
	return c
}

// Info is a point-in-time snapshot of the session for the status surface.
type Info struct {
	State       State
	Advertising bool
	Connected   bool
	PeerAddr    string
	ConnID      string
	Degraded    bool
}

// Session drives the advertising lifecycle and dispatches characteristic
// traffic for exactly one peer at a time. Stack callbacks mutate session
// state under the mutex and wake the run loop; stack commands are issued
// only from the run loop, so command submission is single-writer.
type Session struct {
	stack   Stack
	handler Handler
	cfg     Config

	kick chan struct{}

	mu            sync.Mutex
	state         State
	wantAdv       bool
	payloadDone   bool // configuration attempted; single-shot per boot
	pending       uint8
	degraded      bool // one or both payload blocks failed to apply
	conn          *Conn
	connID        string
	notifyArmed   bool
	retryAt       time.Time
	retryReason   string
	startInFlight bool
	startIssuedAt time.Time
	stopRequested bool
	stopAdvQueued bool
	notifyQueued  bool
	dropQueue     []Conn
}

// NewSession wires a session over the given stack and handler and binds
// itself as the stack's event sink.
func NewSession(stack Stack, handler Handler, cfg Config) *Session {
	s := &Session{
		stack:   stack,
		handler: handler,
		cfg:     cfg.withDefaults(),
		kick:    make(chan struct{}, 1),
		state:   StateIdle,
	}
	stack.Bind(s)
	return s
}

// RequestAdvertising marks the device as wanting discoverability. The run
// loop converges on "advertising whenever no peer is connected" from the
// next wakeup onward.
func (s *Session) RequestAdvertising() {
	s.mu.Lock()
	s.wantAdv = true
	s.kickLocked()
	s.mu.Unlock()
}

// Info returns a snapshot of the session state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		State:       s.state,
		Advertising: s.state == StateAdvertising,
		Connected:   s.conn != nil,
		ConnID:      s.connID,
		Degraded:    s.degraded,
	}
	if s.conn != nil {
		info.PeerAddr = s.conn.Addr
	}
	return info
}

// Run owns the session's timers until ctx is cancelled: the retry
// deadline, the steady self-heal tick and the periodic battery
// notification.
func (s *Session) Run(ctx context.Context) error {
	notify := time.NewTicker(s.cfg.BatteryNotifyPeriod)
	defer notify.Stop()

	log.Info().Str("device_name", s.cfg.DeviceName).Msg("ble session started")

	for {
		timer := time.NewTimer(s.nextWait(time.Now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.shutdown()
			log.Info().Msg("ble session stopped")
			return nil
		case <-s.kick:
			timer.Stop()
		case <-timer.C:
		case <-notify.C:
			timer.Stop()
			s.pushBattery("periodic")
			continue
		}

		s.reconcile(time.Now())
	}
}

// nextWait picks how long the loop may sleep: until the retry deadline if
// one is armed, otherwise a full self-heal tick.
func (s *Session) nextWait(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	wait := s.cfg.SelfHealTick
	if !s.retryAt.IsZero() {
		if d := s.retryAt.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// reconcile drives the session toward its goal state and flushes queued
// best-effort work. All stack commands are issued here, outside the mutex.
func (s *Session) reconcile(now time.Time) {
	s.mu.Lock()

	drops := s.dropQueue
	s.dropQueue = nil
	stopAdv := s.stopAdvQueued
	s.stopAdvQueued = false
	pushNow := s.notifyQueued
	s.notifyQueued = false

	var configure, start bool
	if s.wantAdv && s.conn == nil {
		if !s.retryAt.IsZero() && !now.Before(s.retryAt) {
			log.Debug().Str("reason", s.retryReason).Msg("advertising retry due")
			s.retryAt = time.Time{}
			s.retryReason = ""
		}
		if s.retryAt.IsZero() {
			switch s.state {
			case StateIdle:
				if !s.payloadDone {
					s.payloadDone = true
					s.pending = pendingAdvData | pendingScanRsp
					s.setStateLocked(StateConfiguringPayload)
					configure = true
				}
			case StateReady:
				stale := s.startInFlight && now.Sub(s.startIssuedAt) > s.cfg.SelfHealTick
				if stale {
					log.Warn().Msg("advertising start lost, re-issuing")
				}
				if !s.startInFlight || stale {
					s.startInFlight = true
					s.startIssuedAt = now
					start = true
				}
			}
		}
	}
	s.mu.Unlock()

	for _, c := range drops {
		if err := s.stack.Disconnect(c); err != nil {
			log.Warn().Err(err).Str("peer", c.Addr).Msg("failed to drop extra peer")
		}
	}
	if stopAdv {
		if err := s.stack.StopAdvertising(); err != nil && !errors.Is(err, ErrNotAdvertising) {
			log.Debug().Err(err).Msg("advertising stop not accepted")
		}
	}
	if configure {
		s.configurePayload()
	}
	if start {
		s.startAdvertising()
	}
	if pushNow {
		s.pushBattery("armed")
	}
}

// configurePayload runs the single-shot payload configuration: device
// name, primary advertising block, scan-response block. A submission
// failure counts as that element's completion failing.
func (s *Session) configurePayload() {
	log.Info().Str("device_name", s.cfg.DeviceName).Msg("configuring advertising payload")

	if err := s.stack.SetDeviceName(s.cfg.DeviceName); err != nil {
		log.Warn().Err(err).Msg("failed to set device name")
	}
	if err := s.stack.SetAdvertisingData(AdvertisingData(ServiceUUID16)); err != nil {
		s.AdvDataSet(err)
	}
	if err := s.stack.SetScanResponse(ScanResponse(s.cfg.DeviceName)); err != nil {
		s.ScanRspSet(err)
	}
}

func (s *Session) startAdvertising() {
	err := s.stack.StartAdvertising()
	if err == nil {
		return
	}
	if errors.Is(err, ErrAlreadyAdvertising) {
		// Not a failure: converge on the stack's view.
		s.AdvStarted(err)
		return
	}
	log.Warn().Err(err).Msg("advertising start not accepted")
	s.mu.Lock()
	s.startInFlight = false
	s.scheduleRetryLocked(s.cfg.RetryStart, "failed_start")
	s.mu.Unlock()
}

// pushBattery sends one battery notification if a peer is connected and
// has notifications armed. Failures are logged and dropped.
func (s *Session) pushBattery(reason string) {
	s.mu.Lock()
	if s.conn == nil || !s.notifyArmed {
		s.mu.Unlock()
		return
	}
	conn := *s.conn
	id := s.connID
	s.mu.Unlock()

	percent := s.handler.BatteryPercent()
	if err := s.stack.Notify(conn, CharBattery, []byte{percent}); err != nil {
		log.Debug().Err(err).Str("conn_id", id).Msg("battery notification dropped")
		return
	}
	log.Debug().Uint8("percent", percent).Str("reason", reason).Str("conn_id", id).Msg("battery notification sent")
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.wantAdv = false
	advertising := s.state == StateAdvertising
	s.stopRequested = true
	s.mu.Unlock()

	if advertising {
		if err := s.stack.StopAdvertising(); err != nil && !errors.Is(err, ErrNotAdvertising) {
			log.Debug().Err(err).Msg("advertising stop on shutdown not accepted")
		}
	}
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	log.Debug().Str("from", s.state.String()).Str("to", next.String()).Msg("session state changed")
	s.state = next
}

// scheduleRetryLocked arms the retry deadline, keeping the earliest of the
// current and requested deadlines.
func (s *Session) scheduleRetryLocked(d time.Duration, reason string) {
	at := time.Now().Add(d)
	if s.retryAt.IsZero() || at.Before(s.retryAt) {
		s.retryAt = at
		s.retryReason = reason
	}
	s.kickLocked()
}

func (s *Session) kickLocked() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// --- Events (stack callbacks) ---

// AdvDataSet records the primary advertising block completing. A failure
// clears only its own pending bit so the configuration gate cannot
// deadlock; the element stays unapplied for the rest of the boot.
func (s *Session) AdvDataSet(err error) {
	s.payloadApplied(pendingAdvData, "advertising data", err)
}

// ScanRspSet records the scan-response block completing, with the same
// degraded-mode rule as AdvDataSet.
func (s *Session) ScanRspSet(err error) {
	s.payloadApplied(pendingScanRsp, "scan response", err)
}

func (s *Session) payloadApplied(bit uint8, what string, err error) {
	s.mu.Lock()
	s.pending &^= bit
	if err != nil {
		s.degraded = true
	}
	done := s.pending == 0
	if done && s.state == StateConfiguringPayload {
		s.setStateLocked(StateReady)
		s.kickLocked()
	}
	degraded := s.degraded
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("element", what).Msg("payload element failed, advertising will degrade")
		return
	}
	log.Debug().Str("element", what).Bool("configured", done).Bool("degraded", degraded).Msg("payload element applied")
}

// AdvStarted records the start command completing. A benign
// already-active result counts as success.
func (s *Session) AdvStarted(err error) {
	if err != nil && !errors.Is(err, ErrAlreadyAdvertising) {
		s.mu.Lock()
		s.startInFlight = false
		if s.state == StateAdvertising {
			s.setStateLocked(StateReady)
		}
		s.scheduleRetryLocked(s.cfg.RetryStart, "failed_start")
		s.mu.Unlock()
		log.Warn().Err(err).Msg("advertising start failed, retry scheduled")
		return
	}

	s.mu.Lock()
	s.startInFlight = false
	if s.conn != nil {
		// A peer raced the start; advertising must not run while connected.
		s.stopRequested = true
		s.stopAdvQueued = true
		s.kickLocked()
		s.mu.Unlock()
		log.Debug().Msg("advertising started under a live connection, stopping")
		return
	}
	s.retryAt = time.Time{}
	s.retryReason = ""
	s.setStateLocked(StateAdvertising)
	s.mu.Unlock()

	if errors.Is(err, ErrAlreadyAdvertising) {
		log.Debug().Msg("advertising already active, treated as started")
		return
	}
	log.Info().Msg("advertising started")
}

// AdvStopped records advertising going down. Expected stops (requested by
// the session, or implicit in a connection) pass silently; an unexpected
// stop while the device still wants discoverability arms a retry.
func (s *Session) AdvStopped() {
	s.mu.Lock()
	expected := s.stopRequested || s.conn != nil || !s.wantAdv
	s.stopRequested = false
	if s.state == StateAdvertising {
		s.setStateLocked(StateReady)
	}
	if !expected && s.wantAdv && s.conn == nil {
		s.scheduleRetryLocked(s.cfg.RetryStop, "unexpected_stop")
	}
	s.mu.Unlock()

	if expected {
		log.Debug().Msg("advertising stopped")
		return
	}
	log.Warn().Msg("advertising stopped unexpectedly, retry scheduled")
}

// Connected tracks the new peer, or drops it when one is already tracked.
func (s *Session) Connected(conn Conn) {
	s.mu.Lock()
	if s.conn != nil {
		s.dropQueue = append(s.dropQueue, conn)
		s.kickLocked()
		s.mu.Unlock()
		log.Warn().Str("peer", conn.Addr).Msg("second peer rejected")
		return
	}

	c := conn
	s.conn = &c
	s.connID = uuid.NewString()
	s.notifyArmed = false
	if s.state == StateAdvertising {
		// The controller stops advertising on connect; make sure ours did.
		s.stopRequested = true
		s.stopAdvQueued = true
	}
	s.retryAt = time.Time{}
	s.retryReason = ""
	s.setStateLocked(StateConnected)
	s.kickLocked()
	id := s.connID
	s.mu.Unlock()

	log.Info().Str("peer", conn.Addr).Str("conn_id", id).Msg("peer connected")
	s.handler.PeerConnected(id, conn.Addr)
}

// Disconnected resets per-connection state and, if the device still wants
// discoverability, schedules a prompt re-advertise.
func (s *Session) Disconnected(conn Conn) {
	s.mu.Lock()
	if s.conn == nil || *s.conn != conn {
		s.mu.Unlock()
		log.Debug().Str("peer", conn.Addr).Msg("disconnect for untracked peer ignored")
		return
	}

	id := s.connID
	s.conn = nil
	s.connID = ""
	s.notifyArmed = false
	s.setStateLocked(StateReady)
	if s.wantAdv {
		s.scheduleRetryLocked(s.cfg.RetryDisconnect, "disconnect")
	}
	s.mu.Unlock()

	log.Info().Str("peer", conn.Addr).Str("conn_id", id).Msg("peer disconnected")
	s.handler.PeerDisconnected(id, conn.Addr)
}

// ReadRequest serves characteristic reads. Only the alarm and the battery
// are readable.
func (s *Session) ReadRequest(conn Conn, char Characteristic) ([]byte, Status) {
	switch char {
	case CharAlarm:
		return s.handler.Alarm().Digits(), StatusOK
	case CharBattery:
		return []byte{s.handler.BatteryPercent()}, StatusOK
	}
	log.Debug().Stringer("char", char).Msg("read rejected")
	return nil, StatusNotPermitted
}

// WriteRequest normalizes and applies a characteristic write. Rejected
// writes leave the configuration untouched.
func (s *Session) WriteRequest(conn Conn, char Characteristic, value []byte) Status {
	var status Status

	switch char {
	case CharAlarm:
		a, err := wire.DecodeAlarm(value)
		if err != nil {
			status = statusFor(err)
			break
		}
		s.handler.SetAlarm(a)
		log.Info().Stringer("alarm", a).Msg("alarm written")
	case CharTimeSync:
		c, err := wire.DecodeClock(value)
		if err != nil {
			status = statusFor(err)
			break
		}
		s.handler.SyncClock(c)
		log.Info().Stringer("time", c).Msg("time synced")
	case CharColorTemp:
		v, err := wire.DecodeByte(value, 0, 100)
		if err != nil {
			status = statusFor(err)
			break
		}
		s.handler.SetColorTemp(v)
	case CharWakeBright:
		v, err := wire.DecodeByte(value, 0, 100)
		if err != nil {
			status = statusFor(err)
			break
		}
		s.handler.SetWakeBright(v)
	case CharSunrise:
		v, err := wire.DecodeByte(value, 1, 60)
		if err != nil {
			status = statusFor(err)
			break
		}
		s.handler.SetSunrise(v)
	default:
		status = StatusNotPermitted
	}

	if status != StatusOK {
		log.Debug().Stringer("char", char).Stringer("status", status).Int("len", len(value)).Msg("write rejected")
	}
	return status
}

// NotifyArmed tracks the peer's battery notification toggle. Arming sends
// one notification right away, independent of the periodic timer.
func (s *Session) NotifyArmed(conn Conn, char Characteristic, enabled bool) {
	if char != CharBattery {
		return
	}

	s.mu.Lock()
	if s.conn == nil || *s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.notifyArmed = enabled
	if enabled {
		s.notifyQueued = true
		s.kickLocked()
	}
	s.mu.Unlock()

	log.Debug().Bool("enabled", enabled).Msg("battery notifications toggled")
}

func statusFor(err error) Status {
	if errors.Is(err, wire.ErrOutOfRange) {
		return StatusInvalidValue
	}
	return StatusInvalidLength
}
