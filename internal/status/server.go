// Package status serves a small read-only HTTP surface: liveness, the
// current device snapshot and the recent journal. It exists for
// debugging a lamp over the LAN; nothing here mutates device state.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"dawnlamp/internal/ble"
	"dawnlamp/internal/device"
	"dawnlamp/internal/journal"
)

// History is the slice of the journal the server reads.
type History interface {
	Recent(limit int) ([]journal.Entry, error)
	RecentByType(eventType journal.EventType, limit int) ([]journal.Entry, error)
}

// Sessions exposes the wireless session snapshot.
type Sessions interface {
	Info() ble.Info
}

// Devices exposes the orchestrator snapshot.
type Devices interface {
	Snapshot() device.Snapshot
}

// Server is the read-only status listener.
type Server struct {
	addr       string
	dev        Devices
	session    Sessions
	history    History
	httpServer *http.Server
}

// NewServer builds a server on addr. history may be nil; the journal
// endpoint then reports an empty list.
func NewServer(addr string, dev Devices, session Sessions, history History) *Server {
	return &Server{addr: addr, dev: dev, session: session, history: history}
}

// Run serves until ctx is cancelled, then shuts down within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/journal", s.handleJournal)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	log.Info().Str("addr", s.addr).Msg("status server started")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("status server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// statusBody is the /status response.
type statusBody struct {
	Mode        string       `json:"mode"`
	BootID      string       `json:"boot_id"`
	ClockSane   bool         `json:"clock_sane"`
	ClockOffset string       `json:"clock_offset"`
	Battery     int          `json:"battery"`
	NextWake    string       `json:"next_wake,omitempty"`
	Settings    settingsBody `json:"settings"`
	BLE         bleBody      `json:"ble"`
}

type settingsBody struct {
	AlarmHour      int  `json:"alarm_hour"`
	AlarmMinute    int  `json:"alarm_minute"`
	AlarmEnabled   bool `json:"alarm_enabled"`
	ColorTemp      int  `json:"color_temp"`
	WakeBright     int  `json:"wake_bright"`
	SunriseMinutes int  `json:"sunrise_minutes"`
}

type bleBody struct {
	State       string `json:"state"`
	Advertising bool   `json:"advertising"`
	Connected   bool   `json:"connected"`
	PeerAddr    string `json:"peer_addr,omitempty"`
	Degraded    bool   `json:"degraded"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.dev.Snapshot()

	body := statusBody{
		Mode:        snap.Mode.String(),
		BootID:      snap.BootID,
		ClockSane:   snap.ClockSane,
		ClockOffset: snap.ClockOffset.String(),
		Battery:     snap.Battery,
		Settings: settingsBody{
			AlarmHour:      snap.Settings.AlarmHour,
			AlarmMinute:    snap.Settings.AlarmMinute,
			AlarmEnabled:   snap.Settings.AlarmEnabled,
			ColorTemp:      snap.Settings.ColorTemp,
			WakeBright:     snap.Settings.WakeBright,
			SunriseMinutes: snap.Settings.SunriseMinutes,
		},
	}
	if snap.NextOK {
		body.NextWake = snap.NextWake.Format(time.RFC3339)
	}
	if s.session != nil {
		info := s.session.Info()
		body.BLE = bleBody{
			State:       info.State.String(),
			Advertising: info.Advertising,
			Connected:   info.Connected,
			PeerAddr:    info.PeerAddr,
			Degraded:    info.Degraded,
		}
	}

	writeJSON(w, body)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries := []journal.Entry{}
	if s.history != nil {
		var err error
		if raw := r.URL.Query().Get("type"); raw != "" {
			entries, err = s.history.RecentByType(journal.EventType(raw), limit)
		} else {
			entries, err = s.history.Recent(limit)
		}
		if err != nil {
			log.Error().Err(err).Msg("journal query failed")
			http.Error(w, "journal query failed", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("status response write failed")
	}
}
