package status

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"dawnlamp/internal/ble"
	"dawnlamp/internal/device"
	"dawnlamp/internal/journal"
	"dawnlamp/internal/settings"
)

type stubDevices struct {
	snap device.Snapshot
}

func (d *stubDevices) Snapshot() device.Snapshot { return d.snap }

type stubSessions struct {
	info ble.Info
}

func (s *stubSessions) Info() ble.Info { return s.info }

// stubHistory records which query the server issued.
type stubHistory struct {
	entries []journal.Entry

	gotType  journal.EventType
	gotLimit int
	byType   bool
}

func (h *stubHistory) Recent(limit int) ([]journal.Entry, error) {
	h.gotLimit = limit
	h.byType = false
	return h.entries, nil
}

func (h *stubHistory) RecentByType(eventType journal.EventType, limit int) ([]journal.Entry, error) {
	h.gotType = eventType
	h.gotLimit = limit
	h.byType = true
	return h.entries, nil
}

func TestHandleStatus(t *testing.T) {
	dev := &stubDevices{snap: device.Snapshot{
		Mode:        device.ModeShowTime,
		Settings:    settings.Defaults(),
		NextWake:    time.Date(2024, 6, 2, 6, 30, 0, 0, time.UTC),
		NextOK:      true,
		Battery:     72,
		ClockSane:   true,
		ClockOffset: 90 * time.Second,
		BootID:      "boot-1",
	}}
	session := &stubSessions{info: ble.Info{
		State:       ble.StateConnected,
		Advertising: false,
		Connected:   true,
		PeerAddr:    "AA:BB:CC:DD:EE:FF",
	}}
	srv := NewServer(":0", dev, session, nil)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body statusBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Mode != "show_time" {
		t.Errorf("mode = %q, want show_time", body.Mode)
	}
	if body.ClockOffset != "1m30s" {
		t.Errorf("clock_offset = %q, want 1m30s", body.ClockOffset)
	}
	if body.NextWake != "2024-06-02T06:30:00Z" {
		t.Errorf("next_wake = %q", body.NextWake)
	}
	if !body.BLE.Connected || body.BLE.PeerAddr != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("ble = %+v", body.BLE)
	}
}

func TestHandleJournal(t *testing.T) {
	history := &stubHistory{entries: []journal.Entry{
		{ID: 1, EventType: journal.EventBoot, Source: "boot-1"},
	}}
	srv := NewServer(":0", &stubDevices{}, nil, history)

	t.Run("default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.handleJournal(rec, httptest.NewRequest("GET", "/journal", nil))
		if rec.Code != 200 {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if history.byType || history.gotLimit != 50 {
			t.Errorf("query = (byType=%v, limit=%d), want plain Recent(50)", history.byType, history.gotLimit)
		}
	})

	t.Run("type_filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.handleJournal(rec, httptest.NewRequest("GET", "/journal?type=mode_change&limit=5", nil))
		if rec.Code != 200 {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !history.byType || history.gotType != journal.EventModeChange || history.gotLimit != 5 {
			t.Errorf("query = (byType=%v, type=%q, limit=%d), want RecentByType(mode_change, 5)",
				history.byType, history.gotType, history.gotLimit)
		}
	})

	t.Run("limit_out_of_range", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.handleJournal(rec, httptest.NewRequest("GET", "/journal?limit=9000", nil))
		if history.gotLimit != 50 {
			t.Errorf("limit = %d, want the 50 default", history.gotLimit)
		}
	})
}

func TestHandleJournalNoHistory(t *testing.T) {
	srv := NewServer(":0", &stubDevices{}, nil, nil)

	rec := httptest.NewRecorder()
	srv.handleJournal(rec, httptest.NewRequest("GET", "/journal", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries without a journal, want 0", len(entries))
	}
}
