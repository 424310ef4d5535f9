// Package telemetry publishes device state and events over MQTT.
// Publishing is strictly best-effort: a slow or absent broker must
// never hold up the control loop, so failures are returned for logging
// and otherwise dropped.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the retained device snapshot published on every change.
type State struct {
	Timestamp   string `json:"timestamp"`
	Mode        string `json:"mode"`
	Battery     int    `json:"battery"`
	NextWake    string `json:"next_wake,omitempty"`
	Advertising bool   `json:"advertising"`
	Connected   bool   `json:"connected"`
}

// Event is a one-off occurrence: an alarm firing, a config write.
type Event struct {
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"type"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Publisher pushes telemetry to the broker.
type Publisher interface {
	// PublishState sends the retained state snapshot.
	PublishState(s State) error
	// PublishEvent sends a one-off event.
	PublishEvent(e Event) error
	Close() error
}

// StateTopic and EventTopic name the topics for a device id.
func StateTopic(deviceID string) string { return fmt.Sprintf("dawnlamp/%s/state", deviceID) }
func EventTopic(deviceID string) string { return fmt.Sprintf("dawnlamp/%s/event", deviceID) }

// FormatState renders the state payload.
func FormatState(s State) ([]byte, error) {
	if s.Timestamp == "" {
		s.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(s)
}

// FormatEvent renders the event payload.
func FormatEvent(e Event) ([]byte, error) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(e)
}

// Nop is the publisher used when no broker is configured.
type Nop struct{}

func (Nop) PublishState(State) error { return nil }
func (Nop) PublishEvent(Event) error { return nil }
func (Nop) Close() error             { return nil }
