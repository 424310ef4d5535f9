// Package journal is the device's append-only event history: boots,
// mode changes, configuration writes, peer activity. The status surface
// reads it back; old entries are purged on boot.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType classifies a journal entry.
type EventType string

const (
	EventBoot          EventType = "boot"
	EventModeChange    EventType = "mode_change"
	EventAlarmFired    EventType = "alarm_fired"
	EventConfigWrite   EventType = "config_write"
	EventTimeSync      EventType = "time_sync"
	EventBLEConnect    EventType = "ble_connect"
	EventBLEDisconnect EventType = "ble_disconnect"
)

// Entry is one recorded event.
type Entry struct {
	ID        int64          `json:"id"`
	EventType EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
	Source    string         `json:"source,omitempty"`
}

// Journal provides append-only event logging over the journal table.
type Journal struct {
	db     *sql.DB
	source string
}

// New creates a journal bound to the given database connection. Entries
// are tagged with source, the boot id, so history spanning restarts
// stays attributable.
func New(db *sql.DB, source string) *Journal {
	return &Journal{db: db, source: source}
}

// Append records one event. The payload is stored as JSON.
func (j *Journal) Append(eventType EventType, payload map[string]any) error {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err := j.db.Exec(
		`INSERT INTO journal (event_type, timestamp, payload, source) VALUES (?, ?, ?, ?)`,
		string(eventType), time.Now().UTC().Unix(), string(payloadJSON), j.source,
	)
	return err
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, event_type, timestamp, payload, source
		FROM journal
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// RecentByType returns the newest entries of one type, most recent first.
func (j *Journal) RecentByType(eventType EventType, limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, event_type, timestamp, payload, source
		FROM journal
		WHERE event_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries past the retention window and reports
// how many went.
func (j *Journal) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := j.db.Exec(`DELETE FROM journal WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, source sql.NullString
		var timestamp int64

		if err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &payloadStr, &source); err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if source.Valid {
			entry.Source = source.String
		}
		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
