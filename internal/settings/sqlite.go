package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Field keys inside the record, one row each.
const (
	keyAlarmHour    = "alarm_h"
	keyAlarmMinute  = "alarm_m"
	keyAlarmEnabled = "alarm_en"
	keyColorTemp    = "color_temp"
	keyWakeBright   = "wake_bright"
	keySunriseMin   = "sunrise_min"
)

// SQLiteStore persists the configuration in the settings table.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteStore creates a store over the given database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, namespace: Namespace}
}

// Load reads the full record. Any missing field yields ErrNotFound so the
// caller's wholesale-reset rule kicks in.
func (s *SQLiteStore) Load() (Settings, error) {
	rows, err := s.db.Query(`
		SELECT key, value FROM settings WHERE namespace = ?
	`, s.namespace)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("failed to scan settings row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	var cfg Settings
	fields := []struct {
		key string
		dst *int
	}{
		{keyAlarmHour, &cfg.AlarmHour},
		{keyAlarmMinute, &cfg.AlarmMinute},
		{keyColorTemp, &cfg.ColorTemp},
		{keyWakeBright, &cfg.WakeBright},
		{keySunriseMin, &cfg.SunriseMinutes},
	}
	for _, f := range fields {
		raw, ok := values[f.key]
		if !ok {
			return Settings{}, fmt.Errorf("%w: missing %s", ErrNotFound, f.key)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: bad %s value %q", ErrNotFound, f.key, raw)
		}
		*f.dst = v
	}

	raw, ok := values[keyAlarmEnabled]
	if !ok {
		return Settings{}, fmt.Errorf("%w: missing %s", ErrNotFound, keyAlarmEnabled)
	}
	cfg.AlarmEnabled = raw == "1"

	return cfg, nil
}

// Save writes the full record in one transaction.
func (s *SQLiteStore) Save(cfg Settings) error {
	enabled := "0"
	if cfg.AlarmEnabled {
		enabled = "1"
	}
	entries := map[string]string{
		keyAlarmHour:    strconv.Itoa(cfg.AlarmHour),
		keyAlarmMinute:  strconv.Itoa(cfg.AlarmMinute),
		keyAlarmEnabled: enabled,
		keyColorTemp:    strconv.Itoa(cfg.ColorTemp),
		keyWakeBright:   strconv.Itoa(cfg.WakeBright),
		keySunriseMin:   strconv.Itoa(cfg.SunriseMinutes),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin settings save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Unix()
	for key, value := range entries {
		_, err := tx.Exec(`
			INSERT INTO settings (namespace, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, s.namespace, key, value, now)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	return tx.Commit()
}
