// Package settings holds the persisted device configuration: the alarm,
// the light targets and the sunrise length. A record that cannot be read
// back cleanly is replaced wholesale by the documented defaults, never
// repaired field by field.
package settings

import (
	"errors"
	"fmt"
	"time"
)

// Namespace keys the configuration record in the settings table.
const Namespace = "cfg"

// Documented defaults, written whenever the stored record is missing or
// fails validation.
const (
	DefaultAlarmHour      = 7
	DefaultAlarmMinute    = 0
	DefaultAlarmEnabled   = true
	DefaultColorTemp      = 50
	DefaultWakeBright     = 100
	DefaultSunriseMinutes = 30
)

// ErrNotFound reports a missing configuration record.
var ErrNotFound = errors.New("settings record not found")

// Settings is the device configuration. All fields are range-checked
// independently by Validate.
type Settings struct {
	AlarmHour      int  // 0-23
	AlarmMinute    int  // 0-59
	AlarmEnabled   bool
	ColorTemp      int // 0-100, 0 fully cool, 100 fully warm
	WakeBright     int // 0-100, gradient and manual-mode target
	SunriseMinutes int // 1-60
}

// Defaults returns the documented default configuration.
func Defaults() Settings {
	return Settings{
		AlarmHour:      DefaultAlarmHour,
		AlarmMinute:    DefaultAlarmMinute,
		AlarmEnabled:   DefaultAlarmEnabled,
		ColorTemp:      DefaultColorTemp,
		WakeBright:     DefaultWakeBright,
		SunriseMinutes: DefaultSunriseMinutes,
	}
}

// Validate range-checks every field independently.
func (s Settings) Validate() error {
	if s.AlarmHour < 0 || s.AlarmHour > 23 {
		return fmt.Errorf("alarm_hour %d out of range", s.AlarmHour)
	}
	if s.AlarmMinute < 0 || s.AlarmMinute > 59 {
		return fmt.Errorf("alarm_minute %d out of range", s.AlarmMinute)
	}
	if s.ColorTemp < 0 || s.ColorTemp > 100 {
		return fmt.Errorf("color_temp %d out of range", s.ColorTemp)
	}
	if s.WakeBright < 0 || s.WakeBright > 100 {
		return fmt.Errorf("wake_bright %d out of range", s.WakeBright)
	}
	if s.SunriseMinutes < 1 || s.SunriseMinutes > 60 {
		return fmt.Errorf("sunrise_minutes %d out of range", s.SunriseMinutes)
	}
	return nil
}

// SunriseDuration returns the sunrise length as a duration.
func (s Settings) SunriseDuration() time.Duration {
	return time.Duration(s.SunriseMinutes) * time.Minute
}

// Store persists one configuration record.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// LoadOrReset returns the stored configuration. When the record is absent,
// unreadable or out of range, the defaults are returned and saved back so
// the next boot reads a clean record; reset reports that this happened.
// A non-nil error means only that the reset could not be persisted - the
// returned defaults are still usable.
func LoadOrReset(store Store) (cfg Settings, reset bool, err error) {
	cfg, loadErr := store.Load()
	if loadErr == nil && cfg.Validate() == nil {
		return cfg, false, nil
	}

	cfg = Defaults()
	if saveErr := store.Save(cfg); saveErr != nil {
		return cfg, true, fmt.Errorf("failed to save defaults: %w", saveErr)
	}
	return cfg, true, nil
}
