// Package config loads the daemon's YAML configuration. Environment
// variables in ${VAR} or ${VAR:default} form are expanded before
// unmarshalling, and a missing file runs the daemon on defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	BLE       BLEConfig       `yaml:"ble"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Device    DeviceConfig    `yaml:"device"`
	Curve     CurveConfig     `yaml:"curve"`
	Journal   JournalConfig   `yaml:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Status    StatusConfig    `yaml:"status"`

	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`

	// File enables an additional rotating log file when set.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DBConfig contains database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// BLEConfig contains peripheral session settings. The retry backoffs
// default to the values the session state machine was tuned with.
type BLEConfig struct {
	DeviceName string `yaml:"device_name"`

	RetryDisconnect Duration `yaml:"retry_disconnect"`
	RetryStop       Duration `yaml:"retry_stop"`
	RetryStart      Duration `yaml:"retry_start"`
	SelfHealTick    Duration `yaml:"self_heal_tick"`

	BatteryNotifyPeriod Duration `yaml:"battery_notify_period"`
}

// HardwareConfig selects and parameterizes the peripheral adapters.
// Fake defaults every adapter to its in-process fake, for development
// hosts without the lamp hardware.
type HardwareConfig struct {
	Fake bool `yaml:"fake"`

	Button  ButtonConfig  `yaml:"button"`
	Display DisplayConfig `yaml:"display"`
	Light   LightConfig   `yaml:"light"`
	Battery BatteryConfig `yaml:"battery"`
}

// ButtonConfig describes the user button line.
type ButtonConfig struct {
	Chip       string   `yaml:"chip"`
	Line       int      `yaml:"line"`
	ActiveHigh bool     `yaml:"active_high"` // stock wiring is active-low
	LongPress  Duration `yaml:"long_press"`
}

// DisplayConfig describes the CH455 display lines.
type DisplayConfig struct {
	Chip      string `yaml:"chip"`
	SDALine   int    `yaml:"sda_line"`
	SCLLine   int    `yaml:"scl_line"`
	Intensity int    `yaml:"intensity"` // 0-7, 0 = full drive
}

// LightConfig describes the warm/cool PWM pair.
type LightConfig struct {
	WarmPath string `yaml:"warm_path"`
	CoolPath string `yaml:"cool_path"`
}

// BatteryConfig describes the battery sampling path.
type BatteryConfig struct {
	Chip       string `yaml:"chip"`
	EnableLine int    `yaml:"enable_line"`
	RawPath    string `yaml:"raw_path"`
}

// DeviceConfig contains the orchestrator's timing knobs.
type DeviceConfig struct {
	PollInterval   Duration `yaml:"poll_interval"`
	ShowTimeWindow Duration `yaml:"show_time_window"`
}

// CurveConfig selects the wake-gradient curve.
type CurveConfig struct {
	// Script points at a Lua file defining curve(p); empty runs the
	// builtin cubic ease-in.
	Script string `yaml:"script"`
}

// JournalConfig contains event history settings.
type JournalConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// TelemetryConfig contains MQTT settings. Telemetry is off unless a
// broker is configured.
type TelemetryConfig struct {
	Broker   string   `yaml:"broker"`
	DeviceID string   `yaml:"device_id"`
	Timeout  Duration `yaml:"timeout"`
}

// StatusConfig contains the read-only HTTP status listener settings.
// The listener is off unless an address is configured.
type StatusConfig struct {
	Listen string `yaml:"listen"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file. A missing file is not
// an error: the daemon runs on defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, err
	default:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 14
	}

	if cfg.DB.Path == "" {
		cfg.DB.Path = "/var/lib/dawnlamp/dawnlamp.db"
	}

	if cfg.BLE.DeviceName == "" {
		cfg.BLE.DeviceName = "dawnlamp"
	}
	if cfg.BLE.RetryDisconnect == 0 {
		cfg.BLE.RetryDisconnect = Duration(50 * time.Millisecond)
	}
	if cfg.BLE.RetryStop == 0 {
		cfg.BLE.RetryStop = Duration(200 * time.Millisecond)
	}
	if cfg.BLE.RetryStart == 0 {
		cfg.BLE.RetryStart = Duration(800 * time.Millisecond)
	}
	if cfg.BLE.SelfHealTick == 0 {
		cfg.BLE.SelfHealTick = Duration(2 * time.Second)
	}
	if cfg.BLE.BatteryNotifyPeriod == 0 {
		cfg.BLE.BatteryNotifyPeriod = Duration(60 * time.Second)
	}

	if cfg.Hardware.Button.Chip == "" {
		cfg.Hardware.Button.Chip = "gpiochip0"
	}
	if cfg.Hardware.Button.LongPress == 0 {
		cfg.Hardware.Button.LongPress = Duration(2 * time.Second)
	}
	if cfg.Hardware.Display.Chip == "" {
		cfg.Hardware.Display.Chip = "gpiochip0"
	}
	if cfg.Hardware.Battery.Chip == "" {
		cfg.Hardware.Battery.Chip = "gpiochip0"
	}

	if cfg.Device.PollInterval == 0 {
		cfg.Device.PollInterval = Duration(200 * time.Millisecond)
	}
	if cfg.Device.ShowTimeWindow == 0 {
		cfg.Device.ShowTimeWindow = Duration(5 * time.Second)
	}

	if cfg.Journal.RetentionDays == 0 {
		cfg.Journal.RetentionDays = 30
	}

	if cfg.Telemetry.DeviceID == "" {
		cfg.Telemetry.DeviceID = "dawnlamp"
	}
	if cfg.Telemetry.Timeout == 0 {
		cfg.Telemetry.Timeout = Duration(5 * time.Second)
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate rejects configurations the daemon cannot run with.
func (cfg *Config) Validate() error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug/info/warn/error", cfg.Log.Level)
	}
	if d := cfg.Device.PollInterval.Duration(); d < 10*time.Millisecond {
		return fmt.Errorf("device.poll_interval %s is below 10ms", d)
	}
	if d := cfg.Hardware.Button.LongPress.Duration(); d < cfg.Device.PollInterval.Duration() {
		return fmt.Errorf("hardware.button.long_press %s is below the poll interval", d)
	}
	if cfg.Journal.RetentionDays < 1 {
		return fmt.Errorf("journal.retention_days %d is below 1", cfg.Journal.RetentionDays)
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or
// ${VAR:default}.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
