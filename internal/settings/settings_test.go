package settings

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Settings) {}, ok: true},
		{name: "hour_high", mutate: func(s *Settings) { s.AlarmHour = 24 }},
		{name: "hour_negative", mutate: func(s *Settings) { s.AlarmHour = -1 }},
		{name: "minute_high", mutate: func(s *Settings) { s.AlarmMinute = 60 }},
		{name: "color_temp_high", mutate: func(s *Settings) { s.ColorTemp = 101 }},
		{name: "wake_bright_high", mutate: func(s *Settings) { s.WakeBright = 101 }},
		{name: "sunrise_zero", mutate: func(s *Settings) { s.SunriseMinutes = 0 }},
		{name: "sunrise_high", mutate: func(s *Settings) { s.SunriseMinutes = 61 }},
		{name: "boundaries", mutate: func(s *Settings) {
			s.AlarmHour = 23
			s.AlarmMinute = 59
			s.ColorTemp = 0
			s.WakeBright = 100
			s.SunriseMinutes = 60
		}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Validate() = nil, want error for %+v", cfg)
			}
		})
	}
}

func TestLoadOrReset(t *testing.T) {
	t.Run("empty_store_resets_to_defaults", func(t *testing.T) {
		store := NewMemoryStore()

		cfg, reset, err := LoadOrReset(store)
		if err != nil {
			t.Fatalf("LoadOrReset() error: %v", err)
		}
		if !reset {
			t.Error("LoadOrReset() reset = false for empty store")
		}
		if cfg != Defaults() {
			t.Errorf("LoadOrReset() = %+v, want defaults", cfg)
		}

		// The reset must have been persisted.
		saved, err := store.Load()
		if err != nil {
			t.Fatalf("Load() after reset: %v", err)
		}
		if saved != Defaults() {
			t.Errorf("stored record = %+v, want defaults", saved)
		}
	})

	t.Run("valid_record_survives", func(t *testing.T) {
		store := NewMemoryStore()
		want := Settings{
			AlarmHour: 6, AlarmMinute: 45, AlarmEnabled: false,
			ColorTemp: 20, WakeBright: 80, SunriseMinutes: 15,
		}
		if err := store.Save(want); err != nil {
			t.Fatal(err)
		}

		cfg, reset, err := LoadOrReset(store)
		if err != nil {
			t.Fatalf("LoadOrReset() error: %v", err)
		}
		if reset {
			t.Error("LoadOrReset() reset a valid record")
		}
		if cfg != want {
			t.Errorf("LoadOrReset() = %+v, want %+v", cfg, want)
		}
	})

	t.Run("invalid_record_replaced_wholesale", func(t *testing.T) {
		store := NewMemoryStore()
		// One bad field poisons the whole record, even though the other
		// fields would have been fine.
		bad := Settings{
			AlarmHour: 6, AlarmMinute: 45, AlarmEnabled: true,
			ColorTemp: 20, WakeBright: 80, SunriseMinutes: 0,
		}
		if err := store.Save(bad); err != nil {
			t.Fatal(err)
		}

		cfg, reset, err := LoadOrReset(store)
		if err != nil {
			t.Fatalf("LoadOrReset() error: %v", err)
		}
		if !reset {
			t.Error("LoadOrReset() kept an invalid record")
		}
		if cfg != Defaults() {
			t.Errorf("LoadOrReset() = %+v, want defaults", cfg)
		}
		if cfg.AlarmHour != DefaultAlarmHour {
			t.Errorf("partial repair detected: AlarmHour = %d", cfg.AlarmHour)
		}
	})
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}
