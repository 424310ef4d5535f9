package alarm

import (
	"testing"
	"time"
)

// A quiet Tuesday well past the sanity epoch.
var base = time.Date(2024, 3, 12, 6, 0, 0, 0, time.Local)

func TestNextWake(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		hour    int
		minute  int
		enabled bool
		sunrise time.Duration
		want    time.Duration
	}{
		{
			name: "later_today",
			now:  base, // 06:00
			hour: 7, minute: 30, enabled: true,
			sunrise: 30 * time.Minute,
			want:    time.Hour, // gradient starts 07:00
		},
		{
			name: "already_passed_rolls_to_tomorrow",
			now:  base, // 06:00
			hour: 5, minute: 0, enabled: true,
			sunrise: 30 * time.Minute,
			want:    22*time.Hour + 30*time.Minute, // 04:30 tomorrow
		},
		{
			name: "start_exactly_now_rolls_to_tomorrow",
			now:  base, // 06:00
			hour: 6, minute: 30, enabled: true,
			sunrise: 30 * time.Minute,
			want:    24 * time.Hour,
		},
		{
			name: "alarm_now_gradient_already_started",
			now:  base, // 06:00
			hour: 6, minute: 0, enabled: true,
			sunrise: 30 * time.Minute,
			want:    23*time.Hour + 30*time.Minute, // 05:30 tomorrow
		},
		{
			name: "sub_second_gap_clamps_to_one_second",
			now:  base.Add(-500 * time.Millisecond), // 05:59:59.5
			hour: 6, minute: 30, enabled: true,
			sunrise: 30 * time.Minute,
			want:    minDelay,
		},
		{
			name: "disabled_returns_fallback",
			now:  base,
			hour: 7, minute: 30, enabled: false,
			sunrise: 30 * time.Minute,
			want:    FallbackDelay,
		},
		{
			name: "insane_clock_returns_fallback",
			now:  time.Unix(SaneEpoch-1, 0),
			hour: 7, minute: 30, enabled: true,
			sunrise: 30 * time.Minute,
			want:    FallbackDelay,
		},
		{
			name: "just_below_epoch_still_insane",
			now:  time.Unix(SaneEpoch, 0).Add(-time.Hour),
			hour: 7, minute: 30, enabled: true,
			sunrise: 30 * time.Minute,
			want:    FallbackDelay,
		},
		{
			name: "zero_sunrise_lead",
			now:  base,
			hour: 6, minute: 1, enabled: true,
			sunrise: 0,
			want:    time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWake(tt.now, tt.hour, tt.minute, tt.enabled, tt.sunrise)
			if got != tt.want {
				t.Errorf("NextWake() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextWakeNeverBelowOneSecond(t *testing.T) {
	// Sweep the alarm across the whole day, including the slot equal to
	// the current time, with the clock sitting at awkward sub-second
	// offsets.
	for _, nowOffset := range []time.Duration{0, time.Millisecond, 999 * time.Millisecond} {
		now := base.Add(nowOffset)
		for hour := 0; hour < 24; hour++ {
			for _, minute := range []int{0, 29, 30, 31, 59} {
				got := NextWake(now, hour, minute, true, 30*time.Minute)
				if got < time.Second {
					t.Fatalf("NextWake(now=%v, %02d:%02d) = %v, below one second", now, hour, minute, got)
				}
			}
		}
	}
}

func TestStartTime(t *testing.T) {
	t.Run("subtracts_sunrise_lead", func(t *testing.T) {
		start, ok := StartTime(base, 7, 30, true, 45*time.Minute)
		if !ok {
			t.Fatal("StartTime() not ok")
		}
		want := time.Date(2024, 3, 12, 6, 45, 0, 0, time.Local)
		if !start.Equal(want) {
			t.Errorf("StartTime() = %v, want %v", start, want)
		}
	})

	t.Run("disabled_not_ok", func(t *testing.T) {
		if _, ok := StartTime(base, 7, 30, false, time.Minute); ok {
			t.Error("StartTime() ok for disabled alarm")
		}
	})

	t.Run("insane_clock_not_ok", func(t *testing.T) {
		if _, ok := StartTime(time.Unix(1000, 0), 7, 30, true, time.Minute); ok {
			t.Error("StartTime() ok for insane clock")
		}
	})
}
