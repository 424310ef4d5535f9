package clock

import (
	"testing"
	"time"

	"dawnlamp/internal/alarm"
)

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSetTimeOfDayKeepsDate(t *testing.T) {
	host := time.Date(2024, 3, 12, 23, 11, 5, 0, time.Local)
	c := NewWithBase(fixed(host))

	got := c.SetTimeOfDay(7, 30, 0)
	want := time.Date(2024, 3, 12, 7, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("SetTimeOfDay() = %v, want %v", got, want)
	}
	if now := c.Now(); !now.Equal(want) {
		t.Fatalf("Now() = %v after sync, want %v", now, want)
	}
}

func TestSetTimeOfDayRestoresSanity(t *testing.T) {
	// Cold boot: host clock sits near the Unix epoch.
	host := time.Unix(90_000, 0)
	c := NewWithBase(fixed(host))

	if c.Sane() {
		t.Fatal("clock sane before any sync")
	}

	got := c.SetTimeOfDay(7, 30, 0)
	if !alarm.Sane(got) {
		t.Fatalf("SetTimeOfDay() = %v, still below sanity epoch", got)
	}
	if !c.Sane() {
		t.Fatal("clock not sane after sync")
	}
	if got.Hour() != 7 || got.Minute() != 30 || got.Second() != 0 {
		t.Fatalf("SetTimeOfDay() = %v, wrong time of day", got)
	}
}

func TestSecondSyncKeepsSyncedDate(t *testing.T) {
	host := time.Unix(90_000, 0)
	c := NewWithBase(fixed(host))

	first := c.SetTimeOfDay(7, 30, 0)
	second := c.SetTimeOfDay(22, 15, 40)

	if first.Year() != second.Year() || first.YearDay() != second.YearDay() {
		t.Fatalf("second sync moved the date: %v then %v", first, second)
	}
	if second.Hour() != 22 || second.Minute() != 15 || second.Second() != 40 {
		t.Fatalf("second sync = %v, wrong time of day", second)
	}
}

func TestNowAdvancesWithBase(t *testing.T) {
	now := time.Date(2024, 3, 12, 6, 0, 0, 0, time.Local)
	c := NewWithBase(func() time.Time { return now })

	c.SetTimeOfDay(9, 0, 0)
	before := c.Now()
	now = now.Add(42 * time.Second)
	after := c.Now()

	if d := after.Sub(before); d != 42*time.Second {
		t.Fatalf("clock advanced %v, base advanced 42s", d)
	}
}
