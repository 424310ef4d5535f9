package hw

import (
	"testing"
	"time"
)

func TestMix(t *testing.T) {
	tests := []struct {
		name       string
		brightness int
		colorTemp  int
		wantWarm   int
		wantCool   int
	}{
		{name: "off", brightness: 0, colorTemp: 50, wantWarm: 0, wantCool: 0},
		{name: "full_warm", brightness: 80, colorTemp: 100, wantWarm: 80, wantCool: 0},
		{name: "full_cool", brightness: 80, colorTemp: 0, wantWarm: 0, wantCool: 80},
		{name: "even_split", brightness: 80, colorTemp: 50, wantWarm: 40, wantCool: 40},
		{name: "warm_floor", brightness: 1, colorTemp: 1, wantWarm: 1, wantCool: 1},
		{name: "cool_floor", brightness: 1, colorTemp: 99, wantWarm: 1, wantCool: 1},
		{name: "both_floors", brightness: 1, colorTemp: 50, wantWarm: 1, wantCool: 1},
		{name: "low_budget_warm_share", brightness: 10, colorTemp: 5, wantWarm: 1, wantCool: 9},
		{name: "clamp_high", brightness: 150, colorTemp: 200, wantWarm: 100, wantCool: 0},
		{name: "clamp_low", brightness: -5, colorTemp: 50, wantWarm: 0, wantCool: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warm, cool := Mix(tt.brightness, tt.colorTemp)
			if warm != tt.wantWarm || cool != tt.wantCool {
				t.Fatalf("Mix(%d, %d) = (%d, %d), want (%d, %d)",
					tt.brightness, tt.colorTemp, warm, cool, tt.wantWarm, tt.wantCool)
			}
		})
	}
}

// A channel whose share of the budget is non-zero must never round down
// to zero percent, no matter the split.
func TestMixFloor(t *testing.T) {
	for b := 1; b <= 100; b++ {
		for ct := 0; ct <= 100; ct++ {
			warm, cool := Mix(b, ct)
			if ct > 0 && warm == 0 {
				t.Fatalf("Mix(%d, %d): warm rounded to zero", b, ct)
			}
			if ct < 100 && cool == 0 {
				t.Fatalf("Mix(%d, %d): cool rounded to zero", b, ct)
			}
		}
	}
}

func TestClassifierShortPress(t *testing.T) {
	c := newClassifier(2 * time.Second)
	now := time.Unix(0, 0)

	if got := c.update(true, now); got != EventNone {
		t.Fatalf("press down: got %v, want none", got)
	}
	now = now.Add(500 * time.Millisecond)
	if got := c.update(true, now); got != EventNone {
		t.Fatalf("held below threshold: got %v, want none", got)
	}
	now = now.Add(500 * time.Millisecond)
	if got := c.update(false, now); got != EventShort {
		t.Fatalf("release before threshold: got %v, want short", got)
	}
}

func TestClassifierLongPressFiresOnceWhileHeld(t *testing.T) {
	c := newClassifier(2 * time.Second)
	now := time.Unix(0, 0)

	c.update(true, now)
	longs := 0
	for i := 0; i < 30; i++ {
		now = now.Add(200 * time.Millisecond)
		switch got := c.update(true, now); got {
		case EventLong:
			longs++
		case EventShort:
			t.Fatalf("short while held at +%v", now.Sub(time.Unix(0, 0)))
		}
	}
	if longs != 1 {
		t.Fatalf("got %d long events while held, want exactly 1", longs)
	}
	// The matching release is silent.
	now = now.Add(200 * time.Millisecond)
	if got := c.update(false, now); got != EventNone {
		t.Fatalf("release after long: got %v, want none", got)
	}
}

func TestClassifierLongPressAtThreshold(t *testing.T) {
	c := newClassifier(2 * time.Second)
	now := time.Unix(0, 0)

	c.update(true, now)
	if got := c.update(true, now.Add(2*time.Second)); got != EventLong {
		t.Fatalf("held exactly threshold: got %v, want long", got)
	}
}

// A hold that crosses the threshold between polls must not report a
// short press on release, even if no poll saw the button held.
func TestClassifierOvershootReleaseSilent(t *testing.T) {
	c := newClassifier(2 * time.Second)
	now := time.Unix(0, 0)

	c.update(true, now)
	if got := c.update(false, now.Add(3*time.Second)); got != EventNone {
		t.Fatalf("release after overshoot: got %v, want none", got)
	}
}

func TestClassifierIdle(t *testing.T) {
	c := newClassifier(2 * time.Second)
	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		if got := c.update(false, now); got != EventNone {
			t.Fatalf("idle poll: got %v, want none", got)
		}
	}
}

func TestClassifierConsecutivePresses(t *testing.T) {
	c := newClassifier(2 * time.Second)
	now := time.Unix(0, 0)

	// Long press, then a fresh short press must classify independently.
	c.update(true, now)
	if got := c.update(true, now.Add(2*time.Second)); got != EventLong {
		t.Fatal("first hold did not classify long")
	}
	c.update(false, now.Add(2200*time.Millisecond))

	c.update(true, now.Add(3*time.Second))
	if got := c.update(false, now.Add(3500*time.Millisecond)); got != EventShort {
		t.Fatalf("second press: got %v, want short", got)
	}
}
