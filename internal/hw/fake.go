package hw

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FakeDisplay records display calls for tests.
type FakeDisplay struct {
	mu      sync.Mutex
	hour    int
	minute  int
	showing bool
	enabled bool
	clears  int
	closed  bool
	err     error
}

func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

// FailWith makes every subsequent display call return err.
func (d *FakeDisplay) FailWith(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *FakeDisplay) Show(hour, minute int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.hour, d.minute, d.showing = hour, minute, true
	return nil
}

func (d *FakeDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.showing = false
	d.clears++
	return nil
}

func (d *FakeDisplay) SetEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.enabled = enabled
	return nil
}

func (d *FakeDisplay) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Showing reports the digits currently rendered.
func (d *FakeDisplay) Showing() (hour, minute int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hour, d.minute, d.showing
}

func (d *FakeDisplay) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *FakeDisplay) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

// FakeLight records the last mix for tests. Fades jump straight to the
// target.
type FakeLight struct {
	mu     sync.Mutex
	warm   int
	cool   int
	fade   time.Duration
	offs   int
	closed bool
	err    error
}

func NewFakeLight() *FakeLight {
	return &FakeLight{}
}

// FailWith makes every subsequent light call return err.
func (l *FakeLight) FailWith(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *FakeLight) SetMix(warm, cool int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.warm, l.cool, l.fade = warm, cool, 0
	return nil
}

func (l *FakeLight) SetMixFade(warm, cool int, fade time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.warm, l.cool, l.fade = warm, cool, fade
	return nil
}

func (l *FakeLight) Off() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.warm, l.cool = 0, 0
	l.offs++
	return nil
}

func (l *FakeLight) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

// Current returns the last applied mix.
func (l *FakeLight) Current() (warm, cool int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warm, l.cool
}

func (l *FakeLight) LastFade() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fade
}

func (l *FakeLight) OffCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offs
}

// FakeBattery serves scripted percentages in order, repeating the last.
type FakeBattery struct {
	mu      sync.Mutex
	samples []int
	index   int
	err     error
	reads   int
}

func NewFakeBattery(percents ...int) *FakeBattery {
	return &FakeBattery{samples: percents}
}

// FailWith makes every subsequent read return err.
func (b *FakeBattery) FailWith(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

func (b *FakeBattery) ReadPercent(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	if b.err != nil {
		return 0, b.err
	}
	if len(b.samples) == 0 {
		return 0, errors.New("no battery samples scripted")
	}
	p := b.samples[b.index]
	if b.index < len(b.samples)-1 {
		b.index++
	}
	return p, nil
}

func (b *FakeBattery) Close() error {
	return nil
}

func (b *FakeBattery) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

// FakeButton classifies presses of a level the test sets directly.
type FakeButton struct {
	mu      sync.Mutex
	cls     classifier
	pressed bool
}

func NewFakeButton(threshold time.Duration) *FakeButton {
	return &FakeButton{cls: newClassifier(threshold)}
}

func (b *FakeButton) SetPressed(pressed bool) {
	b.mu.Lock()
	b.pressed = pressed
	b.mu.Unlock()
}

func (b *FakeButton) Poll(now time.Time) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cls.update(b.pressed, now)
}

func (b *FakeButton) Close() error {
	return nil
}
