package testutil

import (
	"slices"
	"sync"
	"time"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
)

// FakeClock is a virtual clock.Clock for deterministic playback tests.
//
// Time only moves when the test moves it. Timers registered with AfterFunc
// fire from AdvanceNext or AdvanceWith, in deadline order; timers with the
// same deadline fire in registration order.
//
// Thread-safety: all methods are safe for concurrent use. Timer callbacks run
// on the goroutine that advances the clock, outside the clock's lock.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *FakeClock
	when  time.Time
	seq   int
	f     func()
}

// NewFakeClock creates a FakeClock reading t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the virtual time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to fire once the virtual time reaches now+d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, when: c.now.Add(max(d, 0)), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop removes the timer. Reports false if it already fired or was stopped.
func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.timers, t)
	if i < 0 {
		return false
	}
	c.timers = slices.Delete(c.timers, i, i+1)
	return true
}

// Set moves the virtual time without firing timers.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the virtual time forward without firing timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Pending returns the number of registered timers.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// AdvanceNext fires the earliest timer due at or before limit, moving the
// virtual time to its deadline. Reports false if no timer is due.
func (c *FakeClock) AdvanceNext(limit time.Time) bool {
	c.mu.Lock()
	if len(c.timers) == 0 {
		c.mu.Unlock()
		return false
	}
	next := slices.MinFunc(c.timers, func(a, b *fakeTimer) int {
		if cmp := a.when.Compare(b.when); cmp != 0 {
			return cmp
		}
		return a.seq - b.seq
	})
	if next.when.After(limit) {
		c.mu.Unlock()
		return false
	}
	c.timers = slices.DeleteFunc(c.timers, func(t *fakeTimer) bool { return t == next })
	if next.when.After(c.now) {
		c.now = next.when
	}
	c.mu.Unlock()

	next.f()
	return true
}

// AdvanceWith moves the virtual time forward by d one timer at a time,
// calling settle after each fired timer so the code under test can react
// (and register follow-up timers) before time moves on.
func (c *FakeClock) AdvanceWith(d time.Duration, settle func()) {
	target := c.Now().Add(d)
	for c.AdvanceNext(target) {
		if settle != nil {
			settle()
		}
	}
	c.mu.Lock()
	if target.After(c.now) {
		c.now = target
	}
	c.mu.Unlock()
}
