package sched

import (
	"sort"
	"time"
)

type fakeTimer struct {
	due     time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// FakeClock is a Clock under test control: timers fire only when Advance
// moves past their deadline, on the caller's goroutine.
type FakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Unix(0, 0)}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{due: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock and fires every due timer in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].due.Before(c.timers[j].due)
	})
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		if !t.due.After(c.now) {
			t.fired = true
			t.fn()
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
}
