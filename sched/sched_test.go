package sched

import (
	"testing"
	"time"
)

func TestTickOrder(t *testing.T) {
	l := NewLoop(nil)
	var order []string
	l.AddPoll(func() { order = append(order, "poll") })
	l.Post(func() { order = append(order, "task") })
	l.Tick()
	want := []string{"task", "poll"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("got %v, want %v", order, want)
	}
}

func TestPostRunsOnce(t *testing.T) {
	l := NewLoop(nil)
	fired := 0
	l.Post(func() { fired++ })
	l.Tick()
	l.Tick()
	if fired != 1 {
		t.Errorf("posted task ran %v times, want 1", fired)
	}
}

func TestPollRunsEveryTick(t *testing.T) {
	l := NewLoop(nil)
	fired := 0
	dispose := l.AddPoll(func() { fired++ })
	l.Tick()
	l.Tick()
	if fired != 2 {
		t.Errorf("poll ran %v times, want 2", fired)
	}
	dispose()
	l.Tick()
	if fired != 2 {
		t.Error("disposed poll still ran")
	}
}

func TestPollCount(t *testing.T) {
	l := NewLoop(nil)
	if l.PollCount() != 0 {
		t.Fatal("fresh loop has polls")
	}
	d1 := l.AddPoll(func() {})
	d2 := l.AddPoll(func() {})
	if l.PollCount() != 2 {
		t.Errorf("got %v, want 2", l.PollCount())
	}
	d1()
	d2()
	if l.PollCount() != 0 {
		t.Errorf("got %v after disposal, want 0", l.PollCount())
	}
}

func TestPanicIsolated(t *testing.T) {
	l := NewLoop(nil)
	fired := false
	l.Post(func() { panic("boom") })
	l.AddPoll(func() { fired = true })
	l.Tick()
	if !fired {
		t.Error("a panicking task stopped the tick")
	}
}

func TestDisposeDuringTick(t *testing.T) {
	l := NewLoop(nil)
	var dispose Disposer
	fired := 0
	dispose = l.AddPoll(func() {
		fired++
		dispose()
	})
	l.Tick()
	l.Tick()
	if fired != 1 {
		t.Errorf("self-disposing poll ran %v times, want 1", fired)
	}
}

func TestFakeClockAdvance(t *testing.T) {
	c := NewFakeClock()
	fired := 0
	c.AfterFunc(600*time.Millisecond, func() { fired++ })
	c.Advance(599 * time.Millisecond)
	if fired != 0 {
		t.Fatal("timer fired early")
	}
	c.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("timer fired %v times after deadline, want 1", fired)
	}
	c.Advance(time.Hour)
	if fired != 1 {
		t.Error("timer fired again")
	}
}

func TestFakeClockStop(t *testing.T) {
	c := NewFakeClock()
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Error("stopping a pending timer reports false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if timer.Stop() {
		t.Error("second stop reports true")
	}
}

func TestFakeClockOrder(t *testing.T) {
	c := NewFakeClock()
	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "late") })
	c.AfterFunc(time.Second, func() { order = append(order, "early") })
	c.Advance(3 * time.Second)
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Errorf("got %v, want early then late", order)
	}
}
