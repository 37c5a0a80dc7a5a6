// Package sched drives the cooperative update loop: a task queue, the
// polling registry for expressions with no traceable dependency, and timers
// behind a clock that tests can fake.
package sched

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Disposer func()

type Timer interface {
	Stop() bool
}

// Clock abstracts time so tooltip delays and polling can run under test
// control.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}

type pollEntry struct {
	fn   func()
	gone bool
}

// Loop owns scheduled work. Callbacks run on the goroutine that calls Tick
// or Run, matching the single-threaded cooperative model; only Post may be
// called from other goroutines.
type Loop struct {
	logger *zap.Logger
	taskMu sync.Mutex
	tasks  []func()
	polls  []*pollEntry
}

func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{logger: logger}
}

// Post queues fn to run once on the next tick, before the polls.
func (l *Loop) Post(fn func()) {
	l.taskMu.Lock()
	l.tasks = append(l.tasks, fn)
	l.taskMu.Unlock()
}

// AddPoll registers fn to run on every tick until disposed.
func (l *Loop) AddPoll(fn func()) Disposer {
	entry := &pollEntry{fn: fn}
	l.polls = append(l.polls, entry)
	return func() {
		entry.gone = true
		for i, cand := range l.polls {
			if cand == entry {
				l.polls = append(l.polls[:i], l.polls[i+1:]...)
				break
			}
		}
	}
}

// PollCount reports the live polling registrations.
func (l *Loop) PollCount() int {
	return len(l.polls)
}

// Tick runs the queued tasks, then every polling entry. A failing callback
// is logged and does not stop the tick.
func (l *Loop) Tick() {
	l.taskMu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.taskMu.Unlock()
	for _, fn := range tasks {
		l.run(fn)
	}
	snapshot := make([]*pollEntry, len(l.polls))
	copy(snapshot, l.polls)
	for _, entry := range snapshot {
		if entry.gone {
			continue
		}
		l.run(entry.fn)
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("scheduled callback failed", zap.Any("panic", r))
		}
	}()
	fn()
}

// Run ticks at a fixed rate until ctx is done.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}
