/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package countdown provides the one-second countdown used for play and break segments.
package countdown

import "time"

// Interval is the tick period of every countdown.
const Interval = time.Second

// Ticker schedules fn every d until the returned stop func is called.
// Implementations must deliver fn on the goroutine that owns the Timer.
type Ticker interface {
	Every(d time.Duration, fn func()) (stop func())
}

// Timer is a single-shot countdown. It is not safe for concurrent use; all
// calls and ticks are expected on one goroutine (see internal/loop).
type Timer struct {
	ticker    Ticker
	remaining int
	running   bool
	gen       uint64
	stop      func()
	onTick    func(remaining int)
}

// New creates an idle timer driven by ticker.
func New(ticker Ticker) *Timer {
	return &Timer{ticker: ticker}
}

// OnTick registers an observer called after every tick with the new remaining value.
func (t *Timer) OnTick(fn func(remaining int)) {
	t.onTick = fn
}

// Start begins counting down from seconds. A run already in progress is
// cancelled first. onComplete fires exactly once when the countdown elapses.
func (t *Timer) Start(seconds int, onComplete func()) {
	t.Cancel()
	if seconds < 0 {
		seconds = 0
	}
	t.gen++
	gen := t.gen
	t.remaining = seconds
	t.running = true
	t.stop = t.ticker.Every(Interval, func() {
		t.tick(gen, onComplete)
	})
}

// Cancel stops the countdown without firing onComplete. Safe to call when idle.
func (t *Timer) Cancel() {
	if !t.running {
		return
	}
	t.halt()
}

// Remaining returns the seconds left in the current or last run.
func (t *Timer) Remaining() int {
	return t.remaining
}

// Running reports whether a countdown is in progress.
func (t *Timer) Running() bool {
	return t.running
}

func (t *Timer) tick(gen uint64, onComplete func()) {
	// Ticks already queued for a cancelled or replaced run are dropped.
	if gen != t.gen || !t.running {
		return
	}
	if t.remaining <= 1 {
		t.halt()
		t.remaining = 0
		t.notify()
		if onComplete != nil {
			onComplete()
		}
		return
	}
	t.remaining--
	t.notify()
}

func (t *Timer) halt() {
	t.running = false
	t.gen++
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

func (t *Timer) notify() {
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
}
