/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import "time"

// ManualTicker is a Ticker advanced by hand. Used by tests that drive
// segments second by second.
type ManualTicker struct {
	subs []*manualSub
}

type manualSub struct {
	fn     func()
	active bool
}

// NewManualTicker creates a ticker with no subscriptions.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{}
}

// Every registers fn. The interval is ignored; each Advance step fires every active fn once.
func (m *ManualTicker) Every(_ time.Duration, fn func()) func() {
	sub := &manualSub{fn: fn, active: true}
	m.subs = append(m.subs, sub)
	return func() { sub.active = false }
}

// Advance fires n ticks. Subscriptions made during a tick first fire on the next one.
func (m *ManualTicker) Advance(n int) {
	for i := 0; i < n; i++ {
		current := m.subs
		for _, sub := range current {
			if sub.active {
				sub.fn()
			}
		}
		m.compact()
	}
}

// Active returns the number of live subscriptions.
func (m *ManualTicker) Active() int {
	count := 0
	for _, sub := range m.subs {
		if sub.active {
			count++
		}
	}
	return count
}

func (m *ManualTicker) compact() {
	live := m.subs[:0]
	for _, sub := range m.subs {
		if sub.active {
			live = append(live, sub)
		}
	}
	m.subs = live
}
