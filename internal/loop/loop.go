/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package loop runs the kiosk state machines on a single goroutine.
//
// Timer ticks, display events, HTTP actions and asynchronous speech results
// are posted as closures and handled to completion in arrival order, so the
// playback controller and cinematic presenter never need locks.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrStopped is returned when work is submitted after the loop has exited.
var ErrStopped = errors.New("event loop stopped")

// Poster accepts work for the loop goroutine.
type Poster interface {
	Post(fn func()) bool
}

// Loop is a serial executor.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// New creates a loop with a task queue of the given size.
func New(size int, logger zerolog.Logger) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{
		tasks:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "loop").Logger(),
	}
}

// Run processes tasks until ctx is cancelled. Tickers started with Every are
// stopped before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug().Msg("event loop started")
	defer func() {
		l.once.Do(func() { close(l.done) })
		l.wg.Wait()
		l.logger.Debug().Msg("event loop stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
}

// Post queues fn. It blocks while the queue is full and returns false once the loop has stopped.
// Must not be called from the loop goroutine itself.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Every posts fn to the loop every d until the returned func is called.
// The returned func is safe to call from the loop goroutine.
func (l *Loop) Every(d time.Duration, fn func()) func() {
	stop := make(chan struct{})
	var stopOnce sync.Once

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-l.done:
				return
			case <-ticker.C:
				select {
				case l.tasks <- fn:
				case <-stop:
					return
				case <-l.done:
					return
				}
			}
		}
	}()

	return func() {
		stopOnce.Do(func() { close(stop) })
	}
}

// Done is closed when the loop exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("event loop task panicked")
		}
	}()
	fn()
}
