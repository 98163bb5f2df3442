/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package session runs the single kiosk viewing session.
//
// The playback controller and the cinematic host live on one event loop.
// Kiosk is the thread-safe facade used by HTTP handlers and the display
// bridge: every mutation is posted to the loop and the resulting snapshot
// is cached for readers.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/countdown"
	"github.com/friendsincode/kidscast/internal/display"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/loop"
	"github.com/friendsincode/kidscast/internal/playback"
)

// ErrNoCinematic is returned when a cinematic start is requested while none is mounted.
var ErrNoCinematic = &playback.Error{Kind: playback.KindInvalidTransition, Message: "No cinematic is showing."}

const teardownTimeout = 2 * time.Second

// Config wires a Kiosk.
type Config struct {
	Scripts  cinematic.Scripts
	Primary  cinematic.Voice
	Fallback cinematic.Voice
	Bridge   *display.Bridge
	Bus      *events.Bus

	// Fullscreen requesters tried after the display page, e.g. the kiosk browser.
	Fullscreen []playback.Fullscreen

	// Ticker drives countdowns. Defaults to the event loop's wall-clock ticker.
	Ticker countdown.Ticker

	SpeechTimeout time.Duration
	QueueSize     int
	Logger        zerolog.Logger
}

// Kiosk owns the event loop of the viewing session.
type Kiosk struct {
	loop   *loop.Loop
	ctrl   *playback.Controller
	host   *cinematic.Host
	bridge *display.Bridge
	bus    *events.Bus
	logger zerolog.Logger

	mu       sync.RWMutex
	snapshot playback.Snapshot
	frame    *cinematic.Frame
}

// New builds the kiosk. Nothing runs until Run is called.
func New(cfg Config) *Kiosk {
	logger := cfg.Logger.With().Str("component", "session").Logger()
	l := loop.New(cfg.QueueSize, cfg.Logger)

	bridge := cfg.Bridge
	if bridge == nil {
		bridge = display.NewBridge(nil, cfg.Logger)
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	var ticker countdown.Ticker = l
	if cfg.Ticker != nil {
		ticker = cfg.Ticker
	}

	host := cinematic.NewHost(cinematic.HostConfig{
		Scripts:  cfg.Scripts,
		Primary:  cfg.Primary,
		Fallback: cfg.Fallback,
		Stage:    bridge,
		Poster:   l,
		Timeout:  cfg.SpeechTimeout,
		Logger:   cfg.Logger,
	})

	fullscreen := append(playback.FullscreenChain{bridge}, cfg.Fullscreen...)
	ctrl := playback.New(playback.Deps{
		Ticker:     ticker,
		Cinematics: host,
		Fullscreen: fullscreen,
		Logger:     cfg.Logger,
	})

	k := &Kiosk{
		loop:   l,
		ctrl:   ctrl,
		host:   host,
		bridge: bridge,
		bus:    bus,
		logger: logger,
	}
	k.snapshot = ctrl.Snapshot()
	ctrl.Subscribe(k.onEvent)
	host.OnFrame(k.onFrame)
	bridge.SetAssets(display.AssetsFor(cfg.Scripts))
	bridge.SetSink(k)
	return k
}

// Run processes session work until ctx is cancelled, then tears the session down.
func (k *Kiosk) Run(ctx context.Context) error {
	loopCtx, stop := context.WithCancel(context.Background())
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- k.loop.Run(loopCtx) }()

	<-ctx.Done()
	k.logger.Info().Msg("stopping kiosk session")

	tctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	if err := k.loop.Call(tctx, k.teardown); err != nil {
		k.logger.Warn().Err(err).Msg("session teardown incomplete")
	}
	cancel()

	stop()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Bridge returns the display bridge served at the display websocket.
func (k *Kiosk) Bridge() *display.Bridge { return k.bridge }

// Bus returns the event bus the kiosk publishes on.
func (k *Kiosk) Bus() *events.Bus { return k.bus }

// Snapshot returns the latest session snapshot.
func (k *Kiosk) Snapshot() playback.Snapshot {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.snapshot
}

// Frame returns the last rendered cinematic frame, if a cinematic is mounted.
func (k *Kiosk) Frame() (cinematic.Frame, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.frame == nil {
		return cinematic.Frame{}, false
	}
	return *k.frame, true
}

// Configure validates and stores a playlist configuration.
func (k *Kiosk) Configure(ctx context.Context, ids []string, playSeconds, breakSeconds, totalCycles int) error {
	return k.call(ctx, func() error {
		return k.ctrl.Configure(ids, playSeconds, breakSeconds, totalCycles)
	})
}

// StartSession starts the configured session with the intro cinematic.
func (k *Kiosk) StartSession(ctx context.Context) error {
	return k.call(ctx, k.ctrl.StartSession)
}

// StartFromDraft configures from the draft form and starts the session.
func (k *Kiosk) StartFromDraft(ctx context.Context) error {
	return k.call(ctx, k.ctrl.StartFromDraft)
}

// StartCinematic presses play on the mounted cinematic.
func (k *Kiosk) StartCinematic(ctx context.Context) error {
	return k.call(ctx, func() error {
		if !k.host.Start() {
			return ErrNoCinematic
		}
		return nil
	})
}

// Teardown stops everything and returns to the configuring screen.
func (k *Kiosk) Teardown(ctx context.Context) error {
	return k.call(ctx, func() error {
		k.teardown()
		return nil
	})
}

func (k *Kiosk) SetVideoInput(ctx context.Context, i int, value string) error {
	return k.call(ctx, func() error { return k.ctrl.SetVideoInput(i, value) })
}

func (k *Kiosk) AddVideoInput(ctx context.Context) error {
	return k.call(ctx, func() error {
		k.ctrl.AddVideoInput()
		return nil
	})
}

func (k *Kiosk) RemoveVideoInput(ctx context.Context, i int) error {
	return k.call(ctx, func() error { return k.ctrl.RemoveVideoInput(i) })
}

// AddVideoID appends a playlist video to the draft.
func (k *Kiosk) AddVideoID(ctx context.Context, id string) error {
	return k.call(ctx, func() error { return k.ctrl.AddVideoID(id) })
}

func (k *Kiosk) SetTimings(ctx context.Context, playSeconds, breakSeconds, totalCycles int) error {
	return k.call(ctx, func() error {
		k.ctrl.SetTimings(playSeconds, breakSeconds, totalCycles)
		return nil
	})
}

// call runs fn on the loop and refreshes the cached snapshot.
func (k *Kiosk) call(ctx context.Context, fn func() error) error {
	var result error
	if err := k.loop.Call(ctx, func() {
		result = fn()
		k.store(k.ctrl.Snapshot())
	}); err != nil {
		return err
	}
	return result
}

func (k *Kiosk) post(fn func()) {
	if !k.loop.Post(func() {
		fn()
		k.store(k.ctrl.Snapshot())
	}) {
		k.logger.Debug().Msg("session loop stopped, dropping display work")
	}
}

func (k *Kiosk) teardown() {
	k.ctrl.Teardown()
	k.host.Unmount()
	k.storeFrame(nil)
}

func (k *Kiosk) store(s playback.Snapshot) {
	k.mu.Lock()
	k.snapshot = s
	k.mu.Unlock()
}

func (k *Kiosk) storeFrame(f *cinematic.Frame) {
	k.mu.Lock()
	k.frame = f
	k.mu.Unlock()
}
