/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playback implements the viewing session: play segments, breaks,
// multi-video advance across cycles, and the intro/outro hand-off.
package playback

import (
	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/countdown"
)

// BreakKind tells cycle breaks apart from the break after the first video.
type BreakKind string

const (
	BreakNone  BreakKind = ""
	BreakCycle BreakKind = "cycle"
	BreakVideo BreakKind = "video"
)

// Deps wires a controller.
type Deps struct {
	Ticker     countdown.Ticker
	Cinematics Cinematics
	Fullscreen Fullscreen
	Logger     zerolog.Logger
}

// Controller owns the session state. It is not safe for concurrent use; the
// kiosk drives it from a single event loop.
type Controller struct {
	logger     zerolog.Logger
	timer      *countdown.Timer
	cinematics Cinematics
	fullscreen Fullscreen
	adapter    Adapter
	observers  []func(Event)

	draft        Draft
	config       Config
	configured   bool
	videoIDError string

	screen        Screen
	phase         Phase
	cycleIndex    int
	activeVideoID string
	started       bool
	breakKind     BreakKind

	// Adapter readiness and play intent form a join: Play is sent only when both hold.
	ready       bool
	pendingPlay bool
}

// New creates a controller on the configuring screen with a default draft.
func New(deps Deps) *Controller {
	c := &Controller{
		logger:     deps.Logger.With().Str("component", "playback").Logger(),
		timer:      countdown.New(deps.Ticker),
		cinematics: deps.Cinematics,
		fullscreen: deps.Fullscreen,
		draft:      DefaultDraft(),
		screen:     ScreenConfiguring,
		phase:      PhaseIdle,
		cycleIndex: 1,
	}
	c.timer.OnTick(func(int) { c.emit(EventTick) })
	return c
}

// Subscribe registers an observer for controller events.
func (c *Controller) Subscribe(fn func(Event)) {
	c.observers = append(c.observers, fn)
}

// Configure validates and stores a session configuration without starting playback.
func (c *Controller) Configure(ids []string, playSeconds, breakSeconds, totalCycles int) error {
	if c.inSession() {
		return ErrSessionInProgress
	}

	cfg, err := NewConfig(ids, playSeconds, breakSeconds, totalCycles)
	if err != nil {
		c.videoIDError = err.Error()
		c.logger.Info().Str("error_kind", string(KindOf(err))).Msg("configuration rejected")
		c.emit(EventValidationFailed)
		return err
	}

	c.config = cfg
	c.configured = true
	c.videoIDError = ""
	c.draft = draftFromConfig(cfg)

	c.logger.Info().
		Int("videos", len(cfg.VideoIDs)).
		Int("play_seconds", cfg.PlaySeconds).
		Int("break_seconds", cfg.BreakSeconds).
		Int("total_cycles", cfg.TotalCycles).
		Msg("session configured")
	c.emit(EventConfigured)
	return nil
}

// StartSession requests fullscreen, shows the intro and defers cycle 1 until it completes.
func (c *Controller) StartSession() error {
	if !c.configured {
		return ErrNotConfigured
	}
	if c.inSession() {
		return ErrSessionInProgress
	}

	if c.fullscreen != nil {
		if err := c.fullscreen.RequestFullscreen(); err != nil {
			c.logger.Debug().Err(err).Str("error_kind", string(KindFullscreenDenied)).Msg("fullscreen not granted")
		}
	}

	c.reset()
	c.screen = ScreenIntro
	c.logger.Info().Msg("session starting")
	c.emit(EventSessionStarted)

	if c.cinematics == nil {
		c.onIntroComplete()
		return nil
	}
	c.cinematics.Unmount()
	c.cinematics.Mount(cinematic.KindIntro, c.onIntroComplete)
	return nil
}

// StartPlaySegment enters Playing for cycle with the first video and starts the play countdown.
func (c *Controller) StartPlaySegment(cycle int) error {
	if !c.configured {
		return ErrNotConfigured
	}
	if !c.transition(EvPlaySegment) {
		return ErrInvalidTransition
	}

	cycle = min(max(cycle, 1), c.config.TotalCycles)
	c.screen = ScreenPlayer
	c.cycleIndex = cycle
	c.started = true
	c.breakKind = BreakNone

	first := c.config.VideoIDs[0]
	if c.activeVideoID != first {
		c.activeVideoID = first
		c.load(first)
	}
	c.intendPlay()

	c.timer.Start(c.config.PlaySeconds, func() { c.onPlayElapsed(cycle) })
	c.logger.Debug().Int("cycle", cycle).Str("video_id", first).Msg("play segment")
	c.emit(EventPlaySegment)
	return nil
}

// StartBreakSegment pauses the player for the break after cycle.
func (c *Controller) StartBreakSegment(cycle int) error {
	if !c.configured {
		return ErrNotConfigured
	}
	if !c.transition(EvBreakSegment) {
		return ErrInvalidTransition
	}

	c.breakKind = BreakCycle
	c.pendingPlay = false
	c.pause()

	c.timer.Start(c.config.BreakSeconds, func() {
		if cycle < c.config.TotalCycles {
			_ = c.StartPlaySegment(cycle + 1)
			return
		}
		c.endSession()
	})
	c.logger.Debug().Int("cycle", cycle).Msg("break segment")
	c.emit(EventBreakSegment)
	return nil
}

// OnVideoEnded advances to the next video of the cycle while play time remains.
// Only the first video is followed by a break; the last video's end leaves the countdown in charge.
func (c *Controller) OnVideoEnded() {
	if !c.started || c.phase != PhasePlaying || c.screen != ScreenPlayer {
		return
	}

	current := c.config.indexOf(c.activeVideoID)
	next := current + 1
	remaining := c.timer.Remaining()
	if next >= len(c.config.VideoIDs) || !c.timer.Running() || remaining <= 0 {
		c.logger.Debug().Str("video_id", c.activeVideoID).Msg("video ended with no next entry")
		return
	}

	nextID := c.config.VideoIDs[next]
	if current == 0 && c.config.BreakSeconds > 0 {
		c.startVideoBreak(nextID, remaining)
		return
	}

	c.transition(EvVideoAdvance)
	c.activeVideoID = nextID
	c.load(nextID)
	c.intendPlay()
	c.emit(EventVideoAdvanced)
}

// OnAdapterStateChanged re-issues Play when the player cues or pauses itself mid-segment.
func (c *Controller) OnAdapterStateChanged(state PlayerState) {
	if c.adapter == nil || !c.started || c.phase != PhasePlaying || c.screen != ScreenPlayer {
		return
	}
	if state == PlayerCued || state == PlayerPaused {
		c.logger.Debug().Str("state", string(state)).Msg("player stalled, resuming")
		c.play()
	}
}

// OnAdapterReady marks the player ready and delivers any pending play intent.
func (c *Controller) OnAdapterReady() {
	c.ready = true
	if c.started && c.phase == PhasePlaying {
		c.pendingPlay = true
	}
	c.flushPlay()
}

// AttachAdapter connects a player. A session in progress re-cues its active video.
func (c *Controller) AttachAdapter(a Adapter) {
	c.adapter = a
	c.ready = false
	if a == nil {
		return
	}
	if c.started && c.activeVideoID != "" {
		c.load(c.activeVideoID)
		if c.phase == PhasePlaying {
			c.pendingPlay = true
		}
	}
}

// DetachAdapter drops the player. Later adapter calls become no-ops.
func (c *Controller) DetachAdapter() {
	c.adapter = nil
	c.ready = false
	if c.started && c.phase == PhasePlaying {
		c.pendingPlay = true
	}
}

// Teardown cancels the countdown, stops the player and unmounts any cinematic.
func (c *Controller) Teardown() {
	c.timer.Cancel()
	c.stop()
	if c.cinematics != nil {
		c.cinematics.Unmount()
	}
	c.reset()
	c.screen = ScreenConfiguring
	c.logger.Info().Msg("session torn down")
	c.emit(EventTeardown)
}

func (c *Controller) onIntroComplete() {
	if c.screen != ScreenIntro {
		return
	}
	if c.cinematics != nil {
		c.cinematics.Unmount()
	}
	_ = c.StartPlaySegment(1)
}

func (c *Controller) onPlayElapsed(cycle int) {
	switch {
	case c.config.BreakSeconds > 0 && cycle < c.config.TotalCycles:
		_ = c.StartBreakSegment(cycle)
	case cycle < c.config.TotalCycles:
		_ = c.StartPlaySegment(cycle + 1)
	default:
		c.endSession()
	}
}

// startVideoBreak holds the remaining play budget while the break runs, then
// resumes counting down from it with the next video.
func (c *Controller) startVideoBreak(nextID string, remaining int) {
	if !c.transition(EvVideoBreak) {
		return
	}
	c.breakKind = BreakVideo
	c.pendingPlay = false
	c.pause()

	cycle := c.cycleIndex
	c.timer.Start(c.config.BreakSeconds, func() {
		if !c.transition(EvVideoResume) {
			return
		}
		c.breakKind = BreakNone
		c.activeVideoID = nextID
		c.load(nextID)
		c.intendPlay()
		c.timer.Start(remaining, func() { c.onPlayElapsed(cycle) })
		c.emit(EventVideoAdvanced)
	})
	c.logger.Debug().Str("next_video_id", nextID).Int("resume_seconds", remaining).Msg("break between videos")
	c.emit(EventVideoBreak)
}

func (c *Controller) endSession() {
	c.timer.Cancel()
	c.transition(EvSessionEnd)
	c.started = false
	c.pendingPlay = false
	c.breakKind = BreakNone
	c.stop()
	c.screen = ScreenOutro
	c.logger.Info().Int("cycles", c.config.TotalCycles).Msg("session ended")
	c.emit(EventSessionEnded)

	if c.cinematics != nil {
		c.cinematics.Mount(cinematic.KindOutro, nil)
	}
}

func (c *Controller) reset() {
	c.timer.Cancel()
	c.transition(EvReset)
	c.started = false
	c.pendingPlay = false
	c.breakKind = BreakNone
	c.cycleIndex = 1
	c.activeVideoID = ""
}

func (c *Controller) inSession() bool {
	return c.screen == ScreenIntro || c.screen == ScreenPlayer
}

func (c *Controller) transition(ev PhaseEvent) bool {
	tr, ok := TransitionFor(c.phase, ev)
	if !ok {
		c.logger.Warn().Str("phase", string(c.phase)).Str("event", string(ev)).Msg("phase transition rejected")
		return false
	}
	c.phase = tr.To
	return true
}

func (c *Controller) intendPlay() {
	c.pendingPlay = true
	c.flushPlay()
}

func (c *Controller) flushPlay() {
	if !c.pendingPlay || !c.ready || c.adapter == nil {
		return
	}
	c.pendingPlay = false
	c.play()
}

func (c *Controller) load(id string) {
	if c.adapter == nil {
		c.adapterUnavailable("load")
		return
	}
	if err := c.adapter.Load(id); err != nil {
		c.logger.Warn().Err(err).Str("video_id", id).Msg("player load failed")
	}
}

func (c *Controller) play() {
	if c.adapter == nil {
		c.adapterUnavailable("play")
		return
	}
	if err := c.adapter.Play(); err != nil {
		c.logger.Warn().Err(err).Msg("player play failed")
	}
}

func (c *Controller) pause() {
	if c.adapter == nil {
		c.adapterUnavailable("pause")
		return
	}
	if err := c.adapter.Pause(); err != nil {
		c.logger.Warn().Err(err).Msg("player pause failed")
	}
}

func (c *Controller) stop() {
	if c.adapter == nil {
		return
	}
	if err := c.adapter.Stop(); err != nil {
		c.logger.Warn().Err(err).Msg("player stop failed")
	}
}

func (c *Controller) adapterUnavailable(op string) {
	c.logger.Debug().Str("op", op).Str("error_kind", string(KindAdapterUnavailable)).Msg("no player attached")
}
