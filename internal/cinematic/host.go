/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cinematic

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/loop"
)

// Host mounts one presenter at a time for the playback controller.
type Host struct {
	scripts  Scripts
	primary  Voice
	fallback Voice
	stage    Stage
	poster   loop.Poster
	timeout  time.Duration
	logger   zerolog.Logger
	onFrame  func(Frame)

	current *Presenter
}

// HostConfig wires a Host.
type HostConfig struct {
	Scripts  Scripts
	Primary  Voice
	Fallback Voice
	Stage    Stage
	Poster   loop.Poster
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// NewHost creates a host with nothing mounted.
func NewHost(cfg HostConfig) *Host {
	return &Host{
		scripts:  cfg.Scripts,
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		stage:    cfg.Stage,
		poster:   cfg.Poster,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// OnFrame registers an observer for every rendered frame.
func (h *Host) OnFrame(fn func(Frame)) {
	h.onFrame = fn
}

// SetStage replaces the stage used by future mounts.
func (h *Host) SetStage(stage Stage) {
	h.stage = stage
}

// Mount replaces any mounted presenter with a fresh one for kind.
func (h *Host) Mount(kind Kind, onComplete func()) {
	h.Unmount()
	presenter := NewPresenter(PresenterConfig{
		Kind:       kind,
		Script:     h.scripts.For(kind),
		Primary:    h.primary,
		Fallback:   h.fallback,
		Stage:      h.stage,
		Poster:     h.poster,
		Timeout:    h.timeout,
		OnComplete: onComplete,
		OnFrame:    h.onFrame,
		Logger:     h.logger,
	})
	h.current = presenter
	presenter.Mount()
}

// Unmount discards the mounted presenter, if any.
func (h *Host) Unmount() {
	if h.current == nil {
		return
	}
	current := h.current
	h.current = nil
	current.Unmount()
}

// Current returns the mounted presenter or nil.
func (h *Host) Current() *Presenter {
	return h.current
}

// Start starts or retries the mounted presenter. Reports false when nothing is mounted.
func (h *Host) Start() bool {
	if h.current == nil {
		return false
	}
	h.current.Start()
	return true
}

func (h *Host) OnAudioStarted(id string) {
	if h.current != nil {
		h.current.OnAudioStarted(id)
	}
}

func (h *Host) OnAudioEnded(id string) {
	if h.current != nil {
		h.current.OnAudioEnded(id)
	}
}

func (h *Host) OnAudioError(id string) {
	if h.current != nil {
		h.current.OnAudioError(id)
	}
}

func (h *Host) OnDrivingReplayed() {
	if h.current != nil {
		h.current.OnDrivingReplayed()
	}
}
