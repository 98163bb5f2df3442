/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cinematic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/loop"
)

const defaultSynthesisTimeout = 15 * time.Second

// Presenter runs one intro or outro. It is created fresh for every mount and
// must only be used from the event loop goroutine.
type Presenter struct {
	kind       Kind
	script     Script
	primary    Voice
	fallback   Voice
	stage      Stage
	poster     loop.Poster
	timeout    time.Duration
	onComplete func()
	onFrame    func(Frame)
	logger     zerolog.Logger

	state      State
	errMsg     string
	generating bool
	mounted    bool
	started    bool
	completed  bool

	// attempt invalidates synthesis results from replaced or unmounted runs.
	attempt uint64
	ctx     context.Context
	cancel  context.CancelFunc

	audioID    string
	audioURL   string
	audioVoice Voice
	onFallback bool
}

// PresenterConfig wires a presenter.
type PresenterConfig struct {
	Kind       Kind
	Script     Script
	Primary    Voice
	Fallback   Voice
	Stage      Stage
	Poster     loop.Poster
	Timeout    time.Duration
	OnComplete func()
	OnFrame    func(Frame)
	Logger     zerolog.Logger
}

// NewPresenter creates a presenter in the Locked state.
func NewPresenter(cfg PresenterConfig) *Presenter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSynthesisTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Presenter{
		kind:       cfg.Kind,
		script:     cfg.Script,
		primary:    cfg.Primary,
		fallback:   cfg.Fallback,
		stage:      cfg.Stage,
		poster:     cfg.Poster,
		timeout:    cfg.Timeout,
		onComplete: cfg.OnComplete,
		onFrame:    cfg.OnFrame,
		logger:     cfg.Logger.With().Str("component", "cinematic").Str("kind", string(cfg.Kind)).Logger(),
		state:      StateLocked,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Mount shows the stage and starts immediately when the script auto-starts.
func (p *Presenter) Mount() {
	if p.mounted {
		return
	}
	p.mounted = true
	p.render()
	if p.script.AutoStart && p.state == StateLocked && !p.started {
		p.Start()
	}
}

// Start begins (or retries) narration. onComplete is not re-armed: it fires
// at most once per mount.
func (p *Presenter) Start() {
	if !p.mounted || p.state == StateDriving {
		return
	}
	p.started = true
	p.state = StateIdle
	p.errMsg = ""
	p.releaseAudio()
	p.attempt++

	message := strings.TrimSpace(p.script.Message)
	if message == "" {
		p.errMsg = ErrMessageEmpty
		p.render()
		return
	}

	p.generating = true
	p.render()
	p.synthesize(p.primary, false, message)
}

// OnAudioStarted switches to Talking when the stage confirms playback.
func (p *Presenter) OnAudioStarted(id string) {
	if !p.mounted || id == "" || id != p.audioID || p.state != StateIdle {
		return
	}
	p.state = StateTalking
	p.render()
}

// OnAudioEnded moves to Driving once narration finishes.
func (p *Presenter) OnAudioEnded(id string) {
	if !p.mounted || id == "" || id != p.audioID {
		return
	}
	if p.state != StateTalking && p.state != StateIdle {
		return
	}
	p.enterDriving()
}

// OnAudioError parks the presenter in Idle. Playback errors after start do not fall back.
func (p *Presenter) OnAudioError(id string) {
	if !p.mounted || id == "" || id != p.audioID || p.state == StateDriving {
		return
	}
	p.logger.Warn().Str("audio_id", id).Bool("fallback", p.onFallback).Msg("narration playback failed")
	p.releaseAudio()
	p.errMsg = ErrAudioPlayback
	p.state = StateIdle
	p.render()
}

// OnDrivingReplayed handles the driving layer looping or restarting.
func (p *Presenter) OnDrivingReplayed() {
	if !p.mounted || p.state != StateDriving {
		return
	}
	p.complete()
}

// Unmount stops audio, revokes synthesized audio, and drops in-flight synthesis.
func (p *Presenter) Unmount() {
	if !p.mounted {
		return
	}
	p.mounted = false
	p.attempt++
	p.cancel()
	p.releaseAudio()
	p.generating = false
}

// State returns the current presenter state.
func (p *Presenter) State() State { return p.state }

// Err returns the user-visible error string, if any.
func (p *Presenter) Err() string { return p.errMsg }

// Kind returns the script kind.
func (p *Presenter) Kind() Kind { return p.kind }

// Frame returns the current render state.
func (p *Presenter) Frame() Frame {
	frame := Frame{
		Kind:       p.kind,
		State:      p.state,
		Layers:     p.script.Layers,
		Error:      p.errMsg,
		Generating: p.generating,
		ShowStart:  p.state == StateLocked && !p.script.AutoStart,
	}
	// A failed manual start offers the button again.
	if !p.script.AutoStart && p.state == StateIdle && p.errMsg != "" && !p.generating && p.audioID == "" {
		frame.ShowStart = true
	}
	if p.state == StateTalking {
		frame.Subtitle = strings.TrimSpace(p.script.Message)
	}
	return frame
}

func (p *Presenter) synthesize(voice Voice, fallback bool, message string) {
	if voice == nil {
		p.onSynthesized(p.attempt, nil, fallback, "", errors.New("voice not configured"))
		return
	}
	attempt := p.attempt
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	go func() {
		defer cancel()
		url, err := voice.Synthesize(ctx, message)
		posted := p.poster.Post(func() {
			p.onSynthesized(attempt, voice, fallback, url, err)
		})
		if !posted && err == nil && url != "" {
			voice.Revoke(url)
		}
	}()
}

func (p *Presenter) onSynthesized(attempt uint64, voice Voice, fallback bool, url string, err error) {
	if attempt != p.attempt || !p.mounted {
		if err == nil && url != "" && voice != nil {
			voice.Revoke(url)
		}
		return
	}

	if err == nil && url == "" {
		err = errors.New("voice returned no audio")
	}
	if err != nil {
		p.logger.Warn().Err(err).Bool("fallback", fallback).Msg("speech synthesis failed")
		p.failVoice(fallback)
		return
	}

	p.releaseAudio()
	p.audioID = uuid.NewString()
	p.audioURL = url
	p.audioVoice = voice
	p.onFallback = fallback

	if err := p.stage.PlayAudio(p.audioID, url); err != nil {
		p.logger.Warn().Err(err).Bool("fallback", fallback).Msg("narration audio did not start")
		p.releaseAudio()
		p.failVoice(fallback)
		return
	}

	p.generating = false
	p.render()
}

// failVoice substitutes the local voice for the primary, or parks in Idle when both failed.
func (p *Presenter) failVoice(fallback bool) {
	if !fallback {
		p.errMsg = ErrPrimaryVoice
		p.state = StateIdle
		p.render()
		p.synthesize(p.fallback, true, strings.TrimSpace(p.script.Message))
		return
	}
	p.generating = false
	p.errMsg = ErrSpeechUnavailable
	p.state = StateIdle
	p.render()
}

func (p *Presenter) enterDriving() {
	p.state = StateDriving
	p.stage.RestartDriving()
	p.render()
	p.complete()
}

func (p *Presenter) complete() {
	if p.completed || p.onComplete == nil {
		return
	}
	p.completed = true
	p.onComplete()
}

func (p *Presenter) releaseAudio() {
	if p.audioID != "" {
		p.stage.StopAudio(p.audioID)
	}
	if p.audioURL != "" && p.audioVoice != nil {
		p.audioVoice.Revoke(p.audioURL)
	}
	p.audioID = ""
	p.audioURL = ""
	p.audioVoice = nil
	p.onFallback = false
}

func (p *Presenter) render() {
	if !p.mounted {
		return
	}
	frame := p.Frame()
	p.stage.Render(frame)
	if p.onFrame != nil {
		p.onFrame(frame)
	}
}
