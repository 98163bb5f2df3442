/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package speech synthesizes the host's narration. A cloud voice is tried
// first and the local engine covers for it when the network or quota fails.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/friendsincode/kidscast/internal/telemetry"
)

// ErrNoAudio is returned when a provider answers without audio.
var ErrNoAudio = errors.New("speech provider returned no audio")

// Options are provider-specific voice settings. Zero values take the provider's defaults.
type Options struct {
	LanguageCode  string
	VoiceName     string
	Gender        string
	Engine        string
	SpeakingRate  float64
	Pitch         float64
	AudioEncoding string
}

// Clip is synthesized audio: either raw bytes or a URL the provider already published.
type Clip struct {
	Data     []byte
	MimeType string
	URL      string
}

// Empty reports whether the clip carries no audio.
func (c Clip) Empty() bool {
	return len(c.Data) == 0 && c.URL == ""
}

// Provider converts text to audio.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, opts Options) (Clip, error)
}

// Step is a provider with its voice settings.
type Step struct {
	Provider Provider
	Options  Options
}

// Chain tries steps in order.
type Chain []Step

// Synthesize returns the first clip and the name of the provider that made it.
func (c Chain) Synthesize(ctx context.Context, text string) (Clip, string, error) {
	var errs []error
	for _, step := range c {
		clip, err := Synthesize(ctx, step.Provider, text, step.Options)
		if err == nil {
			return clip, step.Provider.Name(), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", step.Provider.Name(), err))
	}
	if len(errs) == 0 {
		return Clip{}, "", errors.New("no speech providers configured")
	}
	return Clip{}, "", errors.Join(errs...)
}

// Synthesize calls p with tracing and metrics, rejecting empty clips.
func Synthesize(ctx context.Context, p Provider, text string, opts Options) (Clip, error) {
	ctx, span := telemetry.StartSpan(ctx, "speech.synthesize")
	start := time.Now()

	clip, err := p.Synthesize(ctx, text, opts)
	if err == nil && clip.Empty() {
		err = ErrNoAudio
	}

	telemetry.SpeechDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	telemetry.SpeechRequestsTotal.WithLabelValues(p.Name(), result).Inc()
	telemetry.EndSpan(span, err)

	if err != nil {
		return Clip{}, err
	}
	return clip, nil
}

func mimeForEncoding(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "MP3":
		return "audio/mpeg"
	case "OGG_OPUS", "OGG_VORBIS":
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}

func withDefaults(opts, defaults Options) Options {
	if opts.LanguageCode == "" {
		opts.LanguageCode = defaults.LanguageCode
	}
	if opts.VoiceName == "" {
		opts.VoiceName = defaults.VoiceName
	}
	if opts.Gender == "" {
		opts.Gender = defaults.Gender
	}
	if opts.Engine == "" {
		opts.Engine = defaults.Engine
	}
	if opts.SpeakingRate == 0 {
		opts.SpeakingRate = defaults.SpeakingRate
	}
	if opts.Pitch == 0 {
		opts.Pitch = defaults.Pitch
	}
	if opts.AudioEncoding == "" {
		opts.AudioEncoding = defaults.AudioEncoding
	}
	return opts
}
