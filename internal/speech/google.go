/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

// GoogleDefaults is the neural voice used for the host.
var GoogleDefaults = Options{
	LanguageCode:  "en-US",
	VoiceName:     "en-US-Neural2-D",
	Gender:        "MALE",
	SpeakingRate:  0.95,
	Pitch:         -1.0,
	AudioEncoding: "MP3",
}

// Google uses the Cloud Text-to-Speech API.
type Google struct {
	svc *texttospeech.Service
}

// NewGoogle creates a client. opts typically carry option.WithAPIKey.
func NewGoogle(ctx context.Context, opts ...option.ClientOption) (*Google, error) {
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return &Google{svc: svc}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Synthesize(ctx context.Context, text string, opts Options) (Clip, error) {
	opts = withDefaults(opts, GoogleDefaults)

	resp, err := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: opts.LanguageCode,
			Name:         opts.VoiceName,
			SsmlGender:   opts.Gender,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: opts.AudioEncoding,
			SpeakingRate:  opts.SpeakingRate,
			Pitch:         opts.Pitch,
		},
	}).Context(ctx).Do()
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: %w", err)
	}
	if resp.AudioContent == "" {
		return Clip{}, ErrNoAudio
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return Clip{}, fmt.Errorf("decode audio: %w", err)
	}
	return Clip{Data: data, MimeType: mimeForEncoding(opts.AudioEncoding)}, nil
}
