/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/friendsincode/kidscast/internal/config"
	"github.com/friendsincode/kidscast/internal/speech"
)

// Voices are the narration providers selected by configuration.
type Voices struct {
	Primary        speech.Provider // nil when the cloud provider could not be set up
	PrimaryOptions speech.Options
	Fallback       speech.Provider
}

// Chain tries the primary provider with its options, then the local engine.
func (v Voices) Chain() speech.Chain {
	chain := make(speech.Chain, 0, 2)
	if v.Primary != nil {
		chain = append(chain, speech.Step{Provider: v.Primary, Options: v.PrimaryOptions})
	}
	return append(chain, speech.Step{Provider: v.Fallback})
}

// NewVoices builds the configured providers. A primary that cannot be created
// is logged and left nil so narration runs on the local engine alone.
func NewVoices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) Voices {
	v := Voices{Fallback: speech.NewLocal(cfg.LocalTTSBin)}

	primary, opts, err := newPrimary(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Str("provider", string(cfg.SpeechPrimary)).Msg("primary speech provider unavailable, using local voice only")
		return v
	}
	v.Primary = primary
	v.PrimaryOptions = opts
	return v
}

func newPrimary(ctx context.Context, cfg *config.Config) (speech.Provider, speech.Options, error) {
	switch cfg.SpeechPrimary {
	case config.SpeechGoogle:
		var opts []option.ClientOption
		if cfg.GoogleAPIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.GoogleAPIKey))
		}
		g, err := speech.NewGoogle(ctx, opts...)
		if err != nil {
			return nil, speech.Options{}, err
		}
		return g, speech.Options{}, nil
	case config.SpeechPolly:
		p, err := speech.NewPolly(ctx, cfg.PollyRegion)
		if err != nil {
			return nil, speech.Options{}, err
		}
		return p, speech.Options{VoiceName: cfg.PollyVoice}, nil
	case config.SpeechProxy:
		client := &http.Client{Timeout: cfg.SpeechTimeout}
		return speech.NewProxy(cfg.TTSProxyURL, client), speech.Options{}, nil
	default:
		return nil, speech.Options{}, fmt.Errorf("unsupported speech provider %q", cfg.SpeechPrimary)
	}
}
