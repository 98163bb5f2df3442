/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/audiostore"
)

// Narrator turns a provider into a voice the cinematic presenter can use:
// raw clips are published to the audio store and revoked on request.
type Narrator struct {
	provider Provider
	opts     Options
	store    audiostore.Store
	logger   zerolog.Logger

	mu    sync.Mutex
	owned map[string]struct{}
}

// NewNarrator wires provider to store.
func NewNarrator(provider Provider, opts Options, store audiostore.Store, logger zerolog.Logger) *Narrator {
	return &Narrator{
		provider: provider,
		opts:     opts,
		store:    store,
		logger:   logger.With().Str("component", "narrator").Str("provider", provider.Name()).Logger(),
		owned:    make(map[string]struct{}),
	}
}

// Synthesize returns a playable URL for text.
func (n *Narrator) Synthesize(ctx context.Context, text string) (string, error) {
	clip, err := Synthesize(ctx, n.provider, text, n.opts)
	if err != nil {
		return "", err
	}
	if clip.URL != "" {
		return clip.URL, nil
	}

	url, err := n.store.Put(ctx, clip.Data, clip.MimeType)
	if err != nil {
		return "", fmt.Errorf("publish narration: %w", err)
	}
	n.mu.Lock()
	n.owned[url] = struct{}{}
	n.mu.Unlock()

	n.logger.Debug().Int("bytes", len(clip.Data)).Str("mime_type", clip.MimeType).Msg("narration ready")
	return url, nil
}

// Revoke releases audio published by this narrator. Provider-hosted URLs are left alone.
func (n *Narrator) Revoke(url string) {
	n.mu.Lock()
	_, ok := n.owned[url]
	delete(n.owned, url)
	n.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.store.Revoke(ctx, url); err != nil {
		n.logger.Warn().Err(err).Msg("revoke narration failed")
	}
}
