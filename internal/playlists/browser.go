/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlists

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/auth"
)

// State is the playlist picker of one signed-in browser.
type State struct {
	Playlists        []Playlist `json:"playlists"`
	Error            string     `json:"error,omitempty"`
	LoadingPlaylists bool       `json:"loadingPlaylists"`
	LoadingVideos    bool       `json:"loadingVideos"`
	Videos           []Video    `json:"videos"`
	NextPageToken    string     `json:"nextPageToken,omitempty"`
	ActivePlaylistID string     `json:"activePlaylistId,omitempty"`
}

func (s State) clone() State {
	s.Playlists = append([]Playlist{}, s.Playlists...)
	s.Videos = append([]Video{}, s.Videos...)
	return s
}

// Browser holds picker state and fetches through a Source.
type Browser struct {
	source Source
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewBrowser creates an empty picker.
func NewBrowser(source Source, logger zerolog.Logger) *Browser {
	return &Browser{source: source, logger: logger}
}

// State returns a copy of the picker state.
func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// FetchPlaylists loads the account's playlists.
func (b *Browser) FetchPlaylists(ctx context.Context, accessToken string) (State, error) {
	b.mu.Lock()
	if accessToken == "" {
		b.state.Error = auth.ErrMissingAccessToken.Error()
		s := b.state.clone()
		b.mu.Unlock()
		return s, auth.ErrMissingAccessToken
	}
	b.state.LoadingPlaylists = true
	b.state.Error = ""
	b.mu.Unlock()

	playlists, err := b.source.FetchPlaylists(ctx, accessToken)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.LoadingPlaylists = false
	if err != nil {
		b.logger.Warn().Err(err).Msg("playlist request failed")
		b.state.Error = err.Error()
		return b.state.clone(), err
	}
	b.state.Playlists = append([]Playlist{}, playlists...)
	return b.state.clone(), nil
}

// FetchPlaylistVideos loads a page of a playlist. A page token appends to the
// loaded videos; no token replaces them. Missing inputs are a no-op.
func (b *Browser) FetchPlaylistVideos(ctx context.Context, accessToken, playlistID, pageToken string) (State, error) {
	b.mu.Lock()
	if accessToken == "" || playlistID == "" {
		s := b.state.clone()
		b.mu.Unlock()
		return s, nil
	}
	b.state.LoadingVideos = true
	b.state.Error = ""
	b.mu.Unlock()

	page, err := b.source.FetchPlaylistVideos(ctx, accessToken, playlistID, pageToken)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.LoadingVideos = false
	if err != nil {
		b.logger.Warn().Err(err).Str("playlist_id", playlistID).Msg("video request failed")
		b.state.Error = err.Error()
		return b.state.clone(), err
	}
	b.state.ActivePlaylistID = playlistID
	b.state.NextPageToken = page.NextPageToken
	if pageToken != "" {
		b.state.Videos = append(b.state.Videos, page.Videos...)
	} else {
		b.state.Videos = append([]Video{}, page.Videos...)
	}
	return b.state.clone(), nil
}

// Clear resets the picker.
func (b *Browser) Clear() {
	b.mu.Lock()
	b.state = State{}
	b.mu.Unlock()
}

// Registry keeps one Browser per sign-in session.
type Registry struct {
	source Source
	logger zerolog.Logger

	mu       sync.Mutex
	browsers map[string]*Browser
}

// NewRegistry creates an empty registry.
func NewRegistry(source Source, logger zerolog.Logger) *Registry {
	return &Registry{
		source:   source,
		logger:   logger.With().Str("component", "playlists").Logger(),
		browsers: make(map[string]*Browser),
	}
}

// For returns the browser of a session, creating it on first use.
func (r *Registry) For(sessionID string) *Browser {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.browsers[sessionID]
	if !ok {
		b = NewBrowser(r.source, r.logger.With().Str("session_id", sessionID).Logger())
		r.browsers[sessionID] = b
	}
	return b
}

// Clear drops the browser of a session.
func (r *Registry) Clear(sessionID string) {
	r.mu.Lock()
	b := r.browsers[sessionID]
	delete(r.browsers, sessionID)
	r.mu.Unlock()
	if b != nil {
		b.Clear()
	}
}

// Len returns the number of live browsers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.browsers)
}

// HandleAuthState clears picker state on sign-out. Register it with auth.Manager.OnAuthStateChanged.
func (r *Registry) HandleAuthState(s auth.AuthState) {
	if !s.SignedIn {
		r.Clear(s.SessionID)
	}
}
