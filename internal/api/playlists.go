/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/kidscast/internal/auth"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/playlists"
)

// playlistTarget resolves the caller's picker and Google token. Require has
// already rejected anonymous requests.
func (a *API) playlistTarget(r *http.Request) (*auth.Session, *playlists.Browser, string) {
	s, _ := auth.SessionFromContext(r.Context())
	token, _ := a.sessions.AccessToken(s.ID)
	return s, a.playlists.For(s.ID), token
}

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	s, browser, token := a.playlistTarget(r)
	state, err := browser.FetchPlaylists(r.Context(), token)
	if err != nil {
		writePlaylistError(w, err, state)
		return
	}
	a.bus.Publish(events.EventPlaylistsLoaded, events.Payload{
		"session_id": s.ID,
		"count":      len(state.Playlists),
	})
	writeJSON(w, http.StatusOK, state)
}

func (a *API) handlePlaylistsState(w http.ResponseWriter, r *http.Request) {
	_, browser, _ := a.playlistTarget(r)
	writeJSON(w, http.StatusOK, browser.State())
}

func (a *API) handlePlaylistVideos(w http.ResponseWriter, r *http.Request) {
	s, browser, token := a.playlistTarget(r)
	playlistID := chi.URLParam(r, "playlistID")
	pageToken := r.URL.Query().Get("pageToken")
	if token == "" {
		writePlaylistError(w, auth.ErrMissingAccessToken, browser.State())
		return
	}
	state, err := browser.FetchPlaylistVideos(r.Context(), token, playlistID, pageToken)
	if err != nil {
		writePlaylistError(w, err, state)
		return
	}
	a.bus.Publish(events.EventPlaylistsLoaded, events.Payload{
		"session_id":  s.ID,
		"playlist_id": playlistID,
		"count":       len(state.Videos),
		"more":        state.NextPageToken != "",
	})
	writeJSON(w, http.StatusOK, state)
}

func writePlaylistError(w http.ResponseWriter, err error, state playlists.State) {
	status, code := http.StatusBadGateway, "playlist_request_failed"
	if errors.Is(err, auth.ErrMissingAccessToken) {
		status, code = http.StatusUnauthorized, "missing_access_token"
	}
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": err.Error(),
		"state":   state,
	})
}
