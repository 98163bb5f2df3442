/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/playback"
)

type sessionResponse struct {
	Snapshot  playback.Snapshot `json:"snapshot"`
	Cinematic *cinematic.Frame  `json:"cinematic,omitempty"`
}

type configureRequest struct {
	VideoIDs     []string `json:"video_ids"`
	PlaySeconds  int      `json:"play_seconds"`
	BreakSeconds int      `json:"break_seconds"`
	TotalCycles  int      `json:"total_cycles"`
}

type inputRequest struct {
	Value string `json:"value"`
}

type videoIDRequest struct {
	VideoID    string `json:"video_id"`
	PlaylistID string `json:"playlist_id,omitempty"`
}

func (a *API) writeSession(w http.ResponseWriter, status int) {
	resp := sessionResponse{Snapshot: a.kiosk.Snapshot()}
	if frame, ok := a.kiosk.Frame(); ok {
		resp.Cinematic = &frame
	}
	writeJSON(w, status, resp)
}

func (a *API) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	a.writeSession(w, http.StatusOK)
}

func (a *API) handleSessionConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := a.kiosk.Configure(r.Context(), req.VideoIDs, req.PlaySeconds, req.BreakSeconds, req.TotalCycles); err != nil {
		writeKioskError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *API) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if err := a.kiosk.StartSession(r.Context()); err != nil {
		writeKioskError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *API) handleSessionTeardown(w http.ResponseWriter, r *http.Request) {
	if err := a.kiosk.Teardown(r.Context()); err != nil {
		writeKioskError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *API) handleCinematicStart(w http.ResponseWriter, r *http.Request) {
	if err := a.kiosk.StartCinematic(r.Context()); err != nil {
		writeKioskError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *API) handleDraftGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.kiosk.Snapshot().Draft)
}

func (a *API) handleDraftAddInput(w http.ResponseWriter, r *http.Request) {
	if err := a.kiosk.AddVideoInput(r.Context()); err != nil {
		writeKioskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.kiosk.Snapshot().Draft)
}

func (a *API) handleDraftSetInput(w http.ResponseWriter, r *http.Request) {
	index, ok := inputIndex(w, r)
	if !ok {
		return
	}
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := a.kiosk.SetVideoInput(r.Context(), index, req.Value); err != nil {
		writeKioskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.kiosk.Snapshot().Draft)
}

func (a *API) handleDraftRemoveInput(w http.ResponseWriter, r *http.Request) {
	index, ok := inputIndex(w, r)
	if !ok {
		return
	}
	if err := a.kiosk.RemoveVideoInput(r.Context(), index); err != nil {
		writeKioskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.kiosk.Snapshot().Draft)
}

func (a *API) handleDraftAddVideoID(w http.ResponseWriter, r *http.Request) {
	var req videoIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := a.kiosk.AddVideoID(r.Context(), req.VideoID); err != nil {
		writeKioskError(w, err)
		return
	}
	if req.PlaylistID != "" {
		a.bus.Publish(events.EventPlaylistImport, events.Payload{
			"playlist_id": req.PlaylistID,
			"video_id":    req.VideoID,
		})
	}
	writeJSON(w, http.StatusOK, a.kiosk.Snapshot().Draft)
}

func (a *API) handleDraftTimings(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := a.kiosk.SetTimings(r.Context(), req.PlaySeconds, req.BreakSeconds, req.TotalCycles); err != nil {
		writeKioskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.kiosk.Snapshot().Draft)
}

func (a *API) handleDraftStart(w http.ResponseWriter, r *http.Request) {
	if err := a.kiosk.StartFromDraft(r.Context()); err != nil {
		writeKioskError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func inputIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid_index")
		return 0, false
	}
	return index, true
}
