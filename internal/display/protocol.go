/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package display

import (
	"encoding/json"
	"time"

	"github.com/friendsincode/kidscast/internal/cinematic"
)

// Commands sent to the display page.
const (
	CmdLoad           = "load"
	CmdPlay           = "play"
	CmdPause          = "pause"
	CmdStop           = "stop"
	CmdFullscreen     = "fullscreen"
	CmdScreen         = "screen"
	CmdCinematic      = "cinematic"
	CmdAudioPlay      = "audio_play"
	CmdAudioStop      = "audio_stop"
	CmdDrivingRestart = "driving_restart"
	CmdAssets         = "assets"
	CmdPing           = "ping"
)

// Events reported by the display page.
const (
	EvReady            = "ready"
	EvEnded            = "ended"
	EvState            = "state"
	EvAudioStarted     = "audio_started"
	EvAudioEnded       = "audio_ended"
	EvAudioError       = "audio_error"
	EvDrivingReplayed  = "driving_replayed"
	EvFullscreenDenied = "fullscreen_denied"
	EvPong             = "pong"
)

// wsMessage is a server to display command.
type wsMessage struct {
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Message is a display to server event.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EventData is the union of fields carried by display events.
type EventData struct {
	VideoID string `json:"video_id,omitempty"`
	State   string `json:"state,omitempty"`
	AudioID string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Decode unmarshals the event data. Missing data decodes to the zero value.
func (m Message) Decode() (EventData, error) {
	var d EventData
	if len(m.Data) == 0 {
		return d, nil
	}
	err := json.Unmarshal(m.Data, &d)
	return d, err
}

type loadData struct {
	VideoID string `json:"video_id"`
}

type audioData struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// AssetsFor collects the layers of scripts.
func AssetsFor(scripts cinematic.Scripts) Assets {
	return Assets{
		BreakVideo: scripts.BreakVideo,
		Intro:      scripts.Intro.Layers,
		Outro:      scripts.Outro.Layers,
	}
}

// Assets are the media layers the display preloads.
type Assets struct {
	BreakVideo string           `json:"break_video"`
	Intro      cinematic.Layers `json:"intro"`
	Outro      cinematic.Layers `json:"outro"`
}
