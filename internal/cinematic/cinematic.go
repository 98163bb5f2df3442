/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cinematic presents the host character that greets the viewer
// before the first video and says goodbye after the last one.
package cinematic

import "context"

// State is the presenter state. Driving is terminal for a mount.
type State string

const (
	StateLocked  State = "locked"
	StateIdle    State = "idle"
	StateTalking State = "talking"
	StateDriving State = "driving"
)

// Kind selects which script a presenter runs.
type Kind string

const (
	KindIntro Kind = "intro"
	KindOutro Kind = "outro"
)

// User-visible error strings.
const (
	ErrMessageEmpty      = "Message is empty."
	ErrAudioPlayback     = "Audio playback failed."
	ErrPrimaryVoice      = "Cloud voice failed. Falling back to local voice."
	ErrSpeechUnavailable = "Speech is unavailable. Press play to try again."
)

// Layers are the pre-loaded video layers of the stage.
type Layers struct {
	Idle    string `yaml:"idle" json:"idle"`
	Talking string `yaml:"talking" json:"talking"`
	Driving string `yaml:"driving" json:"driving"`
}

// Script is what a presenter says and shows.
type Script struct {
	Message   string
	Layers    Layers
	AutoStart bool
}

// Frame is the render state sent to the stage on every change.
type Frame struct {
	Kind       Kind   `json:"kind"`
	State      State  `json:"state"`
	Layers     Layers `json:"layers"`
	Subtitle   string `json:"subtitle,omitempty"`
	Error      string `json:"error,omitempty"`
	ShowStart  bool   `json:"show_start"`
	Generating bool   `json:"generating"`
}

// Voice synthesizes narration and returns a URL the stage can play.
type Voice interface {
	Synthesize(ctx context.Context, text string) (string, error)
	Revoke(url string)
}

// Stage is the display surface the presenter drives.
type Stage interface {
	Render(frame Frame)
	PlayAudio(id, url string) error
	StopAudio(id string)
	RestartDriving()
}
