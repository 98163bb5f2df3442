/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import "github.com/friendsincode/kidscast/internal/cinematic"

// PlayerState is reported by the video player.
type PlayerState string

const (
	PlayerCued      PlayerState = "cued"
	PlayerPlaying   PlayerState = "playing"
	PlayerPaused    PlayerState = "paused"
	PlayerBuffering PlayerState = "buffering"
	PlayerEnded     PlayerState = "ended"
)

// ParsePlayerState maps a reported state name, accepting YouTube's numeric codes.
func ParsePlayerState(raw string) (PlayerState, bool) {
	switch raw {
	case "cued", "5":
		return PlayerCued, true
	case "playing", "1":
		return PlayerPlaying, true
	case "paused", "2":
		return PlayerPaused, true
	case "buffering", "3":
		return PlayerBuffering, true
	case "ended", "0":
		return PlayerEnded, true
	}
	return "", false
}

// Adapter is the video player surface. Load cues a video without starting it.
type Adapter interface {
	Load(videoID string) error
	Play() error
	Pause() error
	Stop() error
}

// Fullscreen requests fullscreen presentation.
type Fullscreen interface {
	RequestFullscreen() error
}

// FullscreenChain tries each requester in order and stops at the first success.
type FullscreenChain []Fullscreen

func (c FullscreenChain) RequestFullscreen() error {
	var lastErr error
	for _, f := range c {
		if f == nil {
			continue
		}
		if err := f.RequestFullscreen(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		return &Error{Kind: KindFullscreenDenied, Message: "fullscreen unsupported"}
	}
	return lastErr
}

// Cinematics mounts the intro and outro presenters.
type Cinematics interface {
	Mount(kind cinematic.Kind, onComplete func())
	Unmount()
}
