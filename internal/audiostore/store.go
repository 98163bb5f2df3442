/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audiostore keeps synthesized narration reachable by the display
// for as long as a cinematic needs it.
package audiostore

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when asked to store zero bytes.
var ErrEmptyAudio = errors.New("empty audio")

// Store publishes audio and returns a URL the display can play.
type Store interface {
	Put(ctx context.Context, data []byte, mimeType string) (string, error)
	Revoke(ctx context.Context, url string) error
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg", "audio/ogg; codecs=opus":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	default:
		return ""
	}
}
