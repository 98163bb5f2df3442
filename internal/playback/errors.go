/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import "errors"

// ErrorKind classifies controller errors.
type ErrorKind string

const (
	KindEmptyPlaylist      ErrorKind = "empty_playlist"
	KindDuplicateVideoID   ErrorKind = "duplicate_video_id"
	KindSessionInProgress  ErrorKind = "session_in_progress"
	KindNotConfigured      ErrorKind = "not_configured"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindInvalidTransition  ErrorKind = "invalid_transition"
	KindAdapterUnavailable ErrorKind = "adapter_unavailable"
	KindFullscreenDenied   ErrorKind = "fullscreen_denied"
)

// Error is a controller error carrying a user-visible message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrEmptyPlaylist     = &Error{Kind: KindEmptyPlaylist, Message: "Please enter at least one YouTube video ID."}
	ErrDuplicateVideoID  = &Error{Kind: KindDuplicateVideoID, Message: "Duplicate YouTube video IDs are not allowed."}
	ErrSessionInProgress = &Error{Kind: KindSessionInProgress, Message: "A viewing session is already in progress."}
	ErrNotConfigured     = &Error{Kind: KindNotConfigured, Message: "Add some videos before starting."}
	ErrInputIndex        = &Error{Kind: KindInvalidInput, Message: "No video input at that position."}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "That step is not possible right now."}
)

// KindOf returns the kind of err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
