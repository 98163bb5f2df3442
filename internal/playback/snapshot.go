/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

// EventType enumerates controller notifications.
type EventType string

const (
	EventConfigured       EventType = "configured"
	EventValidationFailed EventType = "validation_failed"
	EventDraftChanged     EventType = "draft_changed"
	EventSessionStarted   EventType = "session_started"
	EventPlaySegment      EventType = "play_segment"
	EventBreakSegment     EventType = "break_segment"
	EventVideoBreak       EventType = "video_break"
	EventVideoAdvanced    EventType = "video_advanced"
	EventTick             EventType = "tick"
	EventSessionEnded     EventType = "session_ended"
	EventTeardown         EventType = "teardown"
)

// Event carries the snapshot taken right after the change.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Snapshot is the read-only presentation surface.
type Snapshot struct {
	Screen           Screen    `json:"screen"`
	Phase            Phase     `json:"phase"`
	BreakKind        BreakKind `json:"break_kind,omitempty"`
	RemainingSeconds int       `json:"remaining_seconds"`
	CycleIndex       int       `json:"cycle_index"`
	TotalCycles      int       `json:"total_cycles"`
	ActiveVideoID    string    `json:"active_video_id"`
	VideoIDError     string    `json:"video_id_error,omitempty"`
	Configured       bool      `json:"configured"`
	Config           Config    `json:"config"`
	Draft            Draft     `json:"draft"`
	PlayerAttached   bool      `json:"player_attached"`
	PlayerReady      bool      `json:"player_ready"`
}

// Snapshot returns the current presentation surface.
func (c *Controller) Snapshot() Snapshot {
	total := c.config.TotalCycles
	if !c.configured {
		total = max(1, c.draft.TotalCycles)
	}
	return Snapshot{
		Screen:           c.screen,
		Phase:            c.phase,
		BreakKind:        c.breakKind,
		RemainingSeconds: c.timer.Remaining(),
		CycleIndex:       c.cycleIndex,
		TotalCycles:      total,
		ActiveVideoID:    c.activeVideoID,
		VideoIDError:     c.videoIDError,
		Configured:       c.configured,
		Config:           c.config.Clone(),
		Draft:            c.draft.clone(),
		PlayerAttached:   c.adapter != nil,
		PlayerReady:      c.ready,
	}
}

func (c *Controller) emit(t EventType) {
	if len(c.observers) == 0 {
		return
	}
	event := Event{Type: t, Snapshot: c.Snapshot()}
	for _, fn := range c.observers {
		fn(event)
	}
}
