/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

// Phase is the playback phase of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePlaying Phase = "playing"
	PhaseOnBreak Phase = "on_break"
)

// Screen routes the display between the cinematic and the player.
type Screen string

const (
	ScreenConfiguring Screen = "configuring"
	ScreenIntro       Screen = "intro"
	ScreenPlayer      Screen = "player"
	ScreenOutro       Screen = "outro"
)

// PhaseEvent drives phase transitions.
type PhaseEvent string

const (
	EvPlaySegment  PhaseEvent = "play_segment"
	EvBreakSegment PhaseEvent = "break_segment"
	EvVideoBreak   PhaseEvent = "video_break"
	EvVideoAdvance PhaseEvent = "video_advance"
	EvVideoResume  PhaseEvent = "video_resume"
	EvSessionEnd   PhaseEvent = "session_end"
	EvReset        PhaseEvent = "reset"
)

// Transition is one allowed edge of the phase machine.
type Transition struct {
	From  Phase
	To    Phase
	Event PhaseEvent
}

var transitionsTable = []Transition{
	// Play segments start a cycle from idle, straight after the previous cycle, or after a break.
	{From: PhaseIdle, To: PhasePlaying, Event: EvPlaySegment},
	{From: PhasePlaying, To: PhasePlaying, Event: EvPlaySegment},
	{From: PhaseOnBreak, To: PhasePlaying, Event: EvPlaySegment},

	// Breaks
	{From: PhasePlaying, To: PhaseOnBreak, Event: EvBreakSegment},
	{From: PhasePlaying, To: PhaseOnBreak, Event: EvVideoBreak},
	{From: PhaseOnBreak, To: PhasePlaying, Event: EvVideoResume},

	// Next video within a cycle
	{From: PhasePlaying, To: PhasePlaying, Event: EvVideoAdvance},

	{From: PhasePlaying, To: PhaseIdle, Event: EvSessionEnd},
	{From: PhaseOnBreak, To: PhaseIdle, Event: EvSessionEnd},

	{From: PhaseIdle, To: PhaseIdle, Event: EvReset},
	{From: PhasePlaying, To: PhaseIdle, Event: EvReset},
	{From: PhaseOnBreak, To: PhaseIdle, Event: EvReset},
}

// TransitionFor returns the allowed transition for a given phase+event.
func TransitionFor(from Phase, ev PhaseEvent) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
