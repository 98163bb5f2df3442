/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"errors"

	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/display"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/playback"
	"github.com/friendsincode/kidscast/internal/telemetry"
)

var busTypes = map[playback.EventType]events.EventType{
	playback.EventConfigured:       events.EventSession,
	playback.EventValidationFailed: events.EventDraftChanged,
	playback.EventDraftChanged:     events.EventDraftChanged,
	playback.EventSessionStarted:   events.EventSessionStart,
	playback.EventPlaySegment:      events.EventSegment,
	playback.EventBreakSegment:     events.EventSegment,
	playback.EventVideoBreak:       events.EventSegment,
	playback.EventVideoAdvanced:    events.EventSegment,
	playback.EventTick:             events.EventTick,
	playback.EventSessionEnded:     events.EventSessionEnd,
	playback.EventTeardown:         events.EventSession,
}

// onEvent runs on the loop for every controller event.
func (k *Kiosk) onEvent(ev playback.Event) {
	k.store(ev.Snapshot)
	if ev.Snapshot.Screen != playback.ScreenIntro && ev.Snapshot.Screen != playback.ScreenOutro {
		k.storeFrame(nil)
	}
	recordMetrics(ev)

	if err := k.bridge.ShowScreen(ev.Snapshot); err != nil && !errors.Is(err, display.ErrNoDisplay) {
		k.logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("display update failed")
	}

	busType, ok := busTypes[ev.Type]
	if !ok {
		busType = events.EventSession
	}
	k.bus.Publish(busType, events.Payload{
		"event":    string(ev.Type),
		"snapshot": ev.Snapshot,
	})
}

func recordMetrics(ev playback.Event) {
	switch ev.Type {
	case playback.EventSessionStarted:
		telemetry.SessionsTotal.WithLabelValues("started").Inc()
	case playback.EventSessionEnded:
		telemetry.SessionsTotal.WithLabelValues("ended").Inc()
	case playback.EventTeardown:
		telemetry.SessionsTotal.WithLabelValues("teardown").Inc()
		telemetry.SegmentRemainingSeconds.Set(0)
	case playback.EventValidationFailed:
		telemetry.SessionsTotal.WithLabelValues("rejected").Inc()
	case playback.EventPlaySegment:
		telemetry.SegmentsTotal.WithLabelValues("play").Inc()
		telemetry.SegmentRemainingSeconds.Set(float64(ev.Snapshot.RemainingSeconds))
	case playback.EventBreakSegment:
		telemetry.SegmentsTotal.WithLabelValues("break").Inc()
		telemetry.SegmentRemainingSeconds.Set(float64(ev.Snapshot.RemainingSeconds))
	case playback.EventVideoBreak:
		telemetry.SegmentsTotal.WithLabelValues("video_break").Inc()
		telemetry.SegmentRemainingSeconds.Set(float64(ev.Snapshot.RemainingSeconds))
	case playback.EventTick:
		telemetry.SegmentRemainingSeconds.Set(float64(ev.Snapshot.RemainingSeconds))
	}
}

// onFrame runs on the loop whenever the mounted cinematic renders.
func (k *Kiosk) onFrame(f cinematic.Frame) {
	k.storeFrame(&f)
	k.bus.Publish(events.EventCinematic, events.Payload{"frame": f})
}

// Attached implements display.Sink.
func (k *Kiosk) Attached(c *display.Conn) {
	k.post(func() {
		if k.bridge.Current() != c {
			return
		}
		k.ctrl.AttachAdapter(k.bridge)
		_ = k.bridge.ShowScreen(k.ctrl.Snapshot())
		if p := k.host.Current(); p != nil {
			k.bridge.Render(p.Frame())
		}
		k.bus.Publish(events.EventDisplayOnline, events.Payload{"display_id": c.ID()})
	})
}

// Detached implements display.Sink.
func (k *Kiosk) Detached(c *display.Conn) {
	k.post(func() {
		if !k.bridge.Connected() {
			k.ctrl.DetachAdapter()
		}
		k.bus.Publish(events.EventDisplayLost, events.Payload{"display_id": c.ID()})
	})
}

// Event implements display.Sink.
func (k *Kiosk) Event(c *display.Conn, msg display.Message) {
	data, err := msg.Decode()
	if err != nil {
		k.logger.Warn().Err(err).Str("type", msg.Type).Msg("invalid display event data")
		return
	}
	k.post(func() {
		if k.bridge.Current() != c {
			return
		}
		k.dispatch(msg.Type, data)
	})
}

func (k *Kiosk) dispatch(typ string, data display.EventData) {
	switch typ {
	case display.EvReady:
		k.ctrl.OnAdapterReady()
	case display.EvEnded:
		k.ctrl.OnVideoEnded()
	case display.EvState:
		state, ok := playback.ParsePlayerState(data.State)
		if !ok {
			k.logger.Debug().Str("state", data.State).Msg("unknown player state")
			return
		}
		k.ctrl.OnAdapterStateChanged(state)
	case display.EvAudioStarted:
		k.host.OnAudioStarted(data.AudioID)
	case display.EvAudioEnded:
		k.host.OnAudioEnded(data.AudioID)
	case display.EvAudioError:
		k.logger.Debug().Str("audio_id", data.AudioID).Str("error", data.Error).Msg("display audio error")
		k.host.OnAudioError(data.AudioID)
	case display.EvDrivingReplayed:
		k.host.OnDrivingReplayed()
	case display.EvFullscreenDenied:
		k.logger.Debug().Str("error_kind", string(playback.KindFullscreenDenied)).Msg("display refused fullscreen")
	default:
		k.logger.Debug().Str("type", typ).Msg("unhandled display event")
	}
}
