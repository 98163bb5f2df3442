/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventSession       EventType = "session"
	EventSessionStart  EventType = "session.start"
	EventSessionEnd    EventType = "session.end"
	EventSegment       EventType = "session.segment"
	EventTick          EventType = "session.tick"
	EventDraftChanged  EventType = "session.draft"
	EventCinematic     EventType = "cinematic.frame"
	EventDisplayOnline EventType = "display.online"
	EventDisplayLost   EventType = "display.offline"

	// Playlist import
	EventAuthChanged     EventType = "auth.changed"
	EventPlaylistsLoaded EventType = "playlists.loaded"
	EventPlaylistImport  EventType = "playlists.import"
)

// All lists event types that clients may subscribe to by default.
var All = []EventType{
	EventSession,
	EventSessionStart,
	EventSessionEnd,
	EventSegment,
	EventTick,
	EventDraftChanged,
	EventCinematic,
	EventDisplayOnline,
	EventDisplayLost,
	EventAuthChanged,
	EventPlaylistsLoaded,
	EventPlaylistImport,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Hook observes every published event. Hooks run synchronously on the publisher.
type Hook func(EventType, Payload)

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu    sync.RWMutex
	subs  map[EventType][]Subscriber
	hooks []Hook
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// OnPublish registers a hook called for every event, used by the NATS mirror.
func (b *Bus) OnPublish(h Hook) {
	b.mu.Lock()
	b.hooks = append(b.hooks, h)
	b.mu.Unlock()
}

// Publish sends payload to subscribers. Slow subscribers miss events.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	hooks := append([]Hook(nil), b.hooks...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
	for _, h := range hooks {
		h(eventType, payload)
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}
