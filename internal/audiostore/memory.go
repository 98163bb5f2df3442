/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audiostore

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DefaultMemoryEntries bounds how many clips the memory store keeps.
const DefaultMemoryEntries = 32

type clip struct {
	data     []byte
	mimeType string
	created  time.Time
}

// Memory keeps clips in process and serves them under {base}/audio/{id}.
type Memory struct {
	mu      sync.RWMutex
	base    string
	max     int
	clips   map[string]clip
	order   []string
	nowFunc func() time.Time
}

// NewMemory creates a memory store. base is the public URL prefix, e.g. http://kiosk:8080.
func NewMemory(base string, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &Memory{
		base:    strings.TrimRight(base, "/"),
		max:     maxEntries,
		clips:   make(map[string]clip),
		nowFunc: time.Now,
	}
}

// Put stores data and returns its URL. The oldest clip is evicted when full.
func (m *Memory) Put(_ context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyAudio
	}
	id := uuid.NewString() + extensionFor(mimeType)

	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.order) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.clips, oldest)
	}
	m.clips[id] = clip{data: append([]byte(nil), data...), mimeType: mimeType, created: m.nowFunc()}
	m.order = append(m.order, id)
	return m.base + "/audio/" + id, nil
}

// Revoke forgets the clip behind url. Unknown URLs are ignored.
func (m *Memory) Revoke(_ context.Context, url string) error {
	id := m.idFor(url)
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clips[id]; !ok {
		return nil
	}
	delete(m.clips, id)
	for i, candidate := range m.order {
		if candidate == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Sweep drops clips older than maxAge and returns how many were removed.
func (m *Memory) Sweep(maxAge time.Duration) int {
	cutoff := m.nowFunc().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	removed := 0
	for _, id := range m.order {
		if m.clips[id].created.Before(cutoff) {
			delete(m.clips, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed
}

// Len returns the number of stored clips.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clips)
}

// ServeHTTP serves GET /audio/{id}.
func (m *Memory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m.mu.RLock()
	c, ok := m.clips[id]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	mimeType := c.mimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(c.data)))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(c.data)
}

func (m *Memory) idFor(url string) string {
	prefix := m.base + "/audio/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
