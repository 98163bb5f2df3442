/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import "strings"

// Defaults for a fresh draft.
const (
	DefaultPlaySeconds  = 20
	DefaultBreakSeconds = 10
	DefaultTotalCycles  = 1
)

// Config is a validated session configuration.
type Config struct {
	VideoIDs     []string `json:"video_ids"`
	PlaySeconds  int      `json:"play_seconds"`
	BreakSeconds int      `json:"break_seconds"`
	TotalCycles  int      `json:"total_cycles"`
}

// NormalizeVideoIDs trims every id and drops empty ones, keeping order.
func NormalizeVideoIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NewConfig validates ids and clamps the timings.
func NewConfig(ids []string, playSeconds, breakSeconds, totalCycles int) (Config, error) {
	normalized := NormalizeVideoIDs(ids)
	if len(normalized) == 0 {
		return Config{}, ErrEmptyPlaylist
	}

	seen := make(map[string]struct{}, len(normalized))
	for _, id := range normalized {
		if _, dup := seen[id]; dup {
			return Config{}, ErrDuplicateVideoID
		}
		seen[id] = struct{}{}
	}

	return Config{
		VideoIDs:     normalized,
		PlaySeconds:  max(0, playSeconds),
		BreakSeconds: max(0, breakSeconds),
		TotalCycles:  max(1, totalCycles),
	}, nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.VideoIDs = append([]string(nil), c.VideoIDs...)
	return c
}

func (c Config) indexOf(id string) int {
	for i, candidate := range c.VideoIDs {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Draft is the editable form the operator fills in before starting.
type Draft struct {
	Inputs       []string `json:"inputs"`
	PlaySeconds  int      `json:"play_seconds"`
	BreakSeconds int      `json:"break_seconds"`
	TotalCycles  int      `json:"total_cycles"`
}

// DefaultDraft returns one empty input and the default timings.
func DefaultDraft() Draft {
	return Draft{
		Inputs:       []string{""},
		PlaySeconds:  DefaultPlaySeconds,
		BreakSeconds: DefaultBreakSeconds,
		TotalCycles:  DefaultTotalCycles,
	}
}

func draftFromConfig(cfg Config) Draft {
	return Draft{
		Inputs:       append([]string(nil), cfg.VideoIDs...),
		PlaySeconds:  cfg.PlaySeconds,
		BreakSeconds: cfg.BreakSeconds,
		TotalCycles:  cfg.TotalCycles,
	}
}

func (d Draft) clone() Draft {
	d.Inputs = append([]string(nil), d.Inputs...)
	return d
}
