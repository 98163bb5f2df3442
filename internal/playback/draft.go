/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import "strings"

// Draft edits never touch a configured session; they only feed the next Configure.

// SetVideoInput replaces input i and clears the validation message.
func (c *Controller) SetVideoInput(i int, value string) error {
	if i < 0 || i >= len(c.draft.Inputs) {
		return ErrInputIndex
	}
	c.draft.Inputs[i] = value
	c.videoIDError = ""
	c.emit(EventDraftChanged)
	return nil
}

// AddVideoInput appends an empty input.
func (c *Controller) AddVideoInput() {
	c.draft.Inputs = append(c.draft.Inputs, "")
	c.emit(EventDraftChanged)
}

// RemoveVideoInput drops input i. One empty input always remains.
func (c *Controller) RemoveVideoInput(i int) error {
	if i < 0 || i >= len(c.draft.Inputs) {
		return ErrInputIndex
	}
	c.draft.Inputs = append(c.draft.Inputs[:i], c.draft.Inputs[i+1:]...)
	if len(c.draft.Inputs) == 0 {
		c.draft.Inputs = []string{""}
	}
	c.emit(EventDraftChanged)
	return nil
}

// AddVideoID appends an id picked from a playlist. Blank ids are ignored.
func (c *Controller) AddVideoID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil
	}
	for _, existing := range NormalizeVideoIDs(c.draft.Inputs) {
		if existing == trimmed {
			c.videoIDError = ErrDuplicateVideoID.Message
			c.emit(EventValidationFailed)
			return ErrDuplicateVideoID
		}
	}
	c.videoIDError = ""
	c.draft.Inputs = append(c.draft.Inputs, trimmed)
	c.emit(EventDraftChanged)
	return nil
}

// SetTimings stores raw timings; Configure clamps them.
func (c *Controller) SetTimings(playSeconds, breakSeconds, totalCycles int) {
	c.draft.PlaySeconds = playSeconds
	c.draft.BreakSeconds = breakSeconds
	c.draft.TotalCycles = totalCycles
	c.emit(EventDraftChanged)
}

// StartFromDraft configures from the draft and starts the session.
func (c *Controller) StartFromDraft() error {
	d := c.draft.clone()
	if err := c.Configure(d.Inputs, d.PlaySeconds, d.BreakSeconds, d.TotalCycles); err != nil {
		return err
	}
	return c.StartSession()
}

// Draft returns a copy of the draft.
func (c *Controller) Draft() Draft {
	return c.draft.clone()
}
