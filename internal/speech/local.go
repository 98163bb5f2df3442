/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// LocalDefaults slow the on-device voice down and lower it for a friendlier host.
var LocalDefaults = Options{
	SpeakingRate: 0.9,
	Pitch:        0.8,
}

const (
	espeakBaseWPM   = 175
	espeakBasePitch = 50
)

// Local runs an espeak-ng compatible binary that writes WAV to stdout.
type Local struct {
	bin string
}

// NewLocal creates a local provider for bin (e.g. "espeak-ng").
func NewLocal(bin string) *Local {
	return &Local{bin: bin}
}

func (l *Local) Name() string { return "local" }

// Args returns the command-line arguments for text.
func (l *Local) Args(text string, opts Options) []string {
	opts = withDefaults(opts, LocalDefaults)
	wpm := int(math.Round(espeakBaseWPM * opts.SpeakingRate))
	pitch := int(math.Round(espeakBasePitch * opts.Pitch))
	pitch = min(max(pitch, 0), 99)

	args := []string{"--stdout", "-s", strconv.Itoa(wpm), "-p", strconv.Itoa(pitch)}
	if opts.VoiceName != "" {
		args = append(args, "-v", opts.VoiceName)
	} else if opts.LanguageCode != "" {
		args = append(args, "-v", strings.ToLower(opts.LanguageCode))
	}
	return append(args, "--", text)
}

func (l *Local) Synthesize(ctx context.Context, text string, opts Options) (Clip, error) {
	if l.bin == "" {
		return Clip{}, fmt.Errorf("local speech binary not configured")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.bin, l.Args(text, opts)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Clip{}, fmt.Errorf("%s: %w: %s", l.bin, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return Clip{}, ErrNoAudio
	}
	return Clip{Data: stdout.Bytes(), MimeType: "audio/wav"}, nil
}
