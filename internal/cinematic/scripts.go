/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cinematic

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultIntroMessage = "Welcome, friend! Let's watch some videos together. Get comfy and have fun!"
	DefaultOutroMessage = "Bye-bye! I need a break to fuel up and get my energy back. See you soon!"
	DefaultBreakVideo   = "/truck_sleep.mp4"
)

// DefaultLayers are the truck videos bundled with the display page.
var DefaultLayers = Layers{
	Idle:    "/truck_idle.mp4",
	Talking: "/truck_talking.mp4",
	Driving: "/truck_driving.mp4",
}

// Scripts holds both cinematics plus the video shown during breaks.
type Scripts struct {
	Intro      Script
	Outro      Script
	BreakVideo string
}

// For returns the script for kind.
func (s Scripts) For(kind Kind) Script {
	if kind == KindOutro {
		return s.Outro
	}
	return s.Intro
}

// DefaultScripts returns the built-in intro and outro.
func DefaultScripts() Scripts {
	return Scripts{
		Intro:      Script{Message: DefaultIntroMessage, Layers: DefaultLayers, AutoStart: true},
		Outro:      Script{Message: DefaultOutroMessage, Layers: DefaultLayers, AutoStart: true},
		BreakVideo: DefaultBreakVideo,
	}
}

type scriptFile struct {
	Intro      *scriptEntry `yaml:"intro"`
	Outro      *scriptEntry `yaml:"outro"`
	BreakVideo string       `yaml:"break_video"`
}

type scriptEntry struct {
	Message   string `yaml:"message"`
	AutoStart *bool  `yaml:"auto_start"`
	Layers    Layers `yaml:"layers"`
}

// LoadScripts reads scripts from a YAML file. Missing fields keep their defaults;
// an empty path returns the defaults.
func LoadScripts(path string) (Scripts, error) {
	scripts := DefaultScripts()
	if path == "" {
		return scripts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Scripts{}, fmt.Errorf("read scripts: %w", err)
	}
	return ParseScripts(data)
}

// ParseScripts decodes YAML scripts over the defaults.
func ParseScripts(data []byte) (Scripts, error) {
	scripts := DefaultScripts()

	var file scriptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Scripts{}, fmt.Errorf("parse scripts: %w", err)
	}

	if file.Intro != nil {
		scripts.Intro = file.Intro.merge(scripts.Intro)
	}
	if file.Outro != nil {
		scripts.Outro = file.Outro.merge(scripts.Outro)
	}
	if file.BreakVideo != "" {
		scripts.BreakVideo = file.BreakVideo
	}
	return scripts, nil
}

func (e *scriptEntry) merge(base Script) Script {
	if e.Message != "" {
		base.Message = e.Message
	}
	if e.AutoStart != nil {
		base.AutoStart = *e.AutoStart
	}
	if e.Layers.Idle != "" {
		base.Layers.Idle = e.Layers.Idle
	}
	if e.Layers.Talking != "" {
		base.Layers.Talking = e.Layers.Talking
	}
	if e.Layers.Driving != "" {
		base.Layers.Driving = e.Layers.Driving
	}
	return base
}
