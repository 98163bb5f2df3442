/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package browser launches the kiosk display page in Chromium and controls its window.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/playback"
)

// ErrNotStarted is returned when the window is controlled before Start.
var ErrNotStarted = errors.New("kiosk browser not started")

// Config selects the browser binary and page.
type Config struct {
	Bin      string // Empty uses the browser rod downloads or finds
	URL      string
	Headless bool
}

// Browser is a Chromium instance showing the display page.
type Browser struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// New creates an unstarted kiosk browser.
func New(cfg Config, logger zerolog.Logger) *Browser {
	return &Browser{cfg: cfg, logger: logger.With().Str("component", "browser").Logger()}
}

func (b *Browser) newLauncher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(b.cfg.Headless).
		Set("kiosk").
		Set("autoplay-policy", "no-user-gesture-required").
		Set("noerrdialogs").
		Delete("mute-audio")
	if b.cfg.Bin != "" {
		l = l.Bin(b.cfg.Bin)
	}
	return l
}

// Start launches the browser and opens the display page.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page != nil {
		return nil
	}

	l := b.newLauncher(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: b.cfg.URL})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return fmt.Errorf("open display page: %w", err)
	}

	b.launcher = l
	b.browser = browser
	b.page = page
	b.logger.Info().Str("url", b.cfg.URL).Msg("kiosk browser started")
	return nil
}

// RequestFullscreen maximizes the browser window to fullscreen.
func (b *Browser) RequestFullscreen() error {
	b.mu.Lock()
	page := b.page
	b.mu.Unlock()
	if page == nil {
		return &playback.Error{Kind: playback.KindFullscreenDenied, Message: ErrNotStarted.Error()}
	}
	if err := page.SetWindow(&proto.BrowserBounds{WindowState: proto.BrowserWindowStateFullscreen}); err != nil {
		return &playback.Error{Kind: playback.KindFullscreenDenied, Message: err.Error()}
	}
	return nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	b.browser, b.page, b.launcher = nil, nil, nil
	return err
}

var _ playback.Fullscreen = (*Browser)(nil)
