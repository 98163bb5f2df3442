/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/api"
	"github.com/friendsincode/kidscast/internal/audiostore"
	"github.com/friendsincode/kidscast/internal/auth"
	"github.com/friendsincode/kidscast/internal/browser"
	"github.com/friendsincode/kidscast/internal/cache"
	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/config"
	"github.com/friendsincode/kidscast/internal/eventbus"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/playback"
	"github.com/friendsincode/kidscast/internal/playlists"
	"github.com/friendsincode/kidscast/internal/session"
	"github.com/friendsincode/kidscast/internal/speech"
	"github.com/friendsincode/kidscast/internal/telemetry"
)

const sweepInterval = time.Minute

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	bus       *events.Bus
	kiosk     *session.Kiosk
	sessions  *auth.Manager
	audio     audiostore.Store
	memAudio  *audiostore.Memory
	playlists *playlists.Registry
	cached    *playlists.Cached
	browser   *browser.Browser
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("kidscast-api"))
	router.Use(telemetry.MetricsMiddleware)
	// WebSocket connections outlive any request timeout.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(context.Background()); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Display and event sockets are long-lived; handlers manage their own deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies(ctx context.Context) error {
	scripts := cinematic.DefaultScripts()
	if s.cfg.ScriptsPath != "" {
		loaded, err := cinematic.LoadScripts(s.cfg.ScriptsPath)
		if err != nil {
			return fmt.Errorf("load cinematic scripts: %w", err)
		}
		scripts = loaded
		s.logger.Info().Str("path", s.cfg.ScriptsPath).Msg("cinematic scripts loaded")
	}

	if err := s.initAudioStore(ctx); err != nil {
		return err
	}

	voices := NewVoices(ctx, s.cfg, s.logger)
	var primary cinematic.Voice
	if voices.Primary != nil {
		primary = speech.NewNarrator(voices.Primary, voices.PrimaryOptions, s.audio, s.logger)
	}
	fallback := speech.NewNarrator(voices.Fallback, speech.Options{}, s.audio, s.logger)

	var fullscreen []playback.Fullscreen
	if s.cfg.LaunchBrowser {
		s.browser = browser.New(browser.Config{
			Bin: s.cfg.BrowserBin,
			URL: s.cfg.DisplayURL,
		}, s.logger)
		s.DeferClose(s.browser.Close)
		fullscreen = append(fullscreen, s.browser)
	}

	s.kiosk = session.New(session.Config{
		Scripts:       scripts,
		Primary:       primary,
		Fallback:      fallback,
		Bus:           s.bus,
		Fullscreen:    fullscreen,
		SpeechTimeout: s.cfg.SpeechTimeout,
		Logger:        s.logger,
	})

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.Subject = s.cfg.NATSSubject
		mirror, err := eventbus.NewMirror(natsCfg, s.bus, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("nats mirror unavailable, events stay local")
		} else {
			s.DeferClose(mirror.Close)
		}
	}

	s.sessions = auth.NewManager([]byte(s.cfg.JWTSigningKey), s.cfg.SessionTTL)

	var source playlists.Source = playlists.NewYouTube()
	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.PlaylistsTTL = s.cfg.PlaylistCacheTTL
		cacheCfg.VideoPageTTL = s.cfg.PlaylistCacheTTL
		playlistCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.DeferClose(playlistCache.Close)
			s.cached = playlists.NewCached(source, playlistCache)
			source = s.cached
		}
	}
	s.playlists = playlists.NewRegistry(source, s.logger)

	unwatch := s.sessions.OnAuthStateChanged(func(state auth.AuthState) {
		s.playlists.HandleAuthState(state)
		s.bus.Publish(events.EventAuthChanged, events.Payload{
			"session_id": state.SessionID,
			"signed_in":  state.SignedIn,
		})
	})
	s.DeferClose(func() error {
		unwatch()
		return nil
	})

	deps := api.Deps{
		Kiosk:         s.kiosk,
		Sessions:      s.sessions,
		Playlists:     s.playlists,
		Bus:           s.bus,
		SecureCookies: strings.HasPrefix(s.cfg.BaseURL, "https://"),
		Logger:        s.logger,
	}
	if s.cached != nil {
		deps.Cache = s.cached
	}
	if s.cfg.GoogleSignInEnabled() {
		deps.SignIn = auth.NewGoogle(auth.GoogleConfig{
			ClientID:     s.cfg.GoogleClientID,
			ClientSecret: s.cfg.GoogleClientSecret,
			RedirectURL:  s.cfg.GoogleRedirectURL,
		})
	} else {
		s.logger.Info().Msg("google sign-in not configured, playlist import disabled")
	}
	s.api = api.New(deps)
	return nil
}

func (s *Server) initAudioStore(ctx context.Context) error {
	switch s.cfg.AudioStore {
	case config.AudioStoreS3:
		store, err := audiostore.NewS3(ctx, audiostore.S3Config{
			Bucket:          s.cfg.S3Bucket,
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			UsePathStyle:    s.cfg.S3UsePathStyle,
			Prefix:          s.cfg.S3Prefix,
			URLTTL:          s.cfg.AudioURLTTL,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("initialize s3 audio store: %w", err)
		}
		s.audio = store
	default:
		s.memAudio = audiostore.NewMemory(s.cfg.BaseURL, audiostore.DefaultMemoryEntries)
		s.audio = s.memAudio
	}
	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := `{"status":"ok","display":false}`
		if s.kiosk.Bridge().Connected() {
			response = `{"status":"ok","display":true}`
		}
		_, _ = w.Write([]byte(response))
	})

	s.router.Handle("/metrics", telemetry.Handler())
	s.router.Get("/display/ws", s.kiosk.Bridge().HandleWebSocket)
	if s.memAudio != nil {
		s.router.Get("/audio/{id}", s.memAudio.ServeHTTP)
	}

	s.api.Routes(s.router)
}

// Kiosk returns the session facade.
func (s *Server) Kiosk() *session.Kiosk {
	return s.kiosk
}

func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close stops background work and runs deferred closers in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.kiosk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("session loop exited")
		}
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()

	if s.browser != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.browser.Start(ctx); err != nil {
				s.logger.Error().Err(err).Str("url", s.cfg.DisplayURL).Msg("kiosk browser failed to start")
			}
		}()
	}
}

func (s *Server) sweep() {
	if n := s.sessions.Sweep(); n > 0 {
		s.logger.Debug().Int("count", n).Msg("expired sign-in sessions removed")
	}
	if s.memAudio != nil {
		if n := s.memAudio.Sweep(s.cfg.AudioURLTTL); n > 0 {
			s.logger.Debug().Int("count", n).Msg("stale narration clips removed")
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}
