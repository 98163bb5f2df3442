/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/kidscast/internal/auth"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/loop"
	"github.com/friendsincode/kidscast/internal/playback"
	"github.com/friendsincode/kidscast/internal/playlists"
	"github.com/friendsincode/kidscast/internal/session"
	"github.com/friendsincode/kidscast/internal/telemetry"
)

// SignInProvider runs the OAuth consent flow.
type SignInProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (auth.SignInResult, error)
}

// PlaylistCache drops cached playlist pages of an account.
type PlaylistCache interface {
	Forget(ctx context.Context, accessToken string)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Kiosk     *session.Kiosk
	Sessions  *auth.Manager
	SignIn    SignInProvider // nil disables Google sign-in
	Playlists *playlists.Registry
	Cache     PlaylistCache // optional, flushed on sign-out
	Bus       *events.Bus

	// SecureCookies marks session cookies Secure.
	SecureCookies bool
	Logger        zerolog.Logger
}

// API exposes HTTP handlers.
type API struct {
	kiosk         *session.Kiosk
	sessions      *auth.Manager
	signIn        SignInProvider
	playlists     *playlists.Registry
	cache         PlaylistCache
	bus           *events.Bus
	secureCookies bool
	logger        zerolog.Logger
}

// New creates the API router wrapper.
func New(d Deps) *API {
	bus := d.Bus
	if bus == nil && d.Kiosk != nil {
		bus = d.Kiosk.Bus()
	}
	return &API{
		kiosk:         d.Kiosk,
		sessions:      d.Sessions,
		signIn:        d.SignIn,
		playlists:     d.Playlists,
		cache:         d.Cache,
		bus:           bus,
		secureCookies: d.SecureCookies,
		logger:        d.Logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers the session, draft, playlist and sign-in endpoints.
func (a *API) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(a.sessions))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", a.handleLogin)
			r.Get("/callback", a.handleCallback)
			r.Post("/logout", a.handleLogout)
			r.Get("/me", a.handleMe)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", a.handleHealth)
			r.Get("/events", a.handleEvents)

			r.Route("/session", func(r chi.Router) {
				r.Get("/", a.handleSessionGet)
				r.Post("/configure", a.handleSessionConfigure)
				r.Post("/start", a.handleSessionStart)
				r.Post("/teardown", a.handleSessionTeardown)
			})
			r.Post("/cinematic/start", a.handleCinematicStart)

			r.Route("/draft", func(r chi.Router) {
				r.Get("/", a.handleDraftGet)
				r.Post("/inputs", a.handleDraftAddInput)
				r.Put("/inputs/{index}", a.handleDraftSetInput)
				r.Delete("/inputs/{index}", a.handleDraftRemoveInput)
				r.Post("/video-ids", a.handleDraftAddVideoID)
				r.Put("/timings", a.handleDraftTimings)
				r.Post("/start", a.handleDraftStart)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Require)
				r.Get("/playlists", a.handlePlaylistsList)
				r.Get("/playlists/state", a.handlePlaylistsState)
				r.Get("/playlists/{playlistID}/videos", a.handlePlaylistVideos)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	s := a.kiosk.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"screen":          s.Screen,
		"display_online":  a.kiosk.Bridge().Connected(),
		"player_attached": s.PlayerAttached,
	})
}

// handleEvents streams bus events to a dashboard over WebSocket. The first
// message is the current session snapshot.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIActiveConnections.Inc()
	defer telemetry.APIActiveConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = events.All
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	// The read side only exists to notice the client going away.
	ctx = conn.CloseRead(ctx)

	initial := events.Payload{"snapshot": a.kiosk.Snapshot()}
	if err := a.writeEvent(ctx, conn, events.EventSession, initial); err != nil {
		a.logger.Debug().Err(err).Msg("websocket initial write failed")
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Debug().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// writeKioskError maps controller errors onto HTTP statuses.
func writeKioskError(w http.ResponseWriter, err error) {
	kind := playback.KindOf(err)
	switch kind {
	case playback.KindEmptyPlaylist, playback.KindDuplicateVideoID, playback.KindInvalidInput:
		writeErrorMessage(w, http.StatusBadRequest, string(kind), err.Error())
	case playback.KindSessionInProgress, playback.KindNotConfigured, playback.KindInvalidTransition:
		writeErrorMessage(w, http.StatusConflict, string(kind), err.Error())
	case playback.KindAdapterUnavailable, playback.KindFullscreenDenied:
		writeErrorMessage(w, http.StatusServiceUnavailable, string(kind), err.Error())
	default:
		if errors.Is(err, loop.ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "kiosk_unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
