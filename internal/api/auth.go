/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/kidscast/internal/auth"
)

const (
	stateCookieName = "kidscast_oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.signIn == nil {
		writeError(w, http.StatusNotFound, "sign_in_disabled")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.signIn.AuthCodeURL(state), http.StatusFound)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	if a.signIn == nil {
		writeError(w, http.StatusNotFound, "sign_in_disabled")
		return
	}
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		a.logger.Info().Str("reason", reason).Msg("sign-in cancelled")
		http.Redirect(w, r, "/?auth_error="+url.QueryEscape(reason), http.StatusFound)
		return
	}

	c, err := r.Cookie(stateCookieName)
	state := q.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		writeError(w, http.StatusBadRequest, "invalid_state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: a.secureCookies})

	res, err := a.signIn.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		a.logger.Warn().Err(err).Msg("google sign-in failed")
		writeErrorMessage(w, http.StatusBadGateway, "sign_in_failed", err.Error())
		return
	}
	token, s, err := a.sessions.SignIn(res)
	if err != nil {
		writeErrorMessage(w, http.StatusUnauthorized, "missing_access_token", err.Error())
		return
	}
	a.logger.Info().Str("session_id", s.ID).Str("user_id", s.User.ID).Msg("signed in")
	auth.SetSessionCookie(w, token, a.sessions.TTL(), a.secureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s, ok := auth.SessionFromContext(r.Context()); ok {
		if a.cache != nil {
			if token, err := a.sessions.AccessToken(s.ID); err == nil {
				a.cache.Forget(r.Context(), token)
			}
		}
		a.sessions.SignOut(s.ID)
	}
	auth.ClearSessionCookie(w, a.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"signed_in":       false,
			"sign_in_enabled": a.signIn != nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signed_in":       true,
		"sign_in_enabled": a.signIn != nil,
		"user":            s.User,
		"expires_at":      s.ExpiresAt,
	})
}
