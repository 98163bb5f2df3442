/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingAccessToken is shown when playlist import is attempted without a Google token.
	ErrMissingAccessToken = errors.New("Missing Google access token. Please sign in again.")
	// ErrSessionNotFound is returned for unknown or expired sign-in sessions.
	ErrSessionNotFound = errors.New("sign-in session not found")
)

// User is the signed-in Google account.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// SignInResult is what the identity provider returns on a successful sign-in.
type SignInResult struct {
	User        User
	AccessToken string
	Expiry      time.Time
}

// Session is one signed-in browser.
type Session struct {
	ID          string    `json:"id"`
	User        User      `json:"user"`
	AccessToken string    `json:"-"`
	TokenExpiry time.Time `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthState is delivered to OnAuthStateChanged listeners.
type AuthState struct {
	SessionID string `json:"session_id"`
	SignedIn  bool   `json:"signed_in"`
	User      *User  `json:"user,omitempty"`
}

// Manager keeps sign-in sessions in memory.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*Session
	listeners map[int]func(AuthState)
	nextID    int
}

// NewManager creates a session manager issuing tokens signed with secret.
func NewManager(secret []byte, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		secret:    secret,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		listeners: make(map[int]func(AuthState)),
	}
}

// TTL is the lifetime of issued session tokens.
func (m *Manager) TTL() time.Duration { return m.ttl }

// SignIn stores the result and returns a signed session token.
func (m *Manager) SignIn(res SignInResult) (string, *Session, error) {
	if res.AccessToken == "" {
		return "", nil, ErrMissingAccessToken
	}
	now := m.now()
	s := &Session{
		ID:          uuid.NewString(),
		User:        res.User,
		AccessToken: res.AccessToken,
		TokenExpiry: res.Expiry,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	token, err := Issue(m.secret, Claims{SessionID: s.ID, UserID: s.User.ID, Email: s.User.Email}, m.ttl)
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	user := s.User
	m.notify(AuthState{SessionID: s.ID, SignedIn: true, User: &user})
	return token, s, nil
}

// SignOut forgets the session. Unknown ids are ignored.
func (m *Manager) SignOut(sessionID string) {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if ok {
		m.notify(AuthState{SessionID: sessionID})
	}
}

// OnAuthStateChanged registers fn for sign-in and sign-out. The returned func unsubscribes.
func (m *Manager) OnAuthStateChanged(fn func(AuthState)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Lookup validates a session token and returns its live session.
func (m *Manager) Lookup(token string) (*Session, *Claims, error) {
	claims, err := Parse(m.secret, token)
	if err != nil {
		return nil, nil, err
	}
	s, err := m.Get(claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return s, claims, nil
}

// Get returns a copy of the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// AccessToken returns the Google access token for a session.
func (m *Manager) AccessToken(sessionID string) (string, error) {
	s, err := m.Get(sessionID)
	if err != nil || s.AccessToken == "" {
		return "", ErrMissingAccessToken
	}
	if !s.TokenExpiry.IsZero() && !m.now().Before(s.TokenExpiry) {
		return "", ErrMissingAccessToken
	}
	return s.AccessToken, nil
}

// Sweep removes expired sessions and notifies listeners. Returns the number removed.
func (m *Manager) Sweep() int {
	now := m.now()
	var expired []string
	m.mu.Lock()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, id := range expired {
		m.notify(AuthState{SessionID: id})
	}
	return len(expired)
}

func (m *Manager) notify(state AuthState) {
	m.mu.RLock()
	fns := make([]func(AuthState), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(state)
	}
}
