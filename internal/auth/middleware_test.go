package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func signedIn(t *testing.T) (*Manager, string) {
	t.Helper()
	m := NewManager([]byte("test-secret"), time.Hour)
	token, _, err := m.SignIn(SignInResult{User: User{ID: "u1", Email: "parent@example.com"}, AccessToken: "ya29.token"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	return m, token
}

func TestMiddleware_AcceptsBearerToken(t *testing.T) {
	m, token := signedIn(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok || s.User.ID != "u1" {
			t.Fatalf("expected session in context")
		}
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			t.Fatalf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playlists", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Middleware(m)(Require(next)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_AcceptsSessionCookie(t *testing.T) {
	m, token := signedIn(t)

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, token, time.Hour, false)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playlists", nil)
	req.AddCookie(cookies[0])
	rr := httptest.NewRecorder()
	Middleware(m)(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestMiddleware_RejectsQueryToken(t *testing.T) {
	m, token := signedIn(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playlists?token="+token, nil)
	rr := httptest.NewRecorder()

	Middleware(m)(Require(next)).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token auth, got %d", rr.Code)
	}
}

func TestMiddleware_AllowsQueryTokenForEventsWebSocket(t *testing.T) {
	m, token := signedIn(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()

	Middleware(m)(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for websocket query token, got %d", rr.Code)
	}
}

func TestMiddleware_SignedOutTokenIsAnonymous(t *testing.T) {
	m, token := signedIn(t)
	s, _, err := m.Lookup(token)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	m.SignOut(s.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); ok {
			t.Fatal("expected no session after sign-out")
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected anonymous pass-through, got %d", rr.Code)
	}
}
