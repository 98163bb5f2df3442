package auth

import (
	"errors"
	"testing"
	"time"
)

func TestManagerSignInRequiresAccessToken(t *testing.T) {
	m := NewManager([]byte("k"), time.Hour)
	if _, _, err := m.SignIn(SignInResult{User: User{ID: "u1"}}); !errors.Is(err, ErrMissingAccessToken) {
		t.Fatalf("expected missing access token, got %v", err)
	}
	if ErrMissingAccessToken.Error() != "Missing Google access token. Please sign in again." {
		t.Fatalf("unexpected message %q", ErrMissingAccessToken.Error())
	}
}

func TestManagerAuthStateListeners(t *testing.T) {
	m := NewManager([]byte("k"), time.Hour)
	var states []AuthState
	unsubscribe := m.OnAuthStateChanged(func(s AuthState) { states = append(states, s) })

	_, s, err := m.SignIn(SignInResult{User: User{ID: "u1", Name: "Parent"}, AccessToken: "tok"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	m.SignOut(s.ID)
	m.SignOut(s.ID)

	if len(states) != 2 {
		t.Fatalf("expected sign-in and one sign-out, got %+v", states)
	}
	if !states[0].SignedIn || states[0].User == nil || states[0].User.Name != "Parent" {
		t.Fatalf("unexpected sign-in state: %+v", states[0])
	}
	if states[1].SignedIn || states[1].SessionID != s.ID {
		t.Fatalf("unexpected sign-out state: %+v", states[1])
	}

	unsubscribe()
	unsubscribe()
	if _, _, err := m.SignIn(SignInResult{AccessToken: "tok"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", len(states))
	}
}

func TestManagerAccessTokenAndSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager([]byte("k"), time.Hour)
	m.now = func() time.Time { return now }

	_, s, err := m.SignIn(SignInResult{AccessToken: "tok", Expiry: now.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if tok, err := m.AccessToken(s.ID); err != nil || tok != "tok" {
		t.Fatalf("expected access token, got %q %v", tok, err)
	}

	now = now.Add(45 * time.Minute)
	if _, err := m.AccessToken(s.ID); !errors.Is(err, ErrMissingAccessToken) {
		t.Fatalf("expected expired google token to be missing, got %v", err)
	}

	var signedOut int
	m.OnAuthStateChanged(func(s AuthState) {
		if !s.SignedIn {
			signedOut++
		}
	})
	now = now.Add(time.Hour)
	if n := m.Sweep(); n != 1 || signedOut != 1 {
		t.Fatalf("expected one expired session, got %d (notified %d)", n, signedOut)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
}
