package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/friendsincode/kidscast/internal/auth"
	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/countdown"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/playback"
	"github.com/friendsincode/kidscast/internal/playlists"
	"github.com/friendsincode/kidscast/internal/session"
)

type stubVoice struct{}

func (stubVoice) Synthesize(context.Context, string) (string, error) { return "/audio/clip.mp3", nil }
func (stubVoice) Revoke(string)                                      {}

type stubSignIn struct {
	result auth.SignInResult
	err    error
	codes  []string
}

func (s *stubSignIn) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + url.QueryEscape(state)
}

func (s *stubSignIn) Exchange(_ context.Context, code string) (auth.SignInResult, error) {
	s.codes = append(s.codes, code)
	return s.result, s.err
}

type stubSource struct {
	tokens []string
}

func (s *stubSource) FetchPlaylists(_ context.Context, accessToken string) ([]playlists.Playlist, error) {
	s.tokens = append(s.tokens, accessToken)
	return []playlists.Playlist{{ID: "PL1", Title: "Cartoons"}}, nil
}

func (s *stubSource) FetchPlaylistVideos(_ context.Context, accessToken, playlistID, pageToken string) (playlists.VideoPage, error) {
	if pageToken == "" {
		return playlists.VideoPage{Videos: []playlists.Video{{ID: "v1"}}, NextPageToken: "next"}, nil
	}
	return playlists.VideoPage{Videos: []playlists.Video{{ID: "v2"}}}, nil
}

type testEnv struct {
	srv      *httptest.Server
	bus      *events.Bus
	sessions *auth.Manager
	signIn   *stubSignIn
	source   *stubSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bus := events.NewBus()
	kiosk := session.New(session.Config{
		Scripts:  cinematic.DefaultScripts(),
		Primary:  stubVoice{},
		Fallback: stubVoice{},
		Bus:      bus,
		Ticker:   countdown.NewManualTicker(),
		Logger:   zerolog.Nop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = kiosk.Run(ctx)
		close(done)
	}()

	env := &testEnv{
		bus:      bus,
		sessions: auth.NewManager([]byte("test-secret"), time.Hour),
		signIn: &stubSignIn{result: auth.SignInResult{
			User:        auth.User{ID: "u1", Email: "parent@example.test"},
			AccessToken: "google-token",
		}},
		source: &stubSource{},
	}
	a := New(Deps{
		Kiosk:     kiosk,
		Sessions:  env.sessions,
		SignIn:    env.signIn,
		Playlists: playlists.NewRegistry(env.source, zerolog.Nop()),
		Logger:    zerolog.Nop(),
	})
	r := chi.NewRouter()
	a.Routes(r)
	env.srv = httptest.NewServer(r)

	t.Cleanup(func() {
		env.srv.Close()
		cancel()
		<-done
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/session/start", "", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("start before configure status=%d, want 409", resp.StatusCode)
	}
	if body := decode[map[string]string](t, resp); body["error"] != string(playback.KindNotConfigured) {
		t.Fatalf("unexpected error body: %+v", body)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/session/configure", `{"video_ids":[]}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty configure status=%d, want 400", resp.StatusCode)
	}
	if body := decode[map[string]string](t, resp); body["message"] != playback.ErrEmptyPlaylist.Message {
		t.Fatalf("unexpected message: %+v", body)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/session/configure", `{"video_ids":["a","b"],"play_seconds":5,"break_seconds":2,"total_cycles":2}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("configure status=%d", resp.StatusCode)
	}
	got := decode[sessionResponse](t, resp)
	if !got.Snapshot.Configured || got.Snapshot.TotalCycles != 2 {
		t.Fatalf("unexpected snapshot: %+v", got.Snapshot)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/session/start", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status=%d", resp.StatusCode)
	}
	if got := decode[sessionResponse](t, resp); got.Snapshot.Screen != playback.ScreenIntro {
		t.Fatalf("screen=%q, want intro", got.Snapshot.Screen)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/session/configure", `{"video_ids":["c"]}`, "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("configure during session status=%d, want 409", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/session/teardown", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("teardown status=%d", resp.StatusCode)
	}
	if got := decode[sessionResponse](t, resp); got.Snapshot.Screen != playback.ScreenConfiguring {
		t.Fatalf("screen=%q, want configuring", got.Snapshot.Screen)
	}
}

func TestDraftEndpoints(t *testing.T) {
	env := newTestEnv(t)
	imports := env.bus.Subscribe(events.EventPlaylistImport)

	resp := env.do(t, http.MethodPut, "/api/v1/draft/inputs/0", `{"value":"abc"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set input status=%d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, "/api/v1/draft/video-ids", `{"video_id":"abc","playlist_id":"PL1"}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate video id status=%d, want 400", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, "/api/v1/draft/video-ids", `{"video_id":"def","playlist_id":"PL1"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add video id status=%d", resp.StatusCode)
	}
	d := decode[playback.Draft](t, resp)
	if len(d.Inputs) != 2 || d.Inputs[1] != "def" {
		t.Fatalf("unexpected inputs: %+v", d.Inputs)
	}
	select {
	case p := <-imports:
		if p["video_id"] != "def" {
			t.Fatalf("unexpected import payload: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("expected playlist import event")
	}

	resp = env.do(t, http.MethodDelete, "/api/v1/draft/inputs/x", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad index status=%d, want 400", resp.StatusCode)
	}
	resp = env.do(t, http.MethodDelete, "/api/v1/draft/inputs/7", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out of range index status=%d, want 400", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPut, "/api/v1/draft/timings", `{"play_seconds":3,"break_seconds":1,"total_cycles":1}`, "")
	if d := decode[playback.Draft](t, resp); d.PlaySeconds != 3 || d.TotalCycles != 1 {
		t.Fatalf("unexpected timings: %+v", d)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/draft/start", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("draft start status=%d", resp.StatusCode)
	}
	got := decode[sessionResponse](t, resp)
	if got.Snapshot.Screen != playback.ScreenIntro || len(got.Snapshot.Config.VideoIDs) != 2 {
		t.Fatalf("unexpected snapshot: %+v", got.Snapshot)
	}
}

func TestCinematicStartWithoutCinematic(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/v1/cinematic/start", "", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status=%d, want 409", resp.StatusCode)
	}
}

func TestSignInFlowAndPlaylists(t *testing.T) {
	env := newTestEnv(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp := env.do(t, http.MethodGet, "/api/v1/playlists", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous playlists status=%d, want 401", resp.StatusCode)
	}

	login, err := client.Get(env.srv.URL + "/auth/login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	login.Body.Close()
	if login.StatusCode != http.StatusFound {
		t.Fatalf("login status=%d, want 302", login.StatusCode)
	}
	loc, _ := url.Parse(login.Header.Get("Location"))
	state := loc.Query().Get("state")
	var stateCookie *http.Cookie
	for _, c := range login.Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	if state == "" || stateCookie == nil || stateCookie.Value != state {
		t.Fatalf("state mismatch: %q vs %+v", state, stateCookie)
	}

	bad, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/auth/callback?code=c&state=wrong", nil)
	bad.AddCookie(stateCookie)
	badResp, err := client.Do(bad)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad state status=%d, want 400", badResp.StatusCode)
	}

	cb, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/auth/callback?code=c1&state="+url.QueryEscape(state), nil)
	cb.AddCookie(stateCookie)
	cbResp, err := client.Do(cb)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	cbResp.Body.Close()
	if cbResp.StatusCode != http.StatusFound {
		t.Fatalf("callback status=%d, want 302", cbResp.StatusCode)
	}
	var token string
	for _, c := range cbResp.Cookies() {
		if c.Name == auth.CookieName {
			token = c.Value
		}
	}
	if token == "" || len(env.signIn.codes) != 1 || env.signIn.codes[0] != "c1" {
		t.Fatalf("sign-in not completed: token=%q codes=%v", token, env.signIn.codes)
	}

	me := decode[map[string]any](t, env.do(t, http.MethodGet, "/auth/me", "", token))
	if me["signed_in"] != true {
		t.Fatalf("expected signed in, got %+v", me)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/playlists", "", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("playlists status=%d", resp.StatusCode)
	}
	if st := decode[playlists.State](t, resp); len(st.Playlists) != 1 || st.Playlists[0].ID != "PL1" {
		t.Fatalf("unexpected playlists: %+v", st)
	}
	if len(env.source.tokens) != 1 || env.source.tokens[0] != "google-token" {
		t.Fatalf("source called with %v", env.source.tokens)
	}

	env.do(t, http.MethodGet, "/api/v1/playlists/PL1/videos", "", token)
	resp = env.do(t, http.MethodGet, "/api/v1/playlists/PL1/videos?pageToken=next", "", token)
	st := decode[playlists.State](t, resp)
	if len(st.Videos) != 2 || st.NextPageToken != "" || st.ActivePlaylistID != "PL1" {
		t.Fatalf("unexpected video pages: %+v", st)
	}

	resp = env.do(t, http.MethodPost, "/auth/logout", "", token)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status=%d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/v1/playlists/state", "", token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("after logout status=%d, want 401", resp.StatusCode)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.signIn.err = errors.New("exchange code: boom")

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/auth/callback?code=c&state=s", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", resp.StatusCode)
	}
}

func TestEventsWebSocketSendsSnapshotThenEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(env.srv.URL, "http")+"/api/v1/events?types=session,session.start", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	var first struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.Type != string(events.EventSession) || first.Payload["snapshot"] == nil {
		t.Fatalf("unexpected initial message: %+v", first)
	}

	env.do(t, http.MethodPost, "/api/v1/session/configure", `{"video_ids":["a"]}`, "")
	var next struct {
		Type string `json:"type"`
	}
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if next.Type != string(events.EventSession) {
		t.Fatalf("type=%q, want %q", next.Type, events.EventSession)
	}
}

func TestParseEventTypes(t *testing.T) {
	got := parseEventTypes(" session , ,display.online")
	if len(got) != 2 || got[0] != events.EventSession || got[1] != events.EventDisplayOnline {
		t.Fatalf("unexpected types: %v", got)
	}
	if parseEventTypes("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
