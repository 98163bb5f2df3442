package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/countdown"
	"github.com/friendsincode/kidscast/internal/display"
	"github.com/friendsincode/kidscast/internal/events"
	"github.com/friendsincode/kidscast/internal/playback"
)

type stubVoice struct {
	mu      sync.Mutex
	url     string
	revoked []string
}

func (v *stubVoice) Synthesize(context.Context, string) (string, error) {
	return v.url, nil
}

func (v *stubVoice) Revoke(url string) {
	v.mu.Lock()
	v.revoked = append(v.revoked, url)
	v.mu.Unlock()
}

type command struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type harness struct {
	t      *testing.T
	kiosk  *Kiosk
	ticker *countdown.ManualTicker
	client *ws.Conn
	cmds   chan command
	bus    *events.Bus
	cancel context.CancelFunc
	done   chan error
	srv    *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ticker := countdown.NewManualTicker()
	bus := events.NewBus()
	k := New(Config{
		Scripts:  cinematic.DefaultScripts(),
		Primary:  &stubVoice{url: "/audio/intro.mp3"},
		Fallback: &stubVoice{url: "/audio/local.wav"},
		Bus:      bus,
		Ticker:   ticker,
		Logger:   zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(k.Bridge().HandleWebSocket))
	dctx, dcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dcancel()
	client, _, err := ws.Dial(dctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial display: %v", err)
	}

	h := &harness{t: t, kiosk: k, ticker: ticker, client: client, cmds: make(chan command, 128), bus: bus, cancel: cancel, done: done, srv: srv}
	go func() {
		for {
			var c command
			if err := wsjson.Read(context.Background(), client, &c); err != nil {
				close(h.cmds)
				return
			}
			h.cmds <- c
		}
	}()
	h.waitFor("display attached", func(s playback.Snapshot) bool { return s.PlayerAttached })
	return h
}

func (h *harness) close() {
	h.client.Close(ws.StatusNormalClosure, "")
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			h.t.Fatalf("kiosk run: %v", err)
		}
	case <-time.After(3 * time.Second):
		h.t.Fatal("kiosk did not stop")
	}
	h.srv.Close()
}

func (h *harness) send(typ string, data map[string]any) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, h.client, map[string]any{"type": typ, "data": data}); err != nil {
		h.t.Fatalf("send %s: %v", typ, err)
	}
}

// expect skips commands until one of typ arrives.
func (h *harness) expect(typ string) command {
	h.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c, ok := <-h.cmds:
			if !ok {
				h.t.Fatalf("display closed while waiting for %s", typ)
			}
			if c.Type == typ {
				return c
			}
		case <-deadline:
			h.t.Fatalf("timed out waiting for %s command", typ)
		}
	}
}

func (h *harness) waitFor(what string, cond func(playback.Snapshot) bool) playback.Snapshot {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s := h.kiosk.Snapshot(); cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s: %+v", what, h.kiosk.Snapshot())
	return playback.Snapshot{}
}

// tick advances the manual ticker on the loop goroutine.
func (h *harness) tick(n int) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.kiosk.call(ctx, func() error {
		h.ticker.Advance(n)
		return nil
	}); err != nil {
		h.t.Fatalf("tick: %v", err)
	}
}

func TestKioskRunsSessionThroughDisplay(t *testing.T) {
	h := newHarness(t)
	defer h.close()
	ctx := context.Background()

	starts := h.bus.Subscribe(events.EventSessionStart)
	h.send(display.EvReady, nil)

	if err := h.kiosk.Configure(ctx, []string{"abc"}, 2, 1, 1); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := h.kiosk.StartSession(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := h.kiosk.StartSession(ctx); playback.KindOf(err) != playback.KindSessionInProgress {
		t.Fatalf("expected session in progress, got %v", err)
	}
	select {
	case <-starts:
	case <-time.After(time.Second):
		t.Fatal("expected session start on the bus")
	}

	h.expect(display.CmdFullscreen)
	audio := h.expect(display.CmdAudioPlay)
	id, _ := audio.Data["id"].(string)
	if id == "" || audio.Data["url"] != "/audio/intro.mp3" {
		t.Fatalf("unexpected audio command: %+v", audio)
	}
	if frame, ok := h.kiosk.Frame(); !ok || frame.Kind != cinematic.KindIntro {
		t.Fatalf("expected intro frame, got %+v (%v)", frame, ok)
	}

	h.send(display.EvAudioStarted, map[string]any{"id": id})
	h.send(display.EvAudioEnded, map[string]any{"id": id})
	h.expect(display.CmdDrivingRestart)

	load := h.expect(display.CmdLoad)
	if load.Data["video_id"] != "abc" {
		t.Fatalf("unexpected load: %+v", load)
	}
	h.expect(display.CmdPlay)
	s := h.waitFor("playing", func(s playback.Snapshot) bool { return s.Phase == playback.PhasePlaying })
	if s.Screen != playback.ScreenPlayer || s.RemainingSeconds != 2 {
		t.Fatalf("unexpected playing snapshot: %+v", s)
	}
	if _, ok := h.kiosk.Frame(); ok {
		t.Fatal("expected cinematic frame to clear on the player screen")
	}

	h.tick(2)
	h.waitFor("outro", func(s playback.Snapshot) bool { return s.Screen == playback.ScreenOutro })
	h.expect(display.CmdStop)

	if err := h.kiosk.Teardown(ctx); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if s := h.kiosk.Snapshot(); s.Screen != playback.ScreenConfiguring {
		t.Fatalf("expected configuring after teardown, got %q", s.Screen)
	}
}

func TestKioskDraftAndErrors(t *testing.T) {
	h := newHarness(t)
	defer h.close()
	ctx := context.Background()

	if err := h.kiosk.StartCinematic(ctx); err != ErrNoCinematic {
		t.Fatalf("expected no cinematic, got %v", err)
	}
	if err := h.kiosk.StartFromDraft(ctx); playback.KindOf(err) != playback.KindEmptyPlaylist {
		t.Fatalf("expected empty playlist, got %v", err)
	}
	if err := h.kiosk.AddVideoID(ctx, "abc"); err != nil {
		t.Fatalf("add video id: %v", err)
	}
	if err := h.kiosk.AddVideoID(ctx, " abc "); playback.KindOf(err) != playback.KindDuplicateVideoID {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := h.kiosk.SetTimings(ctx, 5, 0, 2); err != nil {
		t.Fatalf("set timings: %v", err)
	}
	if err := h.kiosk.RemoveVideoInput(ctx, 9); playback.KindOf(err) != playback.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}

	d := h.kiosk.Snapshot().Draft
	if d.PlaySeconds != 5 || d.BreakSeconds != 0 || d.TotalCycles != 2 {
		t.Fatalf("unexpected draft timings: %+v", d)
	}

	if err := h.kiosk.StartFromDraft(ctx); err != nil {
		t.Fatalf("start from draft: %v", err)
	}
	s := h.kiosk.Snapshot()
	if s.Screen != playback.ScreenIntro || len(s.Config.VideoIDs) != 1 || s.Config.VideoIDs[0] != "abc" {
		t.Fatalf("unexpected snapshot after start: %+v", s)
	}
	if err := h.kiosk.StartCinematic(ctx); err != nil {
		t.Fatalf("start cinematic retry: %v", err)
	}
}

func TestKioskDetachesPlayerWhenDisplayLeaves(t *testing.T) {
	h := newHarness(t)
	defer h.close()

	lost := h.bus.Subscribe(events.EventDisplayLost)
	h.client.Close(ws.StatusNormalClosure, "bye")

	h.waitFor("player detached", func(s playback.Snapshot) bool { return !s.PlayerAttached })
	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("expected display lost event")
	}
}
