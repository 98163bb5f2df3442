/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package display bridges the kiosk display page over a WebSocket.
//
// The page hosts the embedded video player and the cinematic stage. The
// bridge sends it commands and reports its player and audio events to a
// Sink. Only the most recent connection is active.
package display

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/kidscast/internal/cinematic"
	"github.com/friendsincode/kidscast/internal/playback"
	"github.com/friendsincode/kidscast/internal/telemetry"
)

var (
	// ErrNoDisplay is returned when no display page is connected.
	ErrNoDisplay = &playback.Error{Kind: playback.KindAdapterUnavailable, Message: "no display connected"}
	// ErrBacklog is returned when the display is not reading commands.
	ErrBacklog = errors.New("display command backlog full")
)

const (
	outboxSize   = 64
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// Sink receives display lifecycle and events. Calls come from connection goroutines.
type Sink interface {
	Attached(c *Conn)
	Detached(c *Conn)
	Event(c *Conn, msg Message)
}

// Bridge is the display surface seen by the controller and the cinematic host.
type Bridge struct {
	mu      sync.Mutex
	current *Conn
	sink    Sink
	assets  *Assets
	ping    time.Duration
	logger  zerolog.Logger
}

// NewBridge creates a bridge with no display attached.
func NewBridge(sink Sink, logger zerolog.Logger) *Bridge {
	return &Bridge{
		sink:   sink,
		ping:   pingInterval,
		logger: logger.With().Str("component", "display").Logger(),
	}
}

// SetSink replaces the event sink.
func (b *Bridge) SetSink(sink Sink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// SetAssets sets the layers sent to every display on connect.
func (b *Bridge) SetAssets(a Assets) {
	b.mu.Lock()
	b.assets = &a
	current := b.current
	b.mu.Unlock()
	if current != nil {
		_ = current.Send(CmdAssets, a)
	}
}

// Current returns the active connection or nil.
func (b *Bridge) Current() *Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Connected reports whether a display is attached.
func (b *Bridge) Connected() bool {
	return b.Current() != nil
}

// Conn is one display connection.
type Conn struct {
	id        string
	remote    string
	outbox    chan wsMessage
	seq       atomic.Uint64
	closed    chan struct{}
	closeOnce sync.Once
}

// ID identifies the connection in logs and events.
func (c *Conn) ID() string { return c.id }

// Send queues a command without blocking.
func (c *Conn) Send(typ string, data any) error {
	select {
	case <-c.closed:
		return ErrNoDisplay
	default:
	}
	msg := wsMessage{Type: typ, Seq: c.seq.Add(1), Timestamp: time.Now().UTC(), Data: data}
	select {
	case c.outbox <- msg:
		return nil
	default:
		return ErrBacklog
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func newConn(remote string) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		remote: remote,
		outbox: make(chan wsMessage, outboxSize),
		closed: make(chan struct{}),
	}
}

// HandleWebSocket serves the display page connection.
func (b *Bridge) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.DisplayConnections.Inc()
	defer telemetry.DisplayConnections.Dec()

	dc := newConn(r.RemoteAddr)
	logger := b.logger.With().Str("display_id", dc.id).Logger()
	b.attach(dc)
	defer b.detach(dc)
	logger.Info().Str("remote", dc.remote).Msg("display connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	eventCh := make(chan Message, 32)

	// Read events from the display
	go func() {
		defer close(done)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ws.CloseStatus(err) != ws.StatusNormalClosure {
					logger.Debug().Err(err).Msg("websocket read error")
				}
				return
			}

			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warn().Err(err).Msg("invalid display message")
				continue
			}

			select {
			case eventCh <- msg:
			default:
				logger.Warn().Str("type", msg.Type).Msg("event channel full, dropping message")
			}
		}
	}()

	pingTicker := time.NewTicker(b.ping)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return

		case <-done:
			conn.Close(ws.StatusNormalClosure, "display disconnected")
			return

		case <-dc.closed:
			conn.Close(ws.StatusGoingAway, "replaced by another display")
			return

		case <-pingTicker.C:
			if err := dc.Send(CmdPing, nil); err != nil {
				logger.Debug().Err(err).Msg("ping not queued")
			}

		case msg := <-dc.outbox:
			if err := b.write(ctx, conn, msg); err != nil {
				logger.Error().Err(err).Str("type", msg.Type).Msg("send command failed")
				conn.Close(ws.StatusInternalError, "send failed")
				return
			}

		case msg := <-eventCh:
			if msg.Type == EvPong {
				continue
			}
			logger.Debug().Str("type", msg.Type).Msg("display event")
			if sink := b.sinkFor(); sink != nil {
				sink.Event(dc, msg)
			}
		}
	}
}

func (b *Bridge) write(ctx context.Context, conn *ws.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, ws.MessageText, data)
}

func (b *Bridge) attach(dc *Conn) {
	b.mu.Lock()
	previous := b.current
	b.current = dc
	assets := b.assets
	sink := b.sink
	b.mu.Unlock()

	if previous != nil {
		previous.close()
		if sink != nil {
			sink.Detached(previous)
		}
	}
	if assets != nil {
		_ = dc.Send(CmdAssets, *assets)
	}
	if sink != nil {
		sink.Attached(dc)
	}
}

func (b *Bridge) detach(dc *Conn) {
	dc.close()
	b.mu.Lock()
	active := b.current == dc
	if active {
		b.current = nil
	}
	sink := b.sink
	b.mu.Unlock()

	if active && sink != nil {
		sink.Detached(dc)
	}
	b.logger.Info().Str("display_id", dc.id).Bool("active", active).Msg("display disconnected")
}

func (b *Bridge) sinkFor() Sink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink
}

func (b *Bridge) send(typ string, data any) error {
	c := b.Current()
	if c == nil {
		return ErrNoDisplay
	}
	return c.Send(typ, data)
}

// Load cues videoID on the display player.
func (b *Bridge) Load(videoID string) error {
	return b.send(CmdLoad, loadData{VideoID: videoID})
}

func (b *Bridge) Play() error  { return b.send(CmdPlay, nil) }
func (b *Bridge) Pause() error { return b.send(CmdPause, nil) }
func (b *Bridge) Stop() error  { return b.send(CmdStop, nil) }

// RequestFullscreen asks the page to enter fullscreen. Denial arrives later as an event.
func (b *Bridge) RequestFullscreen() error {
	return b.send(CmdFullscreen, nil)
}

// ShowScreen switches the visible screen of the page.
func (b *Bridge) ShowScreen(snapshot playback.Snapshot) error {
	return b.send(CmdScreen, snapshot)
}

// Render sends a cinematic frame.
func (b *Bridge) Render(frame cinematic.Frame) {
	if err := b.send(CmdCinematic, frame); err != nil && !errors.Is(err, ErrNoDisplay) {
		b.logger.Warn().Err(err).Str("state", string(frame.State)).Msg("render frame failed")
	}
}

// PlayAudio starts narration playback on the page.
func (b *Bridge) PlayAudio(id, url string) error {
	return b.send(CmdAudioPlay, audioData{ID: id, URL: url})
}

// StopAudio stops narration playback.
func (b *Bridge) StopAudio(id string) {
	_ = b.send(CmdAudioStop, audioData{ID: id})
}

// RestartDriving rewinds the driving layer to its first frame and plays it.
func (b *Bridge) RestartDriving() {
	_ = b.send(CmdDrivingRestart, nil)
}

var (
	_ playback.Adapter    = (*Bridge)(nil)
	_ playback.Fullscreen = (*Bridge)(nil)
	_ cinematic.Stage     = (*Bridge)(nil)
)
