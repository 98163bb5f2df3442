/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors in-process kiosk events to NATS for remote dashboards.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Subject       string // Prefix; the event type is appended
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "kidscast.events",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Mirror republishes every bus event on a NATS subject.
type Mirror struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	nodeID  string
	logger  zerolog.Logger
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"` // For deduplication
}

// NewMirror connects to NATS and attaches the mirror to bus.
func NewMirror(cfg NATSConfig, bus *events.Bus, logger zerolog.Logger) (*Mirror, error) {
	logger = logger.With().Str("component", "eventbus").Logger()
	conn, err := nats.Connect(cfg.URL,
		nats.Name("kidscast"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	m := newMirror(conn, cfg.Subject, logger)
	m.conn = conn
	bus.OnPublish(m.forward)
	logger.Info().Str("url", cfg.URL).Str("subject", cfg.Subject).Msg("nats event mirror attached")
	return m, nil
}

func newMirror(pub publisher, subject string, logger zerolog.Logger) *Mirror {
	return &Mirror{
		pub:     pub,
		subject: subject,
		nodeID:  generateNodeID(),
		logger:  logger,
	}
}

func (m *Mirror) forward(eventType events.EventType, payload events.Payload) {
	data, err := marshalNATSMessage(eventType, payload, m.nodeID)
	if err != nil {
		m.logger.Debug().Err(err).Str("event", string(eventType)).Msg("skip unencodable event")
		return
	}
	if err := m.pub.Publish(m.subject+"."+string(eventType), data); err != nil {
		m.logger.Debug().Err(err).Str("event", string(eventType)).Msg("nats publish failed")
	}
}

// Close drains the NATS connection.
func (m *Mirror) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Drain()
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "kiosk"
	}
	return host + "-" + uuid.NewString()[:8]
}
