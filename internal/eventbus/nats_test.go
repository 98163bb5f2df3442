package eventbus

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/kidscast/internal/events"
)

type recordingPublisher struct {
	subjects []string
	data     [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	p.data = append(p.data, data)
	return p.err
}

func TestMirrorForwardsBusEvents(t *testing.T) {
	pub := &recordingPublisher{}
	bus := events.NewBus()
	m := newMirror(pub, "kidscast.events", zerolog.Nop())
	bus.OnPublish(m.forward)

	bus.Publish(events.EventSegment, events.Payload{"phase": "playing", "cycle": 1})

	if len(pub.subjects) != 1 || pub.subjects[0] != "kidscast.events.session.segment" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}
	msg, err := unmarshalNATSMessage(pub.data[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.EventType != events.EventSegment || msg.Payload["phase"] != "playing" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.NodeID == "" || msg.MessageID == "" {
		t.Fatalf("expected ids to be set: %+v", msg)
	}
}

func TestMirrorSurvivesPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("no responders")}
	m := newMirror(pub, "kidscast.events", zerolog.Nop())

	m.forward(events.EventTick, events.Payload{"remaining": 2})
	m.forward(events.EventTick, events.Payload{"bad": func() {}})

	if len(pub.subjects) != 1 {
		t.Fatalf("expected unencodable payload to be skipped, got %d publishes", len(pub.subjects))
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close without connection: %v", err)
	}
}
