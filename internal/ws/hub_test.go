package ws

import (
	"encoding/json"
	"testing"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	client, backlog := hub.SubscribeFrom(0)
	defer hub.Unsubscribe(client)
	if len(backlog) != 0 {
		t.Fatalf("expected empty backlog for a fresh hub, got %d messages", len(backlog))
	}

	hub.Publish(Event{Type: "chunk.stored", SessionID: "sess-1"})

	msg := <-client.Messages()
	if msg.Seq != 1 || msg.Type != "chunk.stored" {
		t.Fatalf("unexpected message %+v", msg)
	}
	var evt Event
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.SessionID != "sess-1" || evt.Ts == "" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestSubscribeFromReplaysBacklog(t *testing.T) {
	hub := NewHub()

	for i := 0; i < 3; i++ {
		hub.Publish(Event{Type: "merge.triggered", SessionID: "sess-1"})
	}

	client, backlog := hub.SubscribeFrom(1)
	defer hub.Unsubscribe(client)
	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog messages after seq 1, got %d", len(backlog))
	}
	if backlog[0].Seq != 2 || backlog[1].Seq != 3 {
		t.Fatalf("unexpected backlog sequence %d, %d", backlog[0].Seq, backlog[1].Seq)
	}
}
