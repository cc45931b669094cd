package sse

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEventFormatSSE(t *testing.T) {
	event := Event{
		Type: "message",
		Data: map[string]interface{}{
			"conversation_id": "conv-1",
			"seq":             2,
		},
	}

	result := event.FormatSSE()

	lines := strings.Split(result, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %d", len(lines))
	}

	if lines[0] != "event: message" {
		t.Errorf("expected 'event: message', got %q", lines[0])
	}

	if !strings.HasPrefix(lines[1], "data: ") {
		t.Errorf("expected data line prefix 'data: ', got %q", lines[1])
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &parsed); err != nil {
		t.Fatalf("failed to parse JSON data: %v", err)
	}
	if parsed["conversation_id"] != "conv-1" {
		t.Errorf("expected conversation_id 'conv-1', got %v", parsed["conversation_id"])
	}

	if !strings.HasSuffix(result, "\n\n") {
		t.Error("SSE frame must end with a blank line")
	}
}

func TestHubRegisterBroadcast(t *testing.T) {
	hub := NewHub()

	client := &Client{ID: "c1", Owner: "owner-1", Channel: make(chan Event, 4)}
	other := &Client{ID: "c2", Owner: "owner-2", Channel: make(chan Event, 4)}
	hub.Register(client)
	hub.Register(other)

	if got := hub.SubscriberCount("owner-1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.Broadcast("owner-1", Event{Type: "message", Data: "hello"})

	select {
	case event := <-client.Channel:
		if event.Type != "message" {
			t.Errorf("expected type 'message', got %q", event.Type)
		}
	default:
		t.Fatal("expected event on owner-1 channel")
	}

	// Owner scoping: owner-2 must not see owner-1 events.
	select {
	case <-other.Channel:
		t.Fatal("owner-2 received owner-1 event")
	default:
	}
}

func TestHubBroadcastToMultipleClients(t *testing.T) {
	hub := NewHub()

	a := &Client{ID: "a", Owner: "owner-1", Channel: make(chan Event, 1)}
	b := &Client{ID: "b", Owner: "owner-1", Channel: make(chan Event, 1)}
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast("owner-1", Event{Type: "message"})

	for _, client := range []*Client{a, b} {
		select {
		case <-client.Channel:
		default:
			t.Errorf("client %s did not receive the event", client.ID)
		}
	}
}

func TestHubSkipsFullChannels(t *testing.T) {
	hub := NewHub()

	client := &Client{ID: "c1", Owner: "owner-1", Channel: make(chan Event, 1)}
	hub.Register(client)

	hub.Broadcast("owner-1", Event{Type: "first"})
	hub.Broadcast("owner-1", Event{Type: "dropped"}) // buffer full, must not block

	event := <-client.Channel
	if event.Type != "first" {
		t.Errorf("expected 'first', got %q", event.Type)
	}
	select {
	case event := <-client.Channel:
		t.Errorf("expected dropped event, got %q", event.Type)
	default:
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()

	client := &Client{ID: "c1", Owner: "owner-1", Channel: make(chan Event, 1)}
	hub.Register(client)
	hub.Unregister(client)

	if got := hub.SubscriberCount("owner-1"); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}

	if _, ok := <-client.Channel; ok {
		t.Error("expected channel to be closed")
	}

	// Double unregister must be safe.
	hub.Unregister(client)

	// Broadcasting to an owner with no subscribers must not panic.
	hub.Broadcast("owner-1", Event{Type: "message"})
}
